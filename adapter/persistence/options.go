package persistence

import (
	"os"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// WithFilename sets the journal filename.
func WithFilename(f string) Option {
	return func(p *Persistence) {
		p.filename = f
	}
}

// WithInMemoryOnly disables the journal entirely.
func WithInMemoryOnly(i bool) Option {
	return func(p *Persistence) {
		p.inMemoryOnly = i
	}
}

// WithCorruptAlertThreshold sets the tolerated rate of unreadable records.
func WithCorruptAlertThreshold(c float64) Option {
	return func(p *Persistence) {
		p.corruptAlertThreshold = c
	}
}

// WithFileMode sets the permissions of the journal file.
func WithFileMode(f os.FileMode) Option {
	return func(p *Persistence) {
		p.fileMode = f
	}
}

// WithDirMode sets the permissions of created directories.
func WithDirMode(d os.FileMode) Option {
	return func(p *Persistence) {
		p.dirMode = d
	}
}

// WithSerializer sets the serializer for journal records.
func WithSerializer(s domain.Serializer) Option {
	return func(p *Persistence) {
		p.serializer = s
	}
}

// WithDeserializer sets the deserializer for journal records.
func WithDeserializer(d domain.Deserializer) Option {
	return func(p *Persistence) {
		p.deserializer = d
	}
}

// WithStorage sets the storage implementation for file operations.
func WithStorage(s domain.Storage) Option {
	return func(p *Persistence) {
		p.storage = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Persistence) {
		p.log = l
	}
}

// Option configures persistence behavior through the functional options
// pattern.
type Option func(*Persistence)
