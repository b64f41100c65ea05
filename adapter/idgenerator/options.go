package idgenerator

import (
	"io"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// WithReader sets the reader that will provide random bytes.
func WithReader(r io.Reader) Option {
	return func(i *IDGenerator) {
		i.reader = r
	}
}

// WithTimeGetter sets the clock used for the timestamp part of the ids.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(i *IDGenerator) {
		i.timeGetter = t
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*IDGenerator)
