package engine

import (
	"os"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// options holds everything [Open] needs. Components left nil are replaced by
// the default adapters.
type options struct {
	filename              string
	inMemoryOnly          bool
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	storage               domain.Storage
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	persistence           domain.Persistence
	comparer              domain.Comparer
	fieldNavigator        domain.FieldNavigator
	matcher               domain.Matcher
	modifier              domain.Modifier
	idGenerator           domain.IDGenerator
	timeGetter            domain.TimeGetter
	indexFactory          domain.IndexFactory
	metrics               domain.Metrics
	log                   *zap.Logger
}

// Option configures an [Engine].
type Option func(*options)

// WithFilename sets the path of the journal file.
func WithFilename(f string) Option {
	return func(o *options) {
		o.filename = f
	}
}

// WithInMemoryOnly keeps every write in memory. Nothing is read from or
// written to disk.
func WithInMemoryOnly(i bool) Option {
	return func(o *options) {
		o.inMemoryOnly = i
	}
}

// WithCorruptAlertThreshold sets the tolerated rate of unreadable journal
// records. The default is 10%.
func WithCorruptAlertThreshold(c float64) Option {
	return func(o *options) {
		o.corruptAlertThreshold = c
	}
}

// WithFileMode sets the permissions of the journal file.
func WithFileMode(m os.FileMode) Option {
	return func(o *options) {
		o.fileMode = m
	}
}

// WithDirMode sets the permissions of created parent directories.
func WithDirMode(m os.FileMode) Option {
	return func(o *options) {
		o.dirMode = m
	}
}

// WithStorage replaces the file system layer used by the journal.
func WithStorage(s domain.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithSerializer replaces the journal record encoder.
func WithSerializer(s domain.Serializer) Option {
	return func(o *options) {
		o.serializer = s
	}
}

// WithDeserializer replaces the journal record decoder.
func WithDeserializer(d domain.Deserializer) Option {
	return func(o *options) {
		o.deserializer = d
	}
}

// WithPersistence replaces the journal entirely. File related options are
// ignored when it is set.
func WithPersistence(p domain.Persistence) Option {
	return func(o *options) {
		o.persistence = p
	}
}

// WithComparer sets the value ordering used by indexes and filters.
func WithComparer(c domain.Comparer) Option {
	return func(o *options) {
		o.comparer = c
	}
}

// WithFieldNavigator sets how dotted field names are resolved.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(o *options) {
		o.fieldNavigator = f
	}
}

// WithMatcher sets the filter compiler.
func WithMatcher(m domain.Matcher) Option {
	return func(o *options) {
		o.matcher = m
	}
}

// WithModifier sets how update documents are applied.
func WithModifier(m domain.Modifier) Option {
	return func(o *options) {
		o.modifier = m
	}
}

// WithIDGenerator sets the object id source.
func WithIDGenerator(i domain.IDGenerator) Option {
	return func(o *options) {
		o.idGenerator = i
	}
}

// WithTimeGetter sets the clock used for commit markers.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(o *options) {
		o.timeGetter = t
	}
}

// WithIndexFactory sets how primary key indexes are built.
func WithIndexFactory(f domain.IndexFactory) Option {
	return func(o *options) {
		o.indexFactory = f
	}
}

// WithMetrics sets where engine activity is recorded.
func WithMetrics(m domain.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}
