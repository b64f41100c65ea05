package database

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/engine"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

type config struct {
	engine       domain.Engine
	engineOpts   []engine.Option
	log          *zap.Logger
	registerer   prometheus.Registerer
	randomReader io.Reader
	timeGetter   domain.TimeGetter
	decoder      domain.Decoder
}

// Option configures [Open].
type Option func(*config)

// WithEngine uses e instead of opening the default engine. Every option
// that configures the default engine is ignored.
func WithEngine(e domain.Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}

// WithLogger sets the logger of the database and of its engine.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithInMemoryOnly keeps the database in memory, whatever the path.
func WithInMemoryOnly(i bool) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithInMemoryOnly(i))
	}
}

// WithFileMode sets the permissions of the journal file.
func WithFileMode(m os.FileMode) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithFileMode(m))
	}
}

// WithDirMode sets the permissions of created parent directories.
func WithDirMode(m os.FileMode) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithDirMode(m))
	}
}

// WithCorruptionThreshold sets the tolerated rate of unreadable journal
// records.
func WithCorruptionThreshold(t float64) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithCorruptAlertThreshold(t))
	}
}

// WithMetrics registers the engine metrics in reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

// WithRandomReader sets the source of the random part of object ids.
func WithRandomReader(r io.Reader) Option {
	return func(c *config) {
		c.randomReader = r
	}
}

// WithTimeGetter sets the clock used for object ids and commit markers.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(c *config) {
		c.timeGetter = t
	}
}

// WithStorage replaces the file system layer under the journal.
func WithStorage(s domain.Storage) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithStorage(s))
	}
}

// WithSerializer replaces the journal record encoder.
func WithSerializer(s domain.Serializer) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithSerializer(s))
	}
}

// WithDeserializer replaces the journal record decoder.
func WithDeserializer(d domain.Deserializer) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithDeserializer(d))
	}
}

// WithComparer sets the value ordering used by the engine.
func WithComparer(cmp domain.Comparer) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithComparer(cmp))
	}
}

// WithMatcher sets the filter compiler used by the engine.
func WithMatcher(m domain.Matcher) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithMatcher(m))
	}
}

// WithDecoder sets how rows are decoded into user types.
func WithDecoder(d domain.Decoder) Option {
	return func(c *config) {
		c.decoder = d
	}
}
