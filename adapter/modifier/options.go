package modifier

import "github.com/vinicius-lino-figueiredo/polodb/domain"

// WithComparer sets the comparer used by $max, $min and the _id check.
func WithComparer(c domain.Comparer) Option {
	return func(m *Modifier) {
		m.comparer = c
	}
}

// WithFieldNavigator sets the field navigator used to split dotted fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *Modifier) {
		m.fieldNavigator = f
	}
}

// Option configures a [Modifier].
type Option func(*Modifier)
