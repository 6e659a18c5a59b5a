package differ

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithEntity names the entity type being compared, used in error messages.
func WithEntity(name string) Option {
	return func(d *differ) {
		d.entity = name
	}
}

// WithIgnoredFields sets fields that are never compared.
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}

// WithLastWins accepts duplicate natural keys, the last record for a key wins.
func WithLastWins() Option {
	return func(d *differ) {
		d.lastWins = true
	}
}

// WithTracking records every differing field of an update instead of stopping at the first.
func WithTracking(enabled bool) Option {
	return func(d *differ) {
		d.tracking = enabled
	}
}
