package uregex

// Config controls compile- and execute-time resource limits and behavior
// toggles, in the same documented-field/DefaultConfig/Validate shape as the
// teacher pack's meta.Config.
type Config struct {
	// DFACacheSize is the number of sset entries the lazy DFA keeps per
	// execute call before evicting the oldest-seen entry (spec.md §4.4).
	// Default: 200.
	DFACacheSize int

	// DFACacheSizeSmall is the cache size used when the Small exec flag
	// is set on a call, mirroring REG_SMALL in spec.md §4.4 (used by
	// tests to exercise eviction without huge inputs). Default: 5.
	DFACacheSizeSmall int

	// MaxRepeatBound is DUPMAX: the largest value accepted in a {m,n}
	// bound. A pattern asking for more fails to compile with BadBr.
	// Default: 255.
	MaxRepeatBound int

	// MaxRecursionDepth caps nested group/alternation depth during
	// parsing, guarding against stack overflow on pathological patterns.
	// Default: 100.
	MaxRecursionDepth int
}

// DefaultConfig returns a Config with spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{
		DFACacheSize:      200,
		DFACacheSizeSmall: 5,
		MaxRepeatBound:    255,
		MaxRecursionDepth: 100,
	}
}

// Validate checks that every field is within its documented valid range.
func (c Config) Validate() error {
	if c.DFACacheSize < 1 {
		return &ConfigError{Field: "DFACacheSize", Message: "must be >= 1"}
	}
	if c.DFACacheSizeSmall < 1 {
		return &ConfigError{Field: "DFACacheSizeSmall", Message: "must be >= 1"}
	}
	if c.MaxRepeatBound < 1 || c.MaxRepeatBound > 1_000_000 {
		return &ConfigError{Field: "MaxRepeatBound", Message: "must be between 1 and 1,000,000"}
	}
	if c.MaxRecursionDepth < 1 || c.MaxRecursionDepth > 10_000 {
		return &ConfigError{Field: "MaxRecursionDepth", Message: "must be between 1 and 10,000"}
	}
	return nil
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "uregex: invalid config: " + e.Field + ": " + e.Message
}
