package types

// Config carries the scheduler's ambient settings: logging, global
// properties substitutable into rule configuration, and pool sizing. It is
// built with NewConfig and a list of Options, following the functional
// options pattern throughout this codebase.
type Config struct {
	// Logger receives scheduler and rule diagnostics. Defaults to a no-op.
	Logger Logger

	// Properties are global key/value settings a script rule's source may
	// reference via "${key}" placeholders; package script's
	// NewExprRule/NewJSRule expand them once, at compile time, via
	// script.ExpandProperties, so a rule's source never sees raw
	// placeholder text at evaluation time.
	Properties map[string]any

	// PoolSize bounds the number of goroutines process.LocalPool runs
	// batch elements on. Zero means GOMAXPROCS. Command pgsched threads
	// this straight into process.NewLocalPool when building a Scheduler.
	PoolSize int
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithProperty sets a single global property.
func WithProperty(key string, value any) Option {
	return func(c *Config) {
		if c.Properties == nil {
			c.Properties = map[string]any{}
		}
		c.Properties[key] = value
	}
}

// WithPoolSize overrides the default LocalPool goroutine count.
func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

// NewConfig builds a Config with defaults, then applies opts in order.
func NewConfig(opts ...Option) Config {
	c := Config{
		Logger:     DefaultLogger(),
		Properties: map[string]any{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
