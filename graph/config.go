package graph

import "context"

// Config holds per-invocation settings.
type Config struct {
	// RecursionLimit caps the number of node executions. Zero means DefaultRecursionLimit.
	RecursionLimit int

	// Configurable carries runtime values that node handlers may read via GetConfig.
	Configurable map[string]any

	// Tags are attached to trace spans of this run.
	Tags []string

	// Metadata is attached to trace spans of this run.
	Metadata map[string]any
}

func (c *Config) recursionLimit() int {
	if c == nil || c.RecursionLimit <= 0 {
		return DefaultRecursionLimit
	}
	return c.RecursionLimit
}

type configKey struct{}

// WithConfig adds the config to the context.
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// GetConfig retrieves the config from the context.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}
