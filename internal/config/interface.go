package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every configuration file found under paths and merges them
	// into one Model, later files overriding earlier ones.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, paths ...string) (*Model, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, paths ...string) (*Model, error) {
	return f(ctx, paths...)
}
