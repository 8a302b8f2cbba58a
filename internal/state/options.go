package state

import (
	"log/slog"
	"time"
)

// Defaults for the repository cache and the state file size policy.
const (
	DefaultCacheTTL      = 5 * time.Second
	DefaultSizeWarningKB = 80
	DefaultSizeLimitKB   = 100
)

type options struct {
	baseDir       string
	cacheTTL      time.Duration
	sizeWarningKB float64
	sizeLimitKB   float64
	now           func() time.Time
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{
		baseDir:       DefaultBaseDir,
		cacheTTL:      DefaultCacheTTL,
		sizeWarningKB: DefaultSizeWarningKB,
		sizeLimitKB:   DefaultSizeLimitKB,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Repository, Service or Manager.
type Option func(*options)

// WithBaseDir sets the directory holding state.json, relative to the filesystem root.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.baseDir = dir
		}
	}
}

// WithCacheTTL sets how long a read or written state stays cached.
// Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithSizeThresholds sets the warning and hard limits, in KB, for CheckFileSize.
func WithSizeThresholds(warningKB, limitKB float64) Option {
	return func(o *options) {
		if warningKB > 0 {
			o.sizeWarningKB = warningKB
		}
		if limitKB > 0 {
			o.sizeLimitKB = limitKB
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
