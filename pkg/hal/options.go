package hal

import (
	"io"
	"log/slog"
	"time"
)

// DefaultTimeout bounds each Receive when no WithTimeout option is given.
const DefaultTimeout = 2 * time.Second

type config struct {
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

func defaultConfig() config {
	return config{
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
}

// Option configures a Session.
type Option func(*config)

// WithTimeout sets how long Receive waits for a complete frame.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger enables debug frame tracing. Sessions are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an Observer for frame and error accounting.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}
