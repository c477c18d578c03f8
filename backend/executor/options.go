package executor

import "time"

const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 2
)

// Options tunes how a single command is retried and bounded.
type Options struct {
	// Timeout bounds every attempt, primary or alternate.
	Timeout time.Duration `json:"timeout"`
	// MaxRetries is the number of primary attempts before falling back.
	MaxRetries int `json:"maxRetries"`
	// RetryDelay is waited between two primary attempts.
	RetryDelay time.Duration `json:"retryDelay"`
}

// WithDefaults returns a copy where unset fields are populated.
func (o Options) WithDefaults() Options {
	cp := o
	if cp.Timeout <= 0 {
		cp.Timeout = DefaultTimeout
	}
	if cp.MaxRetries == 0 {
		cp.MaxRetries = DefaultMaxRetries
	}
	if cp.MaxRetries < 1 {
		cp.MaxRetries = 1
	}
	if cp.RetryDelay < 0 {
		cp.RetryDelay = 0
	}
	return cp
}
