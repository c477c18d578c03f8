package executor

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/shlex"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Launcher spawns one external process and returns its merged stdout/stderr.
// The context carries the per-attempt deadline.
type Launcher interface {
	Launch(ctx context.Context, name string, args []string) ([]byte, error)
}

// Outcome is what Execute hands back for every command, successful or not.
type Outcome struct {
	Command         string                   `json:"command"`
	Output          string                   `json:"output"`
	Attempts        int                      `json:"attempts"`
	PrimaryAttempts int                      `json:"primaryAttempts"`
	UsedAlternate   bool                     `json:"usedAlternate"`
	Duration        time.Duration            `json:"duration"`
	Failure         *CommandExecutionFailure `json:"-"`
}

func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// Text is the string recorded in results: the captured output, or the failure message.
func (o Outcome) Text() string {
	if o.Failure != nil {
		return o.Failure.Text()
	}
	return o.Output
}

type phase int

const (
	phaseAttempting phase = iota
	phaseFallback
	phaseDone
	phaseFailed
)

// Executor is the only place external processes are started. It knows nothing
// about the tools it runs.
type Executor struct {
	launcher Launcher
	opts     Options
	logger   logrus.FieldLogger
}

func New(opts Options, launcher Launcher, logger logrus.FieldLogger) *Executor {
	if launcher == nil {
		launcher = &ProcessLauncher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{launcher: launcher, opts: opts.WithDefaults(), logger: logger}
}

func (e *Executor) Options() Options {
	return e.opts
}

// Execute runs primary up to MaxRetries times, then alternate once if it is non-empty.
// It never returns an error: a final failure is reported through Outcome.Failure.
func (e *Executor) Execute(ctx context.Context, primary, alternate string) Outcome {
	begin := time.Now()
	primary = strings.TrimSpace(primary)
	alternate = strings.TrimSpace(alternate)

	var (
		state   = phaseAttempting
		out     Outcome
		lastErr error
		lastOut string
	)
	delays := backoff.WithMaxRetries(backoff.NewConstantBackOff(e.opts.RetryDelay), uint64(e.opts.MaxRetries-1))
	delays.Reset()

	for state != phaseDone && state != phaseFailed {
		switch state {
		case phaseAttempting:
			out.PrimaryAttempts++
			out.Attempts++
			text, err := e.attempt(ctx, primary, out.Attempts)
			if err == nil {
				out.Command = primary
				out.Output = text
				state = phaseDone
				continue
			}
			lastErr, lastOut = err, text
			if ctx.Err() != nil {
				lastErr = pkgerrors.Wrap(ctx.Err(), "execution aborted")
				state = phaseFailed
				continue
			}
			next := delays.NextBackOff()
			if next == backoff.Stop {
				if alternate != "" {
					state = phaseFallback
				} else {
					state = phaseFailed
				}
				continue
			}
			if !sleep(ctx, next) {
				lastErr = pkgerrors.Wrap(ctx.Err(), "execution aborted")
				state = phaseFailed
			}
		case phaseFallback:
			out.Attempts++
			out.UsedAlternate = true
			e.logger.WithField("command", primary).
				WithField("alternate", alternate).
				Warn("primary command exhausted, falling back")
			text, err := e.attempt(ctx, alternate, out.Attempts)
			if err == nil {
				out.Command = alternate
				out.Output = text
				state = phaseDone
				continue
			}
			lastErr, lastOut = err, text
			state = phaseFailed
		}
	}

	out.Duration = time.Since(begin)
	if state == phaseFailed {
		out.Command = primary
		if out.UsedAlternate {
			out.Command = alternate
		}
		out.Failure = &CommandExecutionFailure{
			Primary:   primary,
			Alternate: alternate,
			Attempts:  out.Attempts,
			Output:    lastOut,
			Err:       lastErr,
		}
		e.logger.WithField("command", primary).
			WithField("attempts", out.Attempts).
			WithError(lastErr).
			Error("command failed after retries")
	}
	return out
}

func (e *Executor) attempt(ctx context.Context, command string, n int) (string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return "", pkgerrors.Wrap(err, "parse command")
	}
	if len(args) == 0 {
		return "", pkgerrors.New("empty command")
	}

	actx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	log := e.logger.WithField("command", command).WithField("attempt", n)
	log.Debug("command starting")
	raw, err := e.launcher.Launch(actx, args[0], args[1:])
	text := string(raw)
	if pkgerrors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		log.WithField("timeout", e.opts.Timeout.String()).Warn("command timed out")
		return text, pkgerrors.Errorf("command timeout after %s", e.opts.Timeout)
	}
	if err != nil {
		log.WithError(err).Warn("command attempt failed")
		return text, err
	}
	log.WithField("bytes", len(raw)).Debug("command completed")
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
