package scanner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

type LoopConfig struct {
	RefreshInterval time.Duration
}

// Loop is the headless front end: one job number per input line, one
// status line per event on out. Run is the session's foreground goroutine.
type Loop struct {
	cfg     LoopConfig
	session *Session
	in      io.Reader
	out     io.Writer
	log     zerolog.Logger

	completions chan Completion
	done        chan struct{}
	pending     int
	refreshing  bool
}

func NewLoop(cfg LoopConfig, session *Session, in io.Reader, out io.Writer, log zerolog.Logger) *Loop {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return &Loop{
		cfg:         cfg,
		session:     session,
		in:          in,
		out:         out,
		log:         log.With().Str("component", "loop").Logger(),
		completions: make(chan Completion),
		done:        make(chan struct{}),
	}
}

// Run blocks until ctx is canceled or input reaches EOF. On EOF it waits
// for in-flight submissions; on cancellation their results are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(l.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-l.done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	l.printf("Terminal %s starting, location %s", l.session.Hostname(), l.session.State().Location)
	l.refresh(ctx)

	ticker := time.NewTicker(l.cfg.RefreshInterval)
	defer ticker.Stop()

	input := lines
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Int("pending", l.pending).Msg("loop stopped")
			return ctx.Err()

		case <-ticker.C:
			l.refresh(ctx)

		case c := <-l.completions:
			l.pending--
			if _, ok := c.(LocationResolved); ok {
				l.refreshing = false
			}
			l.apply(c)

		case line, ok := <-input:
			if !ok {
				input = nil
				if err := <-readErr; err != nil {
					l.log.Error().Err(err).Msg("input read failed")
				}
				if l.pending == 0 {
					return nil
				}
				continue
			}
			l.scan(ctx, line)
		}

		if input == nil && l.pending == 0 {
			return nil
		}
	}
}

func (l *Loop) scan(ctx context.Context, line string) {
	out, task := l.session.Submit(line)
	switch {
	case out.Ignored:
	case out.Rejection != nil:
		l.printf("[REJECTED] %s: %s", out.JobNumber, out.Rejection.Reason.Message())
	default:
		l.printf("%s", l.session.State().StatusLine)
		l.dispatch(ctx, task)
	}
}

func (l *Loop) apply(c Completion) {
	prev := l.session.State()
	l.session.Apply(c)
	st := l.session.State()
	switch c.(type) {
	case LocationResolved:
		if st.Location != prev.Location || st.Status != prev.Status {
			l.printf("Location: %s (%s)", st.Location, st.Status)
			if st.StatusDetail != "" {
				l.printf("%s", st.StatusDetail)
			}
		}
	case ScanSubmitted:
		l.printf("%s", st.StatusLine)
	}
}

func (l *Loop) refresh(ctx context.Context) {
	if l.refreshing {
		return
	}
	l.refreshing = true
	l.dispatch(ctx, l.session.Refresh())
}

// dispatch runs task on its own goroutine. The task itself always runs to
// completion; only delivery is abandoned once Run has returned.
func (l *Loop) dispatch(ctx context.Context, task Task) {
	l.pending++
	ctx = context.WithoutCancel(ctx)
	go func() {
		c := task(ctx)
		select {
		case l.completions <- c:
		case <-l.done:
		}
	}()
}

func (l *Loop) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(l.out, format+"\n", args...); err != nil {
		l.log.Warn().Err(err).Msg("write status failed")
	}
}
