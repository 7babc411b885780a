package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver is the part of LocationResolver a Session depends on.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) Resolution
}

// Submitter is the part of EventSubmitter a Session depends on.
type Submitter interface {
	Submit(ctx context.Context, jobNumber, hostname, location string) (Ack, error)
}

type StatusLevel int

const (
	LevelInfo StatusLevel = iota
	LevelWarn
	LevelError
)

func (l StatusLevel) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

const ReadyLine = "Ready"

// State is what a display renders. It is a value; callers get a copy.
type State struct {
	Location string
	Status   LocationStatus
	// StatusDetail is the advisory for the current location status, empty when ready.
	StatusDetail  string
	LastRejection *Rejection
	LastAccepted  string
	StatusLine    string
	StatusLevel   StatusLevel
}

// ScanOutcome is the synchronous result of one operator entry.
type ScanOutcome struct {
	Ignored   bool
	Accepted  bool
	JobNumber string
	Rejection *Rejection
}

// Completion is the result of a Task, handed back to Session.Apply.
type Completion interface {
	completion()
}

// LocationResolved carries the result of a refresh task.
type LocationResolved struct {
	Resolution Resolution
}

// ScanSubmitted carries the result of a submission task.
type ScanSubmitted struct {
	JobNumber string
	Ack       Ack
	Err       error
}

func (LocationResolved) completion() {}
func (ScanSubmitted) completion()    {}

// Task is blocking store work. It runs off the foreground and must not
// touch Session state; its Completion is applied later.
type Task func(ctx context.Context) Completion

// Session owns the terminal's display state. All methods must be called
// from one foreground goroutine; only Tasks run elsewhere.
type Session struct {
	hostname  string
	resolver  Resolver
	submitter Submitter
	feedback  Feedback
	metrics   *Metrics
	log       zerolog.Logger

	state State
}

func NewSession(hostname string, resolver Resolver, submitter Submitter, feedback Feedback, metrics *Metrics, log zerolog.Logger) *Session {
	if feedback == nil {
		feedback = NopFeedback{}
	}
	return &Session{
		hostname:  hostname,
		resolver:  resolver,
		submitter: submitter,
		feedback:  feedback,
		metrics:   metrics,
		log:       log.With().Str("component", "session").Logger(),
		state: State{
			Location:   LoadingLocation,
			Status:     StatusLoading,
			StatusLine: ReadyLine,
		},
	}
}

func (s *Session) Hostname() string { return s.hostname }

func (s *Session) State() State { return s.state }

// Submit validates input and, when it is a job number, returns the Task
// that records it. Feedback and LastAccepted are updated before the store
// is involved.
func (s *Session) Submit(input string) (ScanOutcome, Task) {
	job := strings.TrimSpace(input)
	if job == "" {
		return ScanOutcome{Ignored: true}, nil
	}

	err := ValidateJobNumber(job)
	s.metrics.ObserveScan(err)
	if err != nil {
		rej := err.(*Rejection)
		s.feedback.Play(FeedbackNegative)
		s.state.LastRejection = rej
		s.log.Debug().Str("input", job).Stringer("reason", rej.Reason).Msg("scan rejected")
		return ScanOutcome{JobNumber: job, Rejection: rej}, nil
	}

	s.feedback.Play(FeedbackPositive)
	s.state.LastRejection = nil
	s.state.LastAccepted = job
	s.state.StatusLine = "Scanning: " + job
	s.state.StatusLevel = LevelInfo

	hostname, location := s.hostname, s.state.Location
	task := func(ctx context.Context) Completion {
		ack, err := s.submitter.Submit(ctx, job, hostname, location)
		return ScanSubmitted{JobNumber: job, Ack: ack, Err: err}
	}
	return ScanOutcome{Accepted: true, JobNumber: job}, task
}

// Refresh returns a Task that re-reads this terminal's location.
func (s *Session) Refresh() Task {
	hostname := s.hostname
	return func(ctx context.Context) Completion {
		return LocationResolved{Resolution: s.resolver.Resolve(ctx, hostname)}
	}
}

func (s *Session) Apply(c Completion) {
	switch c := c.(type) {
	case LocationResolved:
		s.applyResolution(c.Resolution)
	case ScanSubmitted:
		if c.Err != nil {
			s.state.StatusLine = "[ERROR] " + c.Err.Error()
			s.state.StatusLevel = LevelError
			return
		}
		s.state.StatusLine = fmt.Sprintf("[%s] %s → OK", c.Ack.ScannedAt.Local().Format("15:04:05"), c.JobNumber)
		s.state.StatusLevel = LevelInfo
	}
}

func (s *Session) applyResolution(res Resolution) {
	s.state.Location = res.Location
	s.state.Status = res.Status
	s.state.StatusDetail = res.Warning()

	switch res.Status {
	case StatusStoreError:
		s.state.StatusLine = "[ERROR] " + s.state.StatusDetail
		s.state.StatusLevel = LevelError
	case StatusReady:
		s.state.StatusLine = ReadyLine
		s.state.StatusLevel = LevelInfo
	default:
		s.state.StatusLine = s.state.StatusDetail
		s.state.StatusLevel = LevelWarn
	}
}
