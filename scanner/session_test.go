package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingFeedback struct {
	mu    sync.Mutex
	kinds []FeedbackKind
}

func (f *recordingFeedback) Play(kind FeedbackKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

func (f *recordingFeedback) Kinds() []FeedbackKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FeedbackKind(nil), f.kinds...)
}

type stubResolver struct {
	res Resolution
}

func (r *stubResolver) Resolve(context.Context, string) Resolution { return r.res }

type submitCall struct {
	job, hostname, location string
}

type stubSubmitter struct {
	mu    sync.Mutex
	calls []submitCall
	err   error
}

func (s *stubSubmitter) Submit(_ context.Context, job, hostname, location string) (Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, submitCall{job, hostname, location})
	if s.err != nil {
		return Ack{}, s.err
	}
	return Ack{ID: "id", JobNumber: job, ScannedAt: time.Date(2026, 10, 17, 9, 15, 30, 0, time.Local)}, nil
}

func newTestSession(res Resolution, sub *stubSubmitter, fb *recordingFeedback) *Session {
	return NewSession("pi-1", &stubResolver{res: res}, sub, fb, nil, zerolog.Nop())
}

func TestSession_InitialState(t *testing.T) {
	s := newTestSession(Resolution{}, &stubSubmitter{}, &recordingFeedback{})
	st := s.State()
	if st.Location != LoadingLocation || st.StatusLine != ReadyLine || st.Status != StatusLoading {
		t.Fatalf("unexpected initial state %+v", st)
	}
}

func TestSession_EmptyInputIgnored(t *testing.T) {
	fb := &recordingFeedback{}
	s := newTestSession(Resolution{}, &stubSubmitter{}, fb)
	out, task := s.Submit("   \t")
	if !out.Ignored || task != nil {
		t.Fatalf("expected ignored outcome without task, got %+v", out)
	}
	if len(fb.Kinds()) != 0 {
		t.Fatalf("expected no feedback for empty input")
	}
}

func TestSession_RejectionPlaysNegative(t *testing.T) {
	fb := &recordingFeedback{}
	sub := &stubSubmitter{}
	s := newTestSession(Resolution{}, sub, fb)

	out, task := s.Submit("12345")
	if task != nil || out.Accepted || out.Rejection == nil {
		t.Fatalf("expected rejection, got %+v", out)
	}
	if out.Rejection.Reason != ReasonBadPrefix {
		t.Fatalf("unexpected reason %v", out.Rejection.Reason)
	}
	if kinds := fb.Kinds(); len(kinds) != 1 || kinds[0] != FeedbackNegative {
		t.Fatalf("expected negative feedback, got %v", kinds)
	}
	if s.State().LastRejection == nil {
		t.Fatalf("expected LastRejection set")
	}
	if len(sub.calls) != 0 {
		t.Fatalf("rejected input must not reach the store")
	}
}

func TestSession_AcceptIsImmediateAndTaskCapturesLocation(t *testing.T) {
	fb := &recordingFeedback{}
	sub := &stubSubmitter{}
	s := newTestSession(Resolution{Location: "Dock 4", Status: StatusReady}, sub, fb)
	s.Apply(s.Refresh()(context.Background()))

	out, task := s.Submit(" 56789-1R ")
	if !out.Accepted || out.JobNumber != "56789-1R" || task == nil {
		t.Fatalf("expected accepted outcome with task, got %+v", out)
	}
	st := s.State()
	if st.LastAccepted != "56789-1R" || st.StatusLine != "Scanning: 56789-1R" {
		t.Fatalf("expected immediate display, got %+v", st)
	}
	if kinds := fb.Kinds(); len(kinds) != 1 || kinds[0] != FeedbackPositive {
		t.Fatalf("expected positive feedback, got %v", kinds)
	}

	// A location change after dispatch does not affect the pending task.
	s.Apply(LocationResolved{Resolution: Resolution{Location: "Paint Shop", Status: StatusReady}})
	s.Apply(task(context.Background()))

	if len(sub.calls) != 1 || sub.calls[0] != (submitCall{"56789-1R", "pi-1", "Dock 4"}) {
		t.Fatalf("unexpected submit calls %+v", sub.calls)
	}
	if got := s.State().StatusLine; got != "[09:15:30] 56789-1R → OK" {
		t.Fatalf("unexpected status line %q", got)
	}
}

func TestSession_SubmitErrorShown(t *testing.T) {
	sub := &stubSubmitter{err: &StoreError{Op: "insert scan", Kind: StoreErrorConnection, Err: errors.New("refused")}}
	s := newTestSession(Resolution{Location: "Dock 4", Status: StatusReady}, sub, &recordingFeedback{})

	_, task := s.Submit("56789")
	s.Apply(task(context.Background()))
	st := s.State()
	if !strings.HasPrefix(st.StatusLine, "[ERROR] database error") || st.StatusLevel != LevelError {
		t.Fatalf("unexpected error status %+v", st)
	}
	if st.LastAccepted != "56789" {
		t.Fatalf("accepted job should remain displayed, got %q", st.LastAccepted)
	}
}

func TestSession_ResolutionStatuses(t *testing.T) {
	s := newTestSession(Resolution{}, &stubSubmitter{}, &recordingFeedback{})

	s.Apply(LocationResolved{Resolution: Resolution{Location: PlaceholderLocation("pi-1"), Status: StatusUnregistered}})
	st := s.State()
	if st.StatusLevel != LevelWarn || !strings.Contains(st.StatusLine, "not registered") {
		t.Fatalf("expected unregistered warning, got %+v", st)
	}

	s.Apply(LocationResolved{Resolution: Resolution{Location: "Dock 4", Status: StatusReady}})
	st = s.State()
	if st.StatusLine != ReadyLine || st.StatusDetail != "" || st.Location != "Dock 4" {
		t.Fatalf("expected ready, got %+v", st)
	}
}

func TestSession_StoreErrorReplacesLocation(t *testing.T) {
	storeErr := Resolution{
		Location: ErrorLocation("pi-1"),
		Status:   StatusStoreError,
		Err:      &StoreError{Op: "resolve location", Kind: StoreErrorConnection, Err: errors.New("down")},
	}

	sub := &stubSubmitter{}
	s := newTestSession(Resolution{}, sub, &recordingFeedback{})
	s.Apply(LocationResolved{Resolution: Resolution{Location: "Dock 4", Status: StatusReady}})
	s.Apply(LocationResolved{Resolution: storeErr})
	st := s.State()
	if st.Location != "ERROR: pi-1" {
		t.Fatalf("expected error location after failed refresh, got %q", st.Location)
	}
	if st.Status != StatusStoreError || st.StatusLevel != LevelError {
		t.Fatalf("expected store error status, got %+v", st)
	}

	_, task := s.Submit("56789")
	s.Apply(task(context.Background()))
	if len(sub.calls) != 1 || sub.calls[0].location != "ERROR: pi-1" {
		t.Fatalf("expected scan tagged with error location, got %+v", sub.calls)
	}

	s.Apply(LocationResolved{Resolution: Resolution{Location: "Dock 4", Status: StatusReady}})
	if got := s.State().Location; got != "Dock 4" {
		t.Fatalf("expected location restored on next refresh, got %q", got)
	}
}
