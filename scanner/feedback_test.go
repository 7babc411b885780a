package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordedCommand struct {
	name string
	args []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []recordedCommand
	err   error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCommand{name: name, args: append([]string(nil), args...)})
	return f.err
}

func (f *fakeRunner) Calls() []recordedCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCommand, len(f.calls))
	copy(out, f.calls)
	return out
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSoundPlayer_PrefersWavThenMp3(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "positive.wav"))
	touch(t, filepath.Join(dir, "positive.mp3"))
	touch(t, filepath.Join(dir, "negative.mp3"))

	runner := &fakeRunner{}
	p := &SoundPlayer{
		cfg: SoundConfig{Player: "aplay", Sounds: SoundFiles{Dir: dir}},
		log: zerolog.Nop(),
		run: runner.run,
	}
	p.play(FeedbackPositive)
	p.play(FeedbackNegative)

	calls := runner.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(calls))
	}
	if calls[0].name != "aplay" || calls[0].args[1] != filepath.Join(dir, "positive.wav") {
		t.Fatalf("unexpected positive command %+v", calls[0])
	}
	if calls[1].name != "mpg123" || calls[1].args[1] != filepath.Join(dir, "negative.mp3") {
		t.Fatalf("unexpected negative command %+v", calls[1])
	}
	if calls[0].args[0] != "-q" {
		t.Fatalf("expected quiet flag, got %v", calls[0].args)
	}
}

func TestSoundPlayer_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	ding := filepath.Join(dir, "ding.wav")
	touch(t, ding)

	runner := &fakeRunner{}
	p := &SoundPlayer{
		cfg: SoundConfig{Player: "aplay", Sounds: SoundFiles{Positive: ding, Negative: filepath.Join(dir, "missing.wav")}},
		log: zerolog.Nop(),
		run: runner.run,
	}
	p.play(FeedbackPositive)
	p.play(FeedbackNegative)

	calls := runner.Calls()
	if len(calls) != 1 || calls[0].args[1] != ding {
		t.Fatalf("expected only the existing explicit file to play, got %+v", calls)
	}
}

func TestSoundPlayer_FailuresAreSwallowed(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "negative.wav"))
	runner := &fakeRunner{err: errors.New("no soundcard")}
	p := &SoundPlayer{
		cfg: SoundConfig{Player: "aplay", Sounds: SoundFiles{Dir: dir}},
		log: zerolog.Nop(),
		run: runner.run,
	}
	// Must not panic or block.
	p.play(FeedbackNegative)
	p.play(FeedbackPositive)
	if len(runner.Calls()) != 1 {
		t.Fatalf("expected one attempted command")
	}
}

func TestNewFeedback_DisabledOrMissingPlayer(t *testing.T) {
	off := false
	if _, ok := NewFeedback(SoundConfig{Enabled: &off, Player: "aplay"}, zerolog.Nop()).(NopFeedback); !ok {
		t.Fatalf("expected NopFeedback when disabled")
	}
	if _, ok := NewFeedback(SoundConfig{Player: "definitely-not-a-player-binary"}, zerolog.Nop()).(NopFeedback); !ok {
		t.Fatalf("expected NopFeedback when player is missing")
	}
}
