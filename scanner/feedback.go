package scanner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type FeedbackKind int

const (
	FeedbackPositive FeedbackKind = iota + 1
	FeedbackNegative
)

func (k FeedbackKind) String() string {
	switch k {
	case FeedbackPositive:
		return "positive"
	case FeedbackNegative:
		return "negative"
	default:
		return "none"
	}
}

// Feedback is the audio side effect of a scan. Play returns immediately
// and never reports failure to the caller.
type Feedback interface {
	Play(kind FeedbackKind)
}

type NopFeedback struct{}

func (NopFeedback) Play(FeedbackKind) {}

const (
	mp3Player        = "mpg123"
	soundPlayTimeout = 5 * time.Second
)

// SoundPlayer plays WAV files through aplay (or the configured player) and
// falls back to mpg123 for MP3 files.
type SoundPlayer struct {
	cfg SoundConfig
	log zerolog.Logger
	run func(ctx context.Context, name string, args ...string) error
}

// NewFeedback probes for the configured player and returns a SoundPlayer,
// or NopFeedback when sound is disabled or the player is not installed.
func NewFeedback(cfg SoundConfig, log zerolog.Logger) Feedback {
	log = log.With().Str("component", "sound").Logger()
	if !cfg.IsEnabled() {
		log.Info().Msg("sound disabled by config")
		return NopFeedback{}
	}
	if _, err := exec.LookPath(cfg.Player); err != nil {
		log.Warn().Err(err).Str("player", cfg.Player).Msg("player not found, sound disabled")
		return NopFeedback{}
	}
	log.Info().Str("player", cfg.Player).Msg("sound enabled")
	return &SoundPlayer{cfg: cfg, log: log, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *SoundPlayer) Play(kind FeedbackKind) {
	go p.play(kind)
}

func (p *SoundPlayer) play(kind FeedbackKind) {
	file := p.soundFile(kind)
	if file == "" {
		p.log.Error().Stringer("kind", kind).Msg("no sound file found")
		return
	}

	player := p.cfg.Player
	if strings.EqualFold(filepath.Ext(file), ".mp3") {
		player = mp3Player
	}

	ctx, cancel := context.WithTimeout(context.Background(), soundPlayTimeout)
	defer cancel()
	if err := p.run(ctx, player, "-q", file); err != nil {
		p.log.Warn().Err(err).Str("file", file).Msg("sound playback failed")
		return
	}
	p.log.Debug().Str("file", file).Msg("sound played")
}

// soundFile picks the explicit file for kind, else <dir>/<kind>.wav, else
// <dir>/<kind>.mp3. Returns "" when none exists.
func (p *SoundPlayer) soundFile(kind FeedbackKind) string {
	var explicit string
	switch kind {
	case FeedbackPositive:
		explicit = p.cfg.Sounds.Positive
	case FeedbackNegative:
		explicit = p.cfg.Sounds.Negative
	}
	if explicit != "" {
		if fileExists(explicit) {
			return explicit
		}
		return ""
	}
	if p.cfg.Sounds.Dir == "" {
		return ""
	}
	for _, ext := range []string{".wav", ".mp3"} {
		candidate := filepath.Join(p.cfg.Sounds.Dir, kind.String()+ext)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
