package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewLogger_FileOutputAndLevel(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scanner.log")
	log, closer, err := NewLogger(LogConfig{Level: "WARN", Output: p})
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("hidden")
	log.Warn().Str("hostname", "pi-1").Msg("shown")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"hostname":"pi-1"`) {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	if _, _, err := NewLogger(LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(zerolog.New(&buf), DefaultGormLoggerConfig())
	query := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record-not-found should be ignored, got %q", buf.String())
	}

	l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "SELECT 1") {
		t.Fatalf("expected error query log, got %q", buf.String())
	}

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	if !strings.Contains(buf.String(), `"slow":true`) {
		t.Fatalf("expected slow query warning, got %q", buf.String())
	}

	buf.Reset()
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should log nothing, got %q", buf.String())
	}
}
