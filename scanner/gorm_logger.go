package scanner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        500 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
}

// GormLogger routes gorm's query log into zerolog.
type GormLogger struct {
	log                  zerolog.Logger
	level                gormlogger.LogLevel
	slowThreshold        time.Duration
	ignoreRecordNotFound bool
}

func NewGormLogger(log zerolog.Logger, cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{
		log:                  log.With().Str("component", "gorm").Logger(),
		level:                cfg.Level,
		slowThreshold:        cfg.SlowThreshold,
		ignoreRecordNotFound: cfg.IgnoreRecordNotFound,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Info {
		return
	}
	l.log.Info().Interface("data", data).Msg(msg)
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Warn {
		return
	}
	l.log.Warn().Interface("data", data).Msg(msg)
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Error {
		return
	}
	l.log.Error().Interface("data", data).Msg(msg)
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && (!errors.Is(err, gormlogger.ErrRecordNotFound) || !l.ignoreRecordNotFound):
		l.logQuery(l.log.Error().Err(err), fc, elapsed)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.logQuery(l.log.Warn().Bool("slow", true), fc, elapsed)
	case l.level >= gormlogger.Info:
		l.logQuery(l.log.Debug(), fc, elapsed)
	}
}

// ParamsFilter drops bound values so job numbers and passwords stay out of query logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) logQuery(ev *zerolog.Event, fc func() (string, int64), elapsed time.Duration) {
	sql, rows := fc()
	ev = ev.Str("sql", strings.TrimSpace(sql)).Dur("elapsed", elapsed)
	if rows >= 0 {
		ev = ev.Int64("rows", rows)
	}
	ev.Msg("gorm query")
}

var _ gormlogger.Interface = (*GormLogger)(nil)
