package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = time.Second

const maxSQLLogLength = 200

// gormLogger routes gorm output into zerolog. Queries are logged at debug level,
// slow ones at warn and failures at error.
type gormLogger struct {
	logger zerolog.Logger
	level  gormlogger.LogLevel
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{logger: l.logger, level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var event *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		event = l.logger.Error().Err(err)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		event = l.logger.Warn()
	case l.level >= gormlogger.Info:
		event = l.logger.Debug()
	default:
		return
	}

	sql, rows := fc()
	if len(sql) > maxSQLLogLength {
		sql = sql[:maxSQLLogLength] + "... (truncated)"
	}

	event.Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("database query")
}
