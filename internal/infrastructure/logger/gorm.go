package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// expectedErrors are statement failures the repositories turn into client
// errors (404, 400, 409). They are not SQL faults.
var expectedErrors = []error{
	gorm.ErrRecordNotFound,
	gorm.ErrDuplicatedKey,
	gorm.ErrForeignKeyViolated,
}

// SQLLogger routes gorm's statement log into zap, tagged with the request
// that issued the statement.
type SQLLogger struct {
	base     *zap.Logger
	level    gormlogger.LogLevel
	slow     time.Duration
	expected []error
}

// SQLLoggerOption configures a SQLLogger
type SQLLoggerOption func(*SQLLogger)

// WithSlowThreshold sets the slow statement threshold; zero disables it
func WithSlowThreshold(threshold time.Duration) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.slow = threshold
	}
}

// WithExpectedErrors replaces the errors logged at debug instead of error
func WithExpectedErrors(errs ...error) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.expected = errs
	}
}

// NewSQLLogger creates a gorm logger writing to zapLogger
func NewSQLLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...SQLLoggerOption) *SQLLogger {
	l := &SQLLogger{
		base:     zapLogger.Named("sql"),
		level:    level,
		slow:     200 * time.Millisecond,
		expected: expectedErrors,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.with(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.with(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.with(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement: failures at error, slow statements at
// warn, everything else at debug when the level is Info.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	statement := func() []zap.Field {
		sql, rows := fc()
		fields := []zap.Field{
			zap.String("sql", sql),
			zap.Duration("elapsed", elapsed),
			zap.String("caller", utils.FileWithLineNum()),
		}
		if rows >= 0 {
			fields = append(fields, zap.Int64("rows", rows))
		}
		return fields
	}

	log := l.with(ctx)
	switch {
	case err != nil && l.isExpected(err):
		if l.level >= gormlogger.Info {
			log.Debug("SQL rejected", append(statement(), zap.Error(err))...)
		}
	case err != nil && l.level >= gormlogger.Error:
		log.Error("SQL failed", append(statement(), zap.Error(err))...)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		log.Warn("Slow SQL", append(statement(), zap.Duration("threshold", l.slow))...)
	case l.level >= gormlogger.Info:
		log.Debug("SQL", statement()...)
	}
}

func (l *SQLLogger) isExpected(err error) bool {
	for _, e := range l.expected {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// with adds the request id and login carried by ctx
func (l *SQLLogger) with(ctx context.Context) *zap.Logger {
	log := l.base
	if id := RequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}
	if login := Login(ctx); login != "" {
		log = log.With(zap.String("login", login))
	}
	return log
}

// MapGormLogLevel maps the application log level to a gorm log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
