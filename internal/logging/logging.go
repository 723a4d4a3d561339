// Package logging provides the process-wide structured logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"reflect"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

type ctxKey struct{}

// Options configures the logger on first use.
type Options struct {
	Level string // debug, info, warn, error
	File  string // rotated log file, stderr only when empty
}

// Init configures the logger. Only the first call has an effect.
func Init(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        opts.File != "",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				caller := callerOf(f)
				s := strings.Split(caller.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(caller.File), caller.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}
		if opts.File != "" && os.Getenv("APP_ENV") != "test" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})
	return logger
}

// wrapperPrefixes are the packages between a log call site and the formatter.
var wrapperPrefixes = []string{
	reflect.TypeOf(ctxKey{}).PkgPath() + ".",
	"github.com/sirupsen/logrus.",
	"github.com/antonfisher/nested-logrus-formatter.",
}

func isWrapper(function string) bool {
	for _, prefix := range wrapperPrefixes {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}

// callerOf resolves the frame logrus reported to the first frame outside the
// Debug/Info/Warn/Error helpers. logrus only skips its own frames.
func callerOf(f *runtime.Frame) runtime.Frame {
	if !isWrapper(f.Function) {
		return *f
	}
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !isWrapper(frame.Function) {
			return frame
		}
		if !more {
			return *f
		}
	}
}

// Logger returns the process logger, initialising it with defaults if needed.
func Logger() *logrus.Logger {
	return Init(Options{Level: "info"})
}

func Debug(fields Fields, msg string) {
	Logger().WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	Logger().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	Logger().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	Logger().WithFields(fields).Error(msg)
}

// ContextWithRequestID stores a request ID for WithRequestID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// WithRequestID returns an entry tagged with the request ID stored in ctx.
func WithRequestID(ctx context.Context) *logrus.Entry {
	requestID := "unknown"
	if ctx != nil {
		if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
			requestID = id
		}
	}
	return Logger().WithField("request_id", requestID)
}
