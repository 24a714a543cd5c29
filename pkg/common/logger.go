package common

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "tentos.log"

var (
	// background loops log while tests swap the root logger
	root     atomic.Pointer[zap.Logger]
	rootOnce sync.Once
)

func rootLogger() *zap.Logger {
	rootOnce.Do(func() {
		if root.Load() == nil {
			root.Store(newRootLogger())
		}
	})
	return root.Load()
}

func GetLogger() *zap.Logger {
	return rootLogger().Named("default")
}

// GetLoggerWith returns a named child of the root logger. Call it where the
// log line is written rather than caching the result, so test loggers apply.
func GetLoggerWith(name string, fields ...zap.Field) *zap.Logger {
	return rootLogger().Named(name).With(fields...)
}

func logsDir() string {
	if dir, found := os.LookupEnv(EnvKeyTentOSLogDir); found {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting current directory: %v", err)
	}
	return filepath.Join(wd, "logs")
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func newRootLogger() *zap.Logger {
	dir := logsDir()
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		log.Fatalf("Error find/create logs directory: %v", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotating), zap.InfoLevel)

	if !IsProduction() {
		console := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stdout),
			zap.DebugLevel,
		)
		core = zapcore.NewTee(core, console)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// SetTestCaptureLogger routes every logger to buf as JSON lines.
func SetTestCaptureLogger(buf *bytes.Buffer, level zapcore.Level) {
	rootOnce.Do(func() {})
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(&lockedBuffer{buf: buf}), level)
	root.Store(zap.New(core))
}

func SetTestLoggerNop() {
	rootOnce.Do(func() {})
	root.Store(zap.NewNop())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}
