package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = newSugar(os.Stderr)
)

// newSugar builds a console logger writing to w at the shared atomic level.
func newSugar(w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "level"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLevel sets the global log level. Unknown values fall back to info.
func SetLevel(levelStr string) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	level.SetLevel(lvl)
}

// GetLevel returns the current level name.
func GetLevel() string {
	return level.Level().String()
}

// SetOutput sets the output destination for the logger
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	logger = newSugar(w)
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a message at DebugLevel
func Debug(v ...interface{}) {
	current().Debug(fmt.Sprint(v...))
}

// Debugf logs a formatted message at DebugLevel
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Info logs a message at InfoLevel
func Info(v ...interface{}) {
	current().Info(fmt.Sprint(v...))
}

// Infof logs a formatted message at InfoLevel
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warn logs a message at WarnLevel
func Warn(v ...interface{}) {
	current().Warn(fmt.Sprint(v...))
}

// Warnf logs a formatted message at WarnLevel
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Error logs a message at ErrorLevel
func Error(v ...interface{}) {
	current().Error(fmt.Sprint(v...))
}

// Errorf logs a formatted message at ErrorLevel
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatal logs a message at FatalLevel and exits
func Fatal(v ...interface{}) {
	current().Fatal(fmt.Sprint(v...))
}

// Fatalf logs a formatted message at FatalLevel and exits
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return current().Sync()
}
