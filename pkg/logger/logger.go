package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance
	Log *zap.Logger
	// logConfig keeps the settings for reinitialization
	logConfig *LogConfig
	// fileWriter is the current file writer
	fileWriter *lumberjack.Logger
	// ctx is the logger context
	ctx context.Context
	// cancel stops the rotation goroutine
	cancel context.CancelFunc
)

// LogConfig holds the logger settings
type LogConfig struct {
	Level      string
	Output     string
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// InitLogger initializes the zap logger
func InitLogger(cfg LogConfig) error {
	logConfig = &cfg

	ctx, cancel = context.WithCancel(context.Background())

	if err := initLoggerCore(cfg); err != nil {
		return err
	}

	// Rotate the log file at midnight when file output is enabled
	if cfg.Output == "file" || cfg.Output == "both" {
		go dailyRotation()
	}

	return nil
}

func initLoggerCore(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	var core zapcore.Core

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	switch cfg.Output {
	case "console":
		core = zapcore.NewCore(
			consoleEncoder,
			zapcore.AddSync(os.Stdout),
			level,
		)
	case "file":
		fileWriter = getFileWriter(cfg)
		core = zapcore.NewCore(
			fileEncoder,
			zapcore.AddSync(fileWriter),
			level,
		)
	case "both":
		fileWriter = getFileWriter(cfg)
		core = zapcore.NewTee(
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
			zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), level),
		)
	default:
		core = zapcore.NewCore(
			consoleEncoder,
			zapcore.AddSync(os.Stdout),
			level,
		)
	}

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return nil
}

// getFileWriter creates a date-stamped log file writer
func getFileWriter(cfg LogConfig) *lumberjack.Logger {
	logDir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
	}

	// e.g. logs/camwatch.log -> logs/camwatch-2026-08-29.log
	dailyFilePath := getDailyFilePath(cfg.FilePath)

	return &lumberjack.Logger{
		Filename:   dailyFilePath,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		LocalTime:  true,
		Compress:   true,
	}
}

func getDailyFilePath(basePath string) string {
	ext := filepath.Ext(basePath)
	nameWithoutExt := strings.TrimSuffix(basePath, ext)

	today := time.Now().Format("2006-01-02")

	return fmt.Sprintf("%s-%s%s", nameWithoutExt, today, ext)
}

// dailyRotation reinitializes the logger at local midnight so each day
// gets its own file
func dailyRotation() {
	for {
		now := time.Now()
		tomorrow := now.Add(24 * time.Hour)
		midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, now.Location())
		duration := midnight.Sub(now)

		select {
		case <-time.After(duration):
			if logConfig != nil {
				if Log != nil {
					_ = Log.Sync()
				}
				if fileWriter != nil {
					_ = fileWriter.Close()
				}
				_ = initLoggerCore(*logConfig)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close flushes and shuts the logger down
func Close() {
	if cancel != nil {
		cancel()
	}
	if Log != nil {
		_ = Log.Sync()
	}
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
}

// Sync flushes buffered log entries
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func Info(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Info(msg, fields...)
	}
}

func Debug(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Debug(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Error(msg, fields...)
	}
}

func Fatal(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Fatal(msg, fields...)
	}
}
