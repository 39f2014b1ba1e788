package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field constructors re-exported so callers need not import zap
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Uint32   = zap.Uint32
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Error    = zap.Error
)

// Logger is a wrapper around zap.Logger
type Logger struct {
	*zap.Logger
}

// Config represents logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console

	// File, when set, receives a copy of every entry through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var levelColors = map[zapcore.Level]string{
	zapcore.ErrorLevel: "\033[1;31m",
	zapcore.WarnLevel:  "\033[1;33m",
	zapcore.InfoLevel:  "\033[1;36m",
	zapcore.DebugLevel: "\033[1;37m",
}

// coloredLevelEncoder colors the level on console output
func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color, ok := levelColors[level]
	if !ok {
		enc.AppendString(level.String())
		return
	}
	enc.AppendString(color + level.String() + "\033[0m")
}

// componentNameEncoder prints the last name segment in a fixed 15 column field
func componentNameEncoder(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
	if i := strings.LastIndexByte(loggerName, '.'); i >= 0 {
		loggerName = loggerName[i+1:]
	}
	enc.AppendString(fmt.Sprintf("%-15.15s", loggerName))
}

func baseEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// New creates a new logger with the given configuration
func New(config Config) (*Logger, error) {
	level, err := parseLogLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := baseEncoderConfig()
	if config.Format == "console" {
		encoderConfig.EncodeLevel = coloredLevelEncoder
		encoderConfig.EncodeName = componentNameEncoder
	}

	debug := level == zapcore.DebugLevel
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if !debug {
		encoderConfig.CallerKey = zapcore.OmitKey
	}

	var encoder zapcore.Encoder
	switch config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", config.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}

	// The file sink is always JSON so rotated files stay machine readable.
	if config.File != "" {
		fileEncoderConfig := baseEncoderConfig()
		fileEncoderConfig.CallerKey = encoderConfig.CallerKey
		fileEncoderConfig.EncodeCaller = encoderConfig.EncodeCaller
		rotator := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig),
			zapcore.AddSync(rotator),
			level,
		))
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if debug {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &Logger{Logger: zap.New(zapcore.NewTee(cores...), opts...)}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

func parseLogLevel(level string) (zapcore.Level, error) {
	l, ok := levels[level]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
	return l, nil
}

// With returns a logger with the given fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a logger with the given name
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// WithCallsign returns a logger with the callsign field
func (l *Logger) WithCallsign(callsign string) *Logger {
	return l.With(zap.String("callsign", callsign))
}

// WithSession returns a logger with the connection session ID field
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With(zap.String("session_id", sessionID))
}
