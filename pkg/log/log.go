package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_default *zap.SugaredLogger
)

// configure a default logger
func init() {
	ConfigureLogger(Config{DisableStacktrace: true})
}

type Config struct {
	Level             string   `mapstructure:"level"`
	Development       bool     `mapstructure:"development"`
	DisableStacktrace bool     `mapstructure:"disableStacktrace"`
	Encoding          string   `mapstructure:"encoding"`
	OutputPaths       []string `mapstructure:"outputPaths"`
	ErrorOutputPaths  []string `mapstructure:"errorOutputPaths"`
}

func (c *Config) applyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Encoding == "" {
		c.Encoding = "console"
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stdout"}
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = []string{"stderr"}
	}
}

func (c *Config) encoderConfig() zapcore.EncoderConfig {
	if c.Encoding == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return ec
	}
	return zap.NewDevelopmentEncoderConfig()
}

// ConfigureLogger configures a global zap logger instance.
func ConfigureLogger(c Config) *zap.SugaredLogger {
	c.applyDefaults()
	lvl := zapcore.InfoLevel
	_ = lvl.UnmarshalText([]byte(c.Level))
	logger, err := zap.Config{
		Level:       zap.NewAtomicLevelAt(lvl),
		Development: c.Development,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:          c.Encoding,
		EncoderConfig:     c.encoderConfig(),
		DisableStacktrace: c.DisableStacktrace,
		OutputPaths:       c.OutputPaths,
		ErrorOutputPaths:  c.ErrorOutputPaths,
	}.Build()
	if err != nil {
		panic(err)
	}

	_default = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
	return _default
}

// Default returns the default global logger.
func Default() *zap.SugaredLogger {
	return _default
}

// Named returns a child of the default logger with the given name segment.
func Named(name string) *zap.SugaredLogger {
	return Default().Named(name)
}

// Debug uses fmt.Sprint to construct and log a message.
func Debug(args ...interface{}) {
	Default().Debug(args...)
}

// Info uses fmt.Sprint to construct and log a message.
func Info(args ...interface{}) {
	Default().Info(args...)
}

// Warn uses fmt.Sprint to construct and log a message.
func Warn(args ...interface{}) {
	Default().Warn(args...)
}

// Error uses fmt.Sprint to construct and log a message.
func Error(args ...interface{}) {
	Default().Error(args...)
}

// Fatal uses fmt.Sprint to construct and log a message, then calls os.Exit.
func Fatal(args ...interface{}) {
	Default().Fatal(args...)
}

// Debugw logs a message with some additional context. The variadic key-value
// pairs are treated as they are in With.
func Debugw(msg string, keysAndValues ...interface{}) {
	Default().Debugw(msg, keysAndValues...)
}

// Infow logs a message with some additional context.
func Infow(msg string, keysAndValues ...interface{}) {
	Default().Infow(msg, keysAndValues...)
}

// Warnw logs a message with some additional context.
func Warnw(msg string, keysAndValues ...interface{}) {
	Default().Warnw(msg, keysAndValues...)
}

// Errorw logs a message with some additional context.
func Errorw(msg string, keysAndValues ...interface{}) {
	Default().Errorw(msg, keysAndValues...)
}

// Fatalw logs a message with some additional context, then calls os.Exit.
func Fatalw(msg string, keysAndValues ...interface{}) {
	Default().Fatalw(msg, keysAndValues...)
}

// With adds a variadic number of fields to the logging context.
func With(args ...interface{}) *zap.SugaredLogger {
	return Default().With(args...)
}
