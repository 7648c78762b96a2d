// Package logging builds [*zap.Logger] instances for command-line tools.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/jsonhelper"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger returns a new [*zap.Logger] with the given preset and log level.
//
// The available presets are:
//
//   - "console" (default): Reasonable defaults for production console environments.
//   - "console-nocolor": Same as "console", but without color.
//   - "console-notime": Same as "console", but without timestamps.
//   - "systemd": Same as "console", but without color and timestamps.
//   - "production": Zap's built-in production preset.
//   - "development": Zap's built-in development preset.
//
// Any other preset is treated as a path to a JSON configuration file.
// The log level only applies to the console presets.
func NewZapLogger(preset string, level zapcore.Level) (*zap.Logger, error) {
	switch preset {
	case "console", "":
		return NewProductionConsoleZapLogger(level, false, false), nil
	case "console-nocolor":
		return NewProductionConsoleZapLogger(level, true, false), nil
	case "console-notime":
		return NewProductionConsoleZapLogger(level, false, true), nil
	case "systemd":
		return NewProductionConsoleZapLogger(level, true, true), nil
	}

	var cfg zap.Config
	switch preset {
	case "production":
		cfg = zap.NewProductionConfig()
	case "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		if err := jsonhelper.OpenAndDecodeDisallowUnknownFields(preset, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load zap logger config from file %q: %w", preset, err)
		}
	}
	return cfg.Build()
}

// NewProductionConsoleZapLogger creates a new [*zap.Logger] that writes to stderr
// with the encoder configuration from [NewProductionConsoleEncoderConfig].
func NewProductionConsoleZapLogger(level zapcore.Level, noColor, noTime bool) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(NewProductionConsoleEncoderConfig(noColor, noTime))
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	if noTime {
		// The sampler needs a real clock, so timestamps are dropped by a fake one.
		return zap.New(core, zap.WithClock(fakeClock{}))
	}
	return zap.New(core)
}

// NewProductionConsoleEncoderConfig returns an opinionated [zapcore.EncoderConfig] for production console environments.
func NewProductionConsoleEncoderConfig(noColor, noTime bool) zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:          "T",
		LevelKey:         "L",
		NameKey:          "N",
		CallerKey:        "C",
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "M",
		StacktraceKey:    "S",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}

	if noColor {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	if noTime {
		ec.TimeKey = zapcore.OmitKey
		ec.EncodeTime = nil
	}

	return ec
}

// CID returns a [zap.Field] for a component identifier in the canonical UUID form.
func CID(key string, cid [16]byte) zap.Field {
	return zap.Stringer(key, uuid.UUID(cid))
}

// Vector returns a [zap.Field] for a root layer vector.
// Known vectors are logged by name, others as numbers.
func Vector(key string, vector uint32) zap.Field {
	if name := acnprot.Name(vector); name != "" {
		return zap.String(key, name)
	}
	return zap.Uint32(key, vector)
}

// fakeClock always returns the zero time.
//
// fakeClock implements [zapcore.Clock].
type fakeClock struct{}

// Now implements [zapcore.Clock.Now].
func (fakeClock) Now() time.Time {
	return time.Time{}
}

// NewTicker implements [zapcore.Clock.NewTicker].
func (fakeClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
