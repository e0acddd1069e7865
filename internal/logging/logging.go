package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvLogLevel = "CACHECTL_LOG_LEVEL"

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// New builds a console logger writing to w. The level comes from override,
// then CACHECTL_LOG_LEVEL, then the profile default. "off" disables logging.
func New(w io.Writer, profile Profile, override string) (*zap.Logger, error) {
	level := defaultLevel(profile)
	for _, raw := range []string{override, os.Getenv(EnvLogLevel)} {
		lvl, off, ok, err := parseLevel(raw)
		if err != nil {
			return nil, err
		}
		if off {
			return zap.NewNop(), nil
		}
		if ok {
			level = lvl
			break
		}
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	if profile == ProfileTest {
		encCfg.TimeKey = ""
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func defaultLevel(profile Profile) zapcore.Level {
	if profile == ProfileTest {
		return zapcore.DebugLevel
	}
	return zapcore.WarnLevel
}

func parseLevel(raw string) (level zapcore.Level, off bool, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return 0, false, false, nil
	case "off", "none", "disabled":
		return 0, true, false, nil
	case "warning":
		return zapcore.WarnLevel, false, true, nil
	}
	level, err = zapcore.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, false, fmt.Errorf("log level %q: %w", raw, err)
	}
	return level, false, true, nil
}
