// Package logging builds the application logger and provides helpers for
// logging request URLs without leaking query parameters or credentials.
package logging

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Output goes to stderr: a human-readable console
// encoder when stderr is a terminal, JSON otherwise. Level accepts the usual
// zap level names ("debug", "info", "warn", "error").
func New(level string) (*zap.Logger, error) {
	var config zap.Config
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// URL returns a zap field with the query string, fragment and any userinfo
// stripped from raw. Reddit request URLs carry no secrets today, but config
// mistakes (tokens pasted into hosts) should never end up in a log line.
func URL(key, raw string) zap.Field {
	return zap.String(key, Mask(raw))
}

// Mask strips the query string, fragment and userinfo from a URL string.
// Unparseable input is truncated at the first '?'.
func Mask(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
