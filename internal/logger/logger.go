// Package logger builds the zerolog logger shared by the CLI and the relay
// server.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"apitester/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. Console output goes to stderr. The returned
// closer releases the log file, if one was opened.
func New(cfg config.LogConfig, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)

	for _, name := range cfg.Writer {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05"})
		case "json":
			writers = append(writers, stderr)
		case "file":
			fw, err := fileWriter(cfg)
			if err != nil {
				return zerolog.Nop(), nopCloser{}, err
			}
			writers = append(writers, fw)
			closer = fw
		case "":
		default:
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("unknown log writer %q", name)
		}
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return l, closer, nil
}

func fileWriter(cfg config.LogConfig) (*lumberjack.Logger, error) {
	path := cfg.File
	if path == "" {
		return nil, fmt.Errorf("log writer \"file\" needs log.file")
	}
	if !filepath.IsAbs(path) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}, nil
}
