package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// fileOut receives a JSON copy of every line written by loggers from New.
var fileOut = &swapWriter{}

type swapWriter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *swapWriter) swap(w io.WriteCloser) error {
	s.mu.Lock()
	old := s.w
	s.w = w
	s.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

// SetFile copies all log output to a rotating file, replacing any previous
// one. An empty path closes the current file and stops copying.
func SetFile(cfg FileConfig) error {
	if cfg.Path == "" {
		return fileOut.swap(nil)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return fileOut.swap(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
}
