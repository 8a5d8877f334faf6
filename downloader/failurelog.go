package downloader

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FailureLog appends one line per failed download to a file.
// The file is only created at the first failure.
type FailureLog struct {
	path string

	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewFailureLog creates a FailureLog writing to path (append mode)
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

func (l *FailureLog) open() error {
	if l.logger != nil {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	l.file = f
	l.logger = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(f), zapcore.InfoLevel))
	return nil
}

// Record appends "cannot download <sceneName> to <dir>"
func (l *FailureLog) Record(sceneName, dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.open(); err != nil {
		return fmt.Errorf("FailureLog.Record.%w", err)
	}
	l.logger.Info("cannot download " + sceneName + " to " + dir)
	return nil
}

// Close the underlying file
func (l *FailureLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.logger.Sync()
	err := l.file.Close()
	l.file, l.logger = nil, nil
	return err
}
