package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const logDir = "logs"

// NewLogger builds the JSON logger for the given server type. Entries go to
// logs/<type>.log through an async buffered writer and are mirrored to the
// console. The returned closer flushes both.
func NewLogger(serverType string) (*logrus.Logger, io.Closer) {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(levelFromEnv())

	if serverType != "admin" {
		serverType = "engine"
	}
	logFile := filepath.Clean(filepath.Join(logDir, serverType+".log"))
	if !strings.HasPrefix(logFile, logDir+string(filepath.Separator)) {
		log.Fatalf("Invalid log file path: must be in logs directory")
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		log.Fatalf("Failed to create logs directory: %v", err)
	}

	asyncWriter, err := NewAsyncFileWriter(logFile, 32*1024)
	if err != nil {
		log.Fatalf("Failed to initialize async log writer: %v", err)
	}
	logger.SetOutput(asyncWriter)

	consoleHook := NewAsyncConsoleHook(1000)
	logger.AddHook(consoleHook)

	return logger, closers{consoleHook, asyncWriter}
}

func levelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

type closers []io.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
