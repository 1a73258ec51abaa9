package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// AsyncConsoleHook mirrors formatted entries to the console from a single
// goroutine. When the buffer is full the entry is dropped and counted, so a
// slow terminal never stalls an inspection.
type AsyncConsoleHook struct {
	out     io.Writer
	logChan chan []byte
	done    chan struct{}
	dropped atomic.Uint64
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAsyncConsoleHook(bufferSize int) *AsyncConsoleHook {
	return newAsyncConsoleHook(os.Stdout, bufferSize)
}

func newAsyncConsoleHook(out io.Writer, bufferSize int) *AsyncConsoleHook {
	hook := &AsyncConsoleHook{
		out:     out,
		logChan: make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}
	hook.wg.Add(1)
	go hook.processLogs()
	return hook
}

func (h *AsyncConsoleHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	select {
	case h.logChan <- append([]byte{}, line...):
	default:
		h.dropped.Add(1)
	}
	return nil
}

// Dropped is the number of entries that never reached the console.
func (h *AsyncConsoleHook) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *AsyncConsoleHook) processLogs() {
	defer h.wg.Done()
	for {
		select {
		case line := <-h.logChan:
			_, _ = h.out.Write(line)
		case <-h.done:
			for len(h.logChan) > 0 {
				_, _ = h.out.Write(<-h.logChan)
			}
			if n := h.Dropped(); n > 0 {
				_, _ = fmt.Fprintf(h.out, "{\"level\":\"warning\",\"msg\":\"console log buffer overflowed\",\"dropped\":%d}\n", n)
			}
			return
		}
	}
}

func (h *AsyncConsoleHook) Close() error {
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
	return nil
}

func (h *AsyncConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
