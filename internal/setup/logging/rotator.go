package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// lineBuffer is a circular buffer holding the most recent log lines.
type lineBuffer struct {
	lines     []string
	capacity  int
	head      int // Points to the next write position
	size      int // Current number of items in buffer
	totalSeen int // Total number of lines that have passed through
}

func newLineBuffer(capacity int) *lineBuffer {
	return &lineBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

func (b *lineBuffer) add(line string) {
	b.lines[b.head] = line

	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}

	b.totalSeen++
}

// snapshot returns the buffered lines in chronological order.
func (b *lineBuffer) snapshot() []string {
	if b.size == 0 {
		return nil
	}

	result := make([]string, b.size)
	start := (b.head - b.size + b.capacity) % b.capacity

	for i := range b.size {
		idx := (start + i) % b.capacity
		result[i] = b.lines[idx]
	}

	return result
}

// Rotator wraps a log file and truncates it back down to the most
// recent lines once it has grown to twice the configured size.
type Rotator struct {
	writer   io.Writer
	buffer   *lineBuffer
	filePath string
	mutex    sync.Mutex
}

// NewRotator creates a rotator keeping at most maxLines lines.
func NewRotator(writer io.Writer, maxLines int, filePath string) *Rotator {
	return &Rotator{
		writer:   writer,
		buffer:   newLineBuffer(maxLines),
		filePath: filePath,
	}
}

// Write implements io.Writer and maintains the line buffer.
func (w *Rotator) Write(p []byte) (n int, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	// Write to the underlying writer first
	n, err = w.writer.Write(p)
	if err != nil {
		return n, err
	}

	// Add non-empty lines to the buffer
	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.buffer.add(line)

		// Only rotate once we have seen twice the capacity
		if w.buffer.totalSeen == w.buffer.capacity*2 {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}

			w.buffer.totalSeen = w.buffer.size
		}
	}

	return n, nil
}

// rotate rewrites the log file with only the buffered lines.
func (w *Rotator) rotate() error {
	lines := w.buffer.snapshot()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	content := strings.Join(lines, "\n") + "\n"
	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Sync(); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	temp.Close()

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	// On Windows, remove the original file first
	os.Remove(w.filePath)

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	newFile, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.writer = newFile

	return nil
}
