package tail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/obsidianstack/logship/agent/internal/config"
	"github.com/obsidianstack/logship/pkg/types"
)

const readChunk = 32 * 1024

// ErrAlreadyStarted is returned by Run on a Follower that has been run before.
var ErrAlreadyStarted = errors.New("tail: follower already started")

// Follower reads lines appended to a file and passes each complete line to
// a callback. It survives truncation and rotation by rename. A Follower
// runs once.
type Follower struct {
	path      string
	fromStart bool
	onLine    func(string)

	file    *os.File
	offset  int64
	partial []byte
	ready   chan struct{}
	started atomic.Bool
}

// New returns a Follower for path. When fromStart is false, content present
// when Run starts is skipped.
func New(path string, fromStart bool, onLine func(line string)) *Follower {
	return &Follower{
		path:      filepath.Clean(path),
		fromStart: fromStart,
		onLine:    onLine,
		ready:     make(chan struct{}),
	}
}

// Enqueuer accepts records for delivery.
type Enqueuer interface {
	Enqueue(types.Fields) string
}

// ForSource returns a Follower that enqueues every line of src as a record
// at src.Level, with the source ID as the module.
func ForSource(src config.Source, q Enqueuer) *Follower {
	proc := filepath.Base(os.Args[0])
	pid := os.Getpid()
	file := filepath.Base(src.Path)
	return New(src.Path, src.FromStart, func(line string) {
		q.Enqueue(types.Fields{
			Level:       strings.ToUpper(src.Level),
			Time:        types.FormatTime(time.Now()),
			Message:     line,
			Module:      src.ID,
			FileName:    file,
			ThreadName:  "tail",
			ProcessName: proc,
			ProcessPID:  pid,
			FuncName:    "tail",
			LogType:     src.LogType,
		})
	})
}

// Run follows the file until ctx is cancelled. The parent directory is
// watched so the file may be created or replaced after Run starts.
func (f *Follower) Run(ctx context.Context) error {
	if !f.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tail: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("tail: watch %s: %w", filepath.Dir(f.path), err)
	}
	defer f.close()

	if err := f.open(!f.fromStart); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tail: %w", err)
	}
	f.drain()
	close(f.ready)

	slog.Info("tail: following", "path", f.path, "from_start", f.fromStart)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				// A new file took the path, typically after rotation.
				f.close()
				if err := f.open(false); err != nil {
					slog.Warn("tail: reopen failed", "path", f.path, "err", err)
					continue
				}
				f.drain()
			case event.Has(fsnotify.Write):
				if f.file == nil {
					if err := f.open(false); err != nil {
						continue
					}
				}
				f.drain()
			case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
				f.drain()
				f.close()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("tail: watcher error", "path", f.path, "err", err)
		}
	}
}

func (f *Follower) open(atEnd bool) error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.file = file
	f.offset = 0
	f.partial = f.partial[:0]
	if atEnd {
		off, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			f.file = nil
			return err
		}
		f.offset = off
	}
	return nil
}

func (f *Follower) close() {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
}

// drain reads from the current offset to EOF and emits complete lines.
// A file shorter than the offset was truncated and is read from the start.
func (f *Follower) drain() {
	if f.file == nil {
		return
	}
	if st, err := f.file.Stat(); err == nil && st.Size() < f.offset {
		slog.Info("tail: file truncated, restarting", "path", f.path)
		f.offset = 0
		f.partial = f.partial[:0]
	}

	buf := make([]byte, readChunk)
	for {
		n, err := f.file.ReadAt(buf, f.offset)
		if n > 0 {
			f.offset += int64(n)
			f.emit(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("tail: read failed", "path", f.path, "err", err)
			}
			return
		}
	}
}

func (f *Follower) emit(chunk []byte) {
	f.partial = append(f.partial, chunk...)
	for {
		i := bytes.IndexByte(f.partial, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimRight(string(f.partial[:i]), "\r")
		f.partial = f.partial[i+1:]
		if line != "" {
			f.onLine(line)
		}
	}
}
