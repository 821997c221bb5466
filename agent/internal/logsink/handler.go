package logsink

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/obsidianstack/logship/pkg/types"
)

// Enqueuer accepts records for delivery. *shipper.Shipper satisfies it.
type Enqueuer interface {
	Enqueue(types.Fields) string
}

// Options configures a Handler.
type Options struct {
	// Level is the minimum level shipped. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// LogType overrides the workspace default Log-Type for every record.
	LogType string
	// ProcessName defaults to the base name of os.Args[0].
	ProcessName string
}

// Handler is a slog.Handler that turns every enabled record into a
// types.Fields and hands it to an Enqueuer. Handle never blocks on I/O.
type Handler struct {
	q       Enqueuer
	opts    Options
	pid     int
	prefix  string // group path applied to attrs added later
	preattr string // attrs from WithAttrs, already formatted
	now     func() time.Time
}

// NewHandler returns a Handler feeding q. opts may be nil.
func NewHandler(q Enqueuer, opts *Options) *Handler {
	h := &Handler{q: q, pid: os.Getpid(), now: time.Now}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.ProcessName == "" && len(os.Args) > 0 {
		h.opts.ProcessName = filepath.Base(os.Args[0])
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = h.now()
	}

	var msg strings.Builder
	msg.WriteString(r.Message)
	msg.WriteString(h.preattr)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&msg, h.prefix, a)
		return true
	})

	f := types.Fields{
		Level:       LevelName(r.Level),
		Time:        types.FormatTime(t),
		Message:     msg.String(),
		ThreadName:  "goroutine", // Go doesn't expose thread names
		ProcessName: h.opts.ProcessName,
		ProcessPID:  h.pid,
		LogType:     h.opts.LogType,
	}

	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := fs.Next()
		f.FileName = filepath.Base(frame.File)
		f.Module = strings.TrimSuffix(f.FileName, filepath.Ext(f.FileName))
		f.LineNumber = frame.Line
		f.FuncName = funcName(frame.Function)
	}

	h.q.Enqueue(f)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	var b strings.Builder
	b.WriteString(h.preattr)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	h2.preattr = b.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// LevelName maps a slog level to the level names the workspace tables
// expect: DEBUG, INFO, WARNING, ERROR.
func LevelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// appendAttr writes " key=value", expanding groups into dotted keys.
func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(quote(a.Value.String()))
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

// funcName trims the import path: "github.com/x/pkg.(*T).M" -> "pkg.(*T).M".
func funcName(fn string) string {
	if i := strings.LastIndexByte(fn, '/'); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

// Tee fans a record out to several handlers. It is used to keep the console
// log while shipping a copy to the workspace.
func Tee(handlers ...slog.Handler) slog.Handler {
	return tee(handlers)
}

type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
