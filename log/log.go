// Package log provides logging utilities.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"
)

// NewHandler wraps h with the formatters used by the package loggers:
// errors are rendered as groups, network addresses as strings
// and printable byte slices (wire buffers) as text.
var NewHandler = slogformatter.NewFormatterHandler(
	slogformatter.ErrorFormatter("error"),
	slogformatter.FormatByType(func(addr net.Addr) slog.Value {
		return slog.GroupValue(
			slog.String("network", addr.Network()),
			slog.String("addr", addr.String()),
		)
	}),
	slogformatter.FormatByType(func(b []byte) slog.Value {
		if utf8.Valid(b) {
			return slog.StringValue(string(b))
		}
		return slog.StringValue(fmt.Sprintf("%x", b))
	}),
)

var def atomic.Pointer[slog.Logger]

func init() {
	def.Store(slog.New(NewHandler(
		console.NewHandler(os.Stdout, &console.HandlerOptions{
			AddSource:  true,
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339Nano,
		}),
	)))
}

// Default returns the package default logger.
func Default() *slog.Logger { return def.Load() }

// SetDefault replaces the package default logger.
// A nil logger selects [Noop].
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = Noop
	}
	def.Store(l)
}

// Dev is a developer logger.
var Dev = slog.New(NewHandler(
	devslog.NewHandler(os.Stdout, &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		},
		SortKeys:   true,
		TimeFormat: time.RFC3339Nano,
	}),
))

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

// Noop is a noop logger.
var Noop = slog.New(noopHandler{})

type stringValue[T ~string | ~[]byte] struct {
	v T
}

func (v stringValue[T]) LogValue() slog.Value {
	return slog.StringValue(string(v.v))
}

// StringValue returns a value logger that formats v as string.
func StringValue[T ~string | ~[]byte](v T) slog.LogValuer { return stringValue[T]{v} }

type calcValue struct{ fn func() any }

func (v calcValue) LogValue() slog.Value {
	cv := v.fn()
	switch cv := cv.(type) {
	case slog.Value:
		return cv
	default:
		return slog.AnyValue(cv)
	}
}

// CalcValue returns a value logger that computes a value using a fn.
// The fn is called only when the record is actually handled.
func CalcValue(fn func() any) slog.LogValuer { return calcValue{fn} }
