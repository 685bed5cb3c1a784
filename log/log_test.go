package log_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/vir/ysip/log"
)

func TestNoop(t *testing.T) {
	if log.Noop.Enabled(context.Background(), slog.LevelError) {
		t.Error("log.Noop.Enabled() = true, want false")
	}
}

func TestSetDefault(t *testing.T) {
	prev := log.Default()
	t.Cleanup(func() { log.SetDefault(prev) })

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	log.SetDefault(l)
	if got := log.Default(); got != l {
		t.Fatalf("log.Default() = %p, want %p", got, l)
	}

	log.SetDefault(nil)
	if got := log.Default(); got != log.Noop {
		t.Errorf("log.Default() after SetDefault(nil) = %p, want log.Noop", got)
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(log.NewHandler(slog.NewTextHandler(&buf, nil)))
	l.Info("test",
		slog.Any("buf", []byte("INVITE sip:bob@example.com SIP/2.0")),
		slog.Any("addr", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5060}),
		slog.Any("error", errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{
		"INVITE sip:bob@example.com SIP/2.0",
		"127.0.0.1:5060",
		"boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestStringValue(t *testing.T) {
	if got, want := log.StringValue([]byte("abc")).LogValue().String(), "abc"; got != want {
		t.Errorf("StringValue().LogValue() = %q, want %q", got, want)
	}
}

func TestCalcValue(t *testing.T) {
	var called bool
	v := log.CalcValue(func() any {
		called = true
		return 42
	})
	if called {
		t.Fatal("fn called before LogValue()")
	}
	if got := v.LogValue().Int64(); got != 42 {
		t.Errorf("CalcValue().LogValue() = %d, want 42", got)
	}
}

func TestDev(t *testing.T) {
	if !log.Dev.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("log.Dev.Enabled(debug) = false, want true")
	}
}
