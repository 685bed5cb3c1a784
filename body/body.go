// Package body implements the message body container of SIP messages.
//
// A [Body] is one of three kinds selected by the content type:
// SDP session descriptions, DTMF relay and sipfrag bodies are kept as an ordered
// list of lines, text/* and XML bodies as text and everything else as opaque bytes.
package body

//go:generate go tool errtrace -w .

import (
	"bytes"
	"log/slog"
	"strings"

	"braces.dev/errtrace"
	"github.com/pion/sdp/v3"

	"github.com/vir/ysip/internal/errorutil"
	"github.com/vir/ysip/internal/util"
)

// Kind is the storage kind of a body.
type Kind int

const (
	Binary Kind = iota
	Text
	Lines
)

func (k Kind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Text:
		return "text"
	case Lines:
		return "lines"
	default:
		return "unknown"
	}
}

// Line is a single key=value line of a [Lines] body.
// A line with no key holds the whole line text in Value.
type Line struct {
	Key   string
	Value string
}

func (l Line) String() string {
	if l.Key == "" {
		return l.Value
	}
	return l.Key + "=" + l.Value
}

// Body is a message body.
// Bodies are not safe for concurrent use.
type Body struct {
	typ   string
	kind  Kind
	text  string
	lines []Line

	raw []byte
}

// MediaType returns the lower-cased media type part of a Content-Type value.
func MediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return util.LCase(util.TrimBlanks(contentType))
}

// Build creates a body of the kind selected by contentType from the raw data.
// It returns nil if data is empty.
func Build(contentType string, data []byte) *Body {
	if len(data) == 0 {
		return nil
	}
	switch mt := MediaType(contentType); {
	case mt == "application/sdp", mt == "application/dtmf-relay":
		return &Body{typ: contentType, kind: Lines, lines: splitLines(data, true)}
	case mt == "message/sipfrag":
		return &Body{typ: contentType, kind: Lines, lines: splitLines(data, false)}
	case strings.HasPrefix(mt, "text/"), mt == "application/dtmf":
		return NewText(contentType, string(data))
	default:
		data = bytes.TrimPrefix(data, []byte("\r\n"))
		if len(data) == 0 {
			return nil
		}
		if len(mt) >= 7 && strings.HasSuffix(mt, "+xml") {
			return NewText(contentType, string(data))
		}
		return NewBinary(contentType, data)
	}
}

// splitLines splits data into lines. With keyed set, lines are split at the first '='
// and lines with no '=' are dropped. Otherwise every non-empty line is kept whole.
func splitLines(data []byte, keyed bool) []Line {
	var lines []Line
	for rest := data; len(rest) > 0; {
		var s string
		s, rest = util.NextLine(rest)
		if !keyed {
			if s != "" {
				lines = append(lines, Line{Value: s})
			}
			continue
		}
		if eq := strings.IndexByte(s, '='); eq > 0 {
			lines = append(lines, Line{Key: s[:eq], Value: s[eq+1:]})
		}
	}
	return lines
}

// NewBinary creates an opaque body. The data is copied.
func NewBinary(contentType string, data []byte) *Body {
	return &Body{typ: contentType, kind: Binary, raw: bytes.Clone(data)}
}

// NewText creates a text body.
func NewText(contentType, text string) *Body {
	return &Body{typ: contentType, kind: Text, text: text}
}

// NewLines creates a line list body.
func NewLines(contentType string, lines ...Line) *Body {
	return &Body{typ: contentType, kind: Lines, lines: append([]Line(nil), lines...)}
}

// Type returns the content type the body was built with.
func (b *Body) Type() string {
	if b == nil {
		return ""
	}
	return b.typ
}

// Kind returns the storage kind of the body.
func (b *Body) Kind() Kind { return b.kind }

// Bytes returns the encoded body.
// Text and line bodies are encoded on the first call and the result is reused afterwards,
// so the returned slice must not be modified.
func (b *Body) Bytes() []byte {
	if b == nil {
		return nil
	}
	if b.raw != nil {
		return b.raw
	}
	switch b.kind {
	case Text:
		b.raw = []byte(b.text)
	case Lines:
		var buf bytes.Buffer
		for _, l := range b.lines {
			buf.WriteString(l.String())
			buf.WriteString("\r\n")
		}
		b.raw = buf.Bytes()
	}
	if b.raw == nil {
		b.raw = []byte{}
	}
	return b.raw
}

// Len returns the length of the encoded body.
func (b *Body) Len() int { return len(b.Bytes()) }

// Text returns the text of a text body or the encoded body of other kinds.
func (b *Body) Text() string {
	if b == nil {
		return ""
	}
	if b.kind == Text {
		return b.text
	}
	return string(b.Bytes())
}

// Lines returns the lines of a line list body.
func (b *Body) Lines() []Line {
	if b == nil {
		return nil
	}
	return b.lines
}

// Line returns the value of the first line with the given key.
func (b *Body) Line(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	for _, l := range b.lines {
		if util.EqFold(l.Key, key) {
			return l.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the body.
func (b *Body) Clone() *Body {
	if b == nil {
		return nil
	}
	b2 := &Body{
		typ:   b.typ,
		kind:  b.kind,
		text:  b.text,
		lines: append([]Line(nil), b.lines...),
	}
	if b.raw != nil {
		b2.raw = bytes.Clone(b.raw)
	}
	return b2
}

// ErrNotSessionDescription is returned by [Body.SessionDescription] for bodies
// that are not line lists or do not decode as SDP.
const ErrNotSessionDescription errorutil.Error = "not a session description body"

// SessionDescription decodes a line list body into a session description.
func (b *Body) SessionDescription() (*sdp.SessionDescription, error) {
	if b == nil || b.kind != Lines {
		return nil, errtrace.Wrap(ErrNotSessionDescription)
	}
	sd := new(sdp.SessionDescription)
	if err := sd.Unmarshal(b.Bytes()); err != nil {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrNotSessionDescription, err))
	}
	return sd, nil
}

// LogValue implements [slog.LogValuer].
func (b *Body) LogValue() slog.Value {
	if b == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("type", b.typ),
		slog.String("kind", b.kind.String()),
		slog.Int("len", b.Len()),
	)
}
