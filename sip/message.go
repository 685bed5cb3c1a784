package sip

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strconv"

	"braces.dev/errtrace"

	"github.com/vir/ysip/body"
	"github.com/vir/ysip/header"
	"github.com/vir/ysip/internal/util"
	"github.com/vir/ysip/uri"
)

// DefaultVersion is the protocol version of locally built messages.
const DefaultVersion = "SIP/2.0"

// Request methods used by the stack itself.
const (
	MethodInvite   = "INVITE"
	MethodAck      = "ACK"
	MethodCancel   = "CANCEL"
	MethodBye      = "BYE"
	MethodOptions  = "OPTIONS"
	MethodRegister = "REGISTER"
)

// Message is a SIP request or response.
//
// Once [Message.HeaderBlock] or [Message.Buffer] is called the serialized forms
// are cached and never rebuilt automatically: callers must not modify the message
// after that, or must call [Message.ClearCaches].
//
// A Message is not safe for concurrent modification.
type Message struct {
	Version string
	// Method is the request method. For responses it is taken from CSeq.
	Method string
	// URI is the Request-URI text.
	URI    string
	Code   int
	Reason string
	Body   *body.Body

	hdrs []*header.Line

	answer,
	outgoing,
	ack,
	valid bool

	party Party
	seq   *Sequence
	cseq  int
	flags Flags

	authUser,
	authPass string

	block,
	buf []byte
}

// NewRequest creates an outgoing request.
// Missing mandatory headers are added by [Message.Complete].
func NewRequest(method, ruri string) *Message {
	method = util.UCase(method)
	return &Message{
		Version:  DefaultVersion,
		Method:   method,
		URI:      ruri,
		outgoing: true,
		ack:      method == MethodAck,
		valid:    true,
		cseq:     -1,
	}
}

// NewResponse creates an outgoing response to req.
// The Via, Record-Route, From, To, Call-ID and CSeq headers are copied from req.
// An empty reason is looked up in the reason table.
// The response is invalid if req is nil or invalid.
func NewResponse(req *Message, code int, reason string) *Message {
	if reason == "" {
		reason = ReasonPhrase(code)
	}
	m := &Message{
		Code:     code,
		Reason:   reason,
		answer:   true,
		outgoing: true,
		cseq:     -1,
	}
	if !req.IsValid() {
		return m
	}
	m.Version = req.Version
	m.Method = req.Method
	m.URI = req.URI
	m.flags = req.flags
	m.party = req.party
	m.cseq = req.cseq
	m.CopyAllHeaders(req, "Via")
	m.CopyAllHeaders(req, "Record-Route")
	m.CopyHeader(req, "From")
	m.CopyHeader(req, "To")
	m.CopyHeader(req, "Call-ID")
	m.CopyHeader(req, "CSeq")
	m.valid = true
	return m
}

// NewACK creates the ACK for an INVITE original that got the final answer.
//
// For a 2xx answer the ACK is a new transaction: it gets a fresh branch, the
// Request-URI is taken from the answer Contact and the answer route set is applied
// unless the original already had one.
func NewACK(original, answer *Message) *Message {
	m := &Message{
		Method:   MethodAck,
		outgoing: true,
		ack:      true,
		cseq:     -1,
	}
	if !original.IsValid() {
		return m
	}
	m.flags = original.flags
	m.party = original.party
	m.Version = original.Version
	m.URI = original.URI
	m.CopyAllHeaders(original, "Via")
	via := m.Header("Via")
	if via == nil {
		v := m.Version + "/"
		if m.party != nil {
			addr, port := m.party.LocalAddr()
			v += util.UCase(m.party.ProtoName()) + " " + joinHostPort(addr, port)
		}
		via = header.NewLine("Via", v)
		m.AppendHeader(via)
	}
	if answer != nil && answer.Code/100 == 2 && original.Method == MethodInvite {
		via.SetParam("branch", newBranch())
		if co := answer.Header("Contact"); co != nil {
			if sm := contactURIRe.FindStringSubmatch(co.FullValue()); sm != nil {
				m.URI = sm[1]
			} else {
				m.URI = co.Value
			}
		}
		if original.Header("Route") == nil {
			m.AddRoutes(answer.Routes())
		}
	}
	m.cseq = original.cseq
	m.CopyAllHeaders(original, "Route")
	m.CopyHeader(original, "From")
	if answer == nil || !m.CopyHeader(answer, "To") {
		m.CopyHeader(original, "To")
	}
	m.CopyHeader(original, "Call-ID")
	m.AddHeader("CSeq", strconv.Itoa(m.cseq)+" "+MethodAck)
	m.CopyHeader(original, "Max-Forwards")
	m.CopyAllHeaders(original, "Contact")
	m.CopyAllHeaders(original, "Authorization")
	m.CopyAllHeaders(original, "Proxy-Authorization")
	m.CopyHeader(original, "User-Agent")
	m.valid = true
	return m
}

// NewRequestCopy creates a request for a new transaction from original,
// for example to retry it with credentials.
// All headers but CSeq are copied, the first Via loses its branch
// and the body is cloned.
func NewRequestCopy(original *Message) *Message {
	m := &Message{
		Version:  original.Version,
		Method:   original.Method,
		URI:      original.URI,
		Code:     original.Code,
		Reason:   original.Reason,
		Body:     original.Body.Clone(),
		answer:   original.answer,
		outgoing: original.outgoing,
		ack:      original.ack,
		valid:    original.valid,
		party:    original.party,
		seq:      original.seq,
		cseq:     -1,
		flags:    original.flags,
		authUser: original.authUser,
		authPass: original.authPass,
	}
	via1 := true
	for _, l := range original.hdrs {
		if util.EqFold(l.Name, "CSeq") {
			continue
		}
		nl := l.Clone()
		if via1 && util.EqFold(nl.Name, "Via") {
			via1 = false
			nl.DelParam("branch")
		}
		m.hdrs = append(m.hdrs, nl)
	}
	return m
}

// IsValid reports whether the message was built or parsed successfully.
// It is nil-safe.
func (m *Message) IsValid() bool { return m != nil && m.valid }

// IsAnswer reports whether the message is a response.
func (m *Message) IsAnswer() bool { return m.answer }

// IsOutgoing reports whether the message is locally originated.
func (m *Message) IsOutgoing() bool { return m.outgoing }

// IsACK reports whether the message is an ACK request.
func (m *Message) IsACK() bool { return m.ack }

// IsReliable reports whether the message goes over a reliable transport.
func (m *Message) IsReliable() bool { return m.party != nil && m.party.IsReliable() }

// Party returns the transport party of the message, or nil.
func (m *Message) Party() Party { return m.party }

// SetParty attaches a transport party to the message.
func (m *Message) SetParty(p Party) { m.party = p }

// Sequence returns the dialog sequence used to allocate CSeq numbers, or nil.
func (m *Message) Sequence() *Sequence { return m.seq }

// SetSequence attaches a dialog sequence to the message.
func (m *Message) SetSequence(s *Sequence) { m.seq = s }

// CSeq returns the resolved CSeq number or -1.
func (m *Message) CSeq() int { return m.cseq }

// Flags returns the completion flags of the message.
func (m *Message) Flags() Flags { return m.flags }

// SetFlags sets the completion flags used by [Message.Complete].
func (m *Message) SetFlags(f Flags) { m.flags = f }

// RequestURI returns the Request-URI as a URI value.
func (m *Message) RequestURI() *uri.URI { return uri.New(m.URI) }

// SetAuth stores credentials to answer an authentication challenge
// to this request, see [Message.BuildAuthFor].
func (m *Message) SetAuth(user, pass string) {
	m.authUser = user
	m.authPass = pass
}

// AuthUser returns the stored authentication username.
func (m *Message) AuthUser() string { return m.authUser }

// AuthPassword returns the stored authentication password.
func (m *Message) AuthPassword() string { return m.authPass }

func (m *Message) hdrIndex(name string) int {
	name = header.Uncompact(name)
	return slices.IndexFunc(m.hdrs, func(l *header.Line) bool { return util.EqFold(l.Name, name) })
}

// Header returns the first header line with the given name, or nil.
// Names are case-insensitive, compact forms are accepted.
func (m *Message) Header(name string) *header.Line {
	if i := m.hdrIndex(name); i >= 0 {
		return m.hdrs[i]
	}
	return nil
}

// LastHeader returns the last header line with the given name, or nil.
func (m *Message) LastHeader(name string) *header.Line {
	name = header.Uncompact(name)
	for i := len(m.hdrs) - 1; i >= 0; i-- {
		if util.EqFold(m.hdrs[i].Name, name) {
			return m.hdrs[i]
		}
	}
	return nil
}

// HeadersNamed iterates over the header lines with the given name in order.
func (m *Message) HeadersNamed(name string) iter.Seq[*header.Line] {
	name = header.Uncompact(name)
	return func(yield func(*header.Line) bool) {
		for _, l := range m.hdrs {
			if util.EqFold(l.Name, name) && !yield(l) {
				return
			}
		}
	}
}

// Headers returns all header lines in order.
// The slice is a copy, the lines are not.
func (m *Message) Headers() []*header.Line { return slices.Clone(m.hdrs) }

// CountHeaders returns the number of header lines with the given name.
func (m *Message) CountHeaders(name string) int {
	var n int
	for range m.HeadersNamed(name) {
		n++
	}
	return n
}

// HeaderValue returns the primary value of the first header with the given name.
func (m *Message) HeaderValue(name string) string {
	if l := m.Header(name); l != nil {
		return l.Value
	}
	return ""
}

// ParamValue returns a parameter of the first header with the given name.
func (m *Message) ParamValue(name, param string) string {
	if l := m.Header(name); l != nil {
		return l.ParamValue(param)
	}
	return ""
}

// AddHeader parses value and appends it as a new header line.
func (m *Message) AddHeader(name, value string) *header.Line {
	l := header.Parse(name, value)
	m.hdrs = append(m.hdrs, l)
	return l
}

// AppendHeader appends header lines as is. The message takes their ownership.
func (m *Message) AppendHeader(ls ...*header.Line) {
	for _, l := range ls {
		if l != nil {
			m.hdrs = append(m.hdrs, l)
		}
	}
}

// InsertHeader inserts a header line before all others.
func (m *Message) InsertHeader(l *header.Line) {
	if l != nil {
		m.hdrs = slices.Insert(m.hdrs, 0, l)
	}
}

// RemoveHeader removes the given header line from the message.
func (m *Message) RemoveHeader(l *header.Line) bool {
	i := slices.Index(m.hdrs, l)
	if i < 0 {
		return false
	}
	m.hdrs = slices.Delete(m.hdrs, i, i+1)
	return true
}

// ClearHeaders removes all header lines with the given name.
func (m *Message) ClearHeaders(name string) {
	name = header.Uncompact(name)
	m.hdrs = slices.DeleteFunc(m.hdrs, func(l *header.Line) bool { return util.EqFold(l.Name, name) })
}

// CopyHeader appends a copy of the first header named name of other.
func (m *Message) CopyHeader(other *Message, name string) bool {
	if other == nil {
		return false
	}
	l := other.Header(name)
	if l == nil {
		return false
	}
	m.hdrs = append(m.hdrs, l.Clone())
	return true
}

// CopyAllHeaders appends copies of all headers named name of other
// and returns how many were copied.
func (m *Message) CopyAllHeaders(other *Message, name string) int {
	if other == nil || name == "" {
		return 0
	}
	var n int
	for l := range other.HeadersNamed(name) {
		m.hdrs = append(m.hdrs, l.Clone())
		n++
	}
	return n
}

// StartLine returns the request or status line without the line terminator.
func (m *Message) StartLine() string {
	if m.answer {
		return m.Version + " " + strconv.Itoa(m.Code) + " " + m.Reason
	}
	return m.Method + " " + m.URI + " " + m.Version
}

// HeaderBlock returns the start line and the header lines, each ended by CRLF.
// The block is built once and cached.
// Content-Length lines are left to [Message.Buffer], so are Content-Type lines
// of messages with a body.
func (m *Message) HeaderBlock() []byte {
	if !m.IsValid() {
		return nil
	}
	if m.block != nil {
		return m.block
	}
	b := make([]byte, 0, 64*(len(m.hdrs)+1))
	b = append(b, m.StartLine()...)
	b = append(b, "\r\n"...)
	for _, l := range m.hdrs {
		if util.EqFold(l.Name, "Content-Length") || (m.Body != nil && util.EqFold(l.Name, "Content-Type")) {
			continue
		}
		b = append(b, m.headerName(l.Name)...)
		b = append(b, ": "...)
		b = l.AppendValue(b)
		b = append(b, "\r\n"...)
	}
	m.block = b
	return m.block
}

// Buffer returns the full wire form of the message.
// The buffer is built once and cached.
func (m *Message) Buffer() []byte {
	if !m.IsValid() {
		return nil
	}
	if m.buf != nil {
		return m.buf
	}
	blk := m.HeaderBlock()
	var data []byte
	if m.Body != nil {
		data = m.Body.Bytes()
	}
	b := make([]byte, 0, len(blk)+len(data)+64)
	b = append(b, blk...)
	if m.Body != nil {
		if ct := m.Body.Type(); ct != "" {
			b = append(b, m.headerName("Content-Type")...)
			b = append(b, ": "...)
			b = append(b, ct...)
			b = append(b, "\r\n"...)
		}
	}
	b = append(b, m.headerName("Content-Length")...)
	b = append(b, ": "...)
	b = strconv.AppendInt(b, int64(len(data)), 10)
	b = append(b, "\r\n\r\n"...)
	b = append(b, data...)
	m.buf = b
	return m.buf
}

func (m *Message) headerName(name string) string {
	if m.flags.Has(CompactHeaders) {
		return header.Compact(name)
	}
	return name
}

// ClearCaches drops the cached header block and buffer
// so they are rebuilt on the next access.
func (m *Message) ClearCaches() {
	m.block = nil
	m.buf = nil
}

// WriteTo writes the wire form of the message to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.Buffer())
	return int64(n), errtrace.Wrap(err)
}

// String returns the wire form of the message as text.
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	return string(m.Buffer())
}

// Format implements [fmt.Formatter].
// The %s verb prints the start line, %+s prints the whole message.
func (m *Message) Format(f fmt.State, verb rune) {
	switch verb {
	case 's', 'v':
		if m == nil {
			io.WriteString(f, "<nil>")
			return
		}
		if f.Flag('+') {
			f.Write(m.Buffer())
			return
		}
		io.WriteString(f, m.StartLine())
	case 'q':
		if m == nil {
			io.WriteString(f, strconv.Quote("<nil>"))
			return
		}
		if f.Flag('+') {
			io.WriteString(f, strconv.Quote(m.String()))
			return
		}
		io.WriteString(f, strconv.Quote(m.StartLine()))
	default:
		fmt.Fprintf(f, "%%!%c(*sip.Message=%s)", verb, m.StartLine())
	}
}

func (m *Message) LogValue() slog.Value {
	if m == nil {
		return slog.Value{}
	}
	attrs := make([]slog.Attr, 0, 8)
	if m.answer {
		attrs = append(attrs, slog.Int("code", m.Code), slog.String("reason", m.Reason))
	} else {
		attrs = append(attrs, slog.String("method", m.Method), slog.String("uri", m.URI))
	}
	attrs = append(attrs,
		slog.String("call_id", m.HeaderValue("Call-ID")),
		slog.String("cseq", m.HeaderValue("CSeq")),
		slog.Bool("outgoing", m.outgoing),
	)
	if !m.valid {
		attrs = append(attrs, slog.Bool("valid", false))
	}
	return slog.GroupValue(attrs...)
}
