package sip

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/vir/ysip/body"
	"github.com/vir/ysip/header"
	"github.com/vir/ysip/internal/util"
	"github.com/vir/ysip/log"
)

var (
	statusLineRe  = regexp.MustCompile(`^([Ss][Ii][Pp]/[0-9]\.[0-9]+)\s+([0-9]{3})(?:\s+(.*))?$`)
	requestLineRe = regexp.MustCompile(`^([A-Za-z]+)\s+(\S+)\s+([Ss][Ii][Pp]/[0-9]\.[0-9]+)$`)
)

// Parse parses a datagram holding exactly one message received from p.
//
// A body shorter than the declared Content-Length is accepted with a warning.
func Parse(p Party, buf []byte) (*Message, error) {
	m, _, err := parse(p, buf, false)
	return m, errtrace.Wrap(err)
}

// ParseFrame parses the first message of a stream buffer received from p and returns
// the number of bytes it occupies.
//
// The message must carry a Content-Length header. [ErrIncompleteMessage] is returned
// while the buffer does not hold the whole message.
func ParseFrame(p Party, buf []byte) (*Message, int, error) {
	return errtrace.Wrap3(parse(p, buf, true))
}

func parse(p Party, buf []byte, stream bool) (*Message, int, error) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	if len(bytes.Trim(buf, util.Blanks)) == 0 {
		return nil, 0, errtrace.Wrap(ErrEmptyMessage)
	}

	m := &Message{party: p, cseq: -1}

	var line string
	rest := buf
	for line == "" && len(rest) > 0 {
		line, rest = util.NextLine(rest)
	}
	if err := m.parseStartLine(line); err != nil {
		return nil, 0, errtrace.Wrap(err)
	}

	var (
		ctype   *header.Line
		clen    = -1
		hasClen bool
		done    bool
	)
	for len(rest) > 0 {
		line, rest = util.NextLine(rest)
		if line == "" {
			done = true
			break
		}
		col := strings.IndexByte(line, ':')
		if col <= 0 {
			return nil, 0, errtrace.Wrap(newParseError(ErrMalformedHeader, "missing colon in %q", line))
		}
		name := util.TrimBlanks(line[:col])
		if name == "" {
			return nil, 0, errtrace.Wrap(newParseError(ErrMalformedHeader, "empty name in %q", line))
		}
		l := header.Parse(name, line[col+1:])
		m.hdrs = append(m.hdrs, l)

		switch {
		case util.EqFold(l.Name, "Content-Type"):
			if ctype == nil {
				ctype = l
			}
		case util.EqFold(l.Name, "Content-Length"):
			if !hasClen {
				hasClen = true
				if n, err := strconv.Atoi(l.Value); err == nil && n >= 0 {
					clen = n
				}
			}
		case util.EqFold(l.Name, "CSeq"):
			if m.cseq >= 0 {
				break
			}
			num, meth, ok := strings.Cut(l.FullValue(), " ")
			if !ok {
				break
			}
			if n, err := strconv.Atoi(util.TrimBlanks(num)); err == nil {
				m.cseq = n
			}
			if m.answer {
				m.Method = util.UCase(util.TrimBlanks(meth))
			}
		}
	}

	if stream {
		if !done {
			return nil, 0, errtrace.Wrap(ErrIncompleteMessage)
		}
		if clen < 0 {
			return nil, 0, errtrace.Wrap(newParseError(ErrInvalidMessage, "missing or invalid Content-Length"))
		}
		if clen > len(rest) {
			return nil, 0, errtrace.Wrap(ErrIncompleteMessage)
		}
	}

	data := rest
	switch {
	case clen >= 0 && clen <= len(data):
		data = data[:clen]
	case clen > len(data):
		log.Default().LogAttrs(context.Background(), slog.LevelWarn, "message body is shorter than its Content-Length",
			slog.Int("content_length", clen),
			slog.Int("body_length", len(data)),
			slog.Any("message", m),
		)
	}
	if ctype != nil {
		if b := body.Build(ctype.FullValue(), data); b != nil {
			m.Body = b
			m.RemoveHeader(ctype)
		}
	}

	m.valid = true
	return m, len(buf) - len(rest) + len(data), nil
}

func (m *Message) parseStartLine(line string) error {
	if sm := statusLineRe.FindStringSubmatch(line); sm != nil {
		m.answer = true
		m.Version = util.UCase(sm[1])
		m.Code, _ = strconv.Atoi(sm[2])
		m.Reason = sm[3]
		return nil
	}
	if sm := requestLineRe.FindStringSubmatch(line); sm != nil {
		m.Method = util.UCase(sm[1])
		m.URI = sm[2]
		m.Version = util.UCase(sm[3])
		m.ack = m.Method == MethodAck
		return nil
	}
	return errtrace.Wrap(newParseError(ErrMalformedStartLine, "%q", line))
}
