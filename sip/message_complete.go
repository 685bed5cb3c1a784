package sip

import (
	"context"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/vir/ysip/internal/util"
)

// BranchCookie is the RFC 3261 magic cookie that starts compliant Via branches.
const BranchCookie = "z9hG4bK"

// DefaultUser is the user part of synthesized From and Contact headers.
const DefaultUser = "anonymous"

const defaultPort = 5060

var contactURIRe = regexp.MustCompile(`^[^<]*<([^>]*)>.*$`)

// Flags alter how [Message.Complete] fills in headers.
type Flags uint32

const (
	// NotReqRport disables the empty rport parameter on synthesized request Vias.
	NotReqRport Flags = 1 << iota
	// NotSetReceived disables the received parameter on answer Vias.
	NotSetReceived
	// NotSetRport disables filling the rport parameter on answer Vias.
	NotSetRport
	// NotAddAgent disables the User-Agent and Server headers.
	NotAddAgent
	// NotAddAllow disables the Allow header.
	NotAddAllow
	// CompactHeaders writes header names in their single letter form where one exists.
	CompactHeaders
)

func (f Flags) Has(flag Flags) bool { return f&flag == flag }

// CompleteOptions holds the local identity used by [Message.Complete].
type CompleteOptions struct {
	// User is the user part of From and Contact.
	// If empty, [DefaultUser] is used.
	User string
	// Domain is the host part of From and Call-ID.
	// If empty, the local address of the party is used.
	Domain string
	// DialogTag is set as the To tag if the To header has none.
	DialogTag string
	// Flags are added to the message and engine flags.
	Flags Flags
}

func (o *CompleteOptions) user() string {
	if o == nil || o.User == "" {
		return DefaultUser
	}
	return o.User
}

func (o *CompleteOptions) domain(addr string, port int) string {
	if o == nil || o.Domain == "" {
		if port == defaultPort {
			port = 0
		}
		return joinHostPort(addr, port)
	}
	return o.Domain
}

func (o *CompleteOptions) dialogTag() string {
	if o == nil {
		return ""
	}
	return o.DialogTag
}

func (o *CompleteOptions) flags() Flags {
	if o == nil {
		return 0
	}
	return o.Flags
}

// Complete fills in the mandatory headers of an outgoing message that are missing.
// Incoming messages are left untouched. Headers already present are never altered
// except for adding missing tag, branch, received and rport parameters,
// so calling Complete again is harmless.
//
// If the message has no party, one is requested from the engine.
// [ErrNoParty] is returned if that fails.
func (m *Message) Complete(ctx context.Context, e *Engine, opts *CompleteOptions) error {
	if e == nil {
		return errtrace.Wrap(NewInvalidArgumentError("nil engine"))
	}
	m.flags |= opts.flags() | e.Flags()
	if !m.outgoing {
		return nil
	}
	if m.party == nil {
		e.BuildParty(ctx, m)
		if m.party == nil {
			e.log().LogAttrs(ctx, slog.LevelError, "could not complete party-less message", slog.Any("message", m))
			return errtrace.Wrap(ErrNoParty)
		}
	}
	laddr, lport := m.party.LocalAddr()
	tag := opts.dialogTag()

	if m.ack {
		if to := m.Header("To"); to != nil && tag != "" && !to.HasParam("tag") {
			to.SetParam("tag", tag)
		}
		return nil
	}

	user := opts.user()
	domain := opts.domain(laddr, lport)

	via := m.Header("Via")
	if via == nil {
		via = m.AddHeader("Via", m.Version+"/"+util.UCase(m.party.ProtoName())+" "+joinHostPort(laddr, lport))
		if !m.answer && !m.flags.Has(NotReqRport) {
			via.SetFlag("rport")
		}
	}
	if !m.answer && !via.HasParam("branch") {
		via.SetParam("branch", newBranch())
	}
	if m.answer {
		raddr, rport := m.party.PartyAddr()
		if !m.flags.Has(NotSetReceived) && raddr != "" {
			via.SetParam("received", raddr)
		}
		if p, ok := via.Param("rport"); ok && (!p.HasValue || p.Value == "") && !m.flags.Has(NotSetRport) && rport > 0 {
			via.SetParam("rport", strconv.Itoa(rport))
		}
	}

	if !m.answer {
		from := m.Header("From")
		if from == nil {
			from = m.AddHeader("From", "<sip:"+escapeUser(user)+"@"+domain+">")
		}
		if !from.HasParam("tag") {
			from.SetParam("tag", newTag())
		}
	}

	to := m.Header("To")
	if to == nil && !m.answer {
		to = m.AddHeader("To", "<"+m.URI+">")
	}
	if to != nil && tag != "" && !to.HasParam("tag") {
		to.SetParam("tag", tag)
	}

	if !m.answer && m.Header("Call-ID") == nil {
		m.AddHeader("Call-ID", util.RandHex(8)+"@"+domain)
	}

	if !m.answer {
		if cs := m.Header("CSeq"); cs != nil {
			if m.cseq <= 0 {
				num, _, _ := strings.Cut(cs.Value, " ")
				if n, err := strconv.Atoi(num); err == nil {
					m.cseq = n
				}
			}
		} else {
			if m.cseq <= 0 {
				seq := m.seq
				if seq == nil {
					seq = e.Sequence()
				}
				m.cseq = seq.Next()
			}
			m.AddHeader("CSeq", strconv.Itoa(m.cseq)+" "+m.Method)
		}
	}

	if !m.answer && m.Header("Max-Forwards") == nil {
		m.AddHeader("Max-Forwards", strconv.Itoa(e.MaxForwards()))
	}

	if m.Header("Contact") == nil {
		if m.answer {
			if to != nil {
				m.AddHeader("Contact", to.Value)
			}
		} else {
			if lport == defaultPort {
				lport = 0
			}
			m.AddHeader("Contact", "<sip:"+escapeUser(user)+"@"+joinHostPort(laddr, lport)+">")
		}
	}

	agent := "User-Agent"
	if m.answer {
		agent = "Server"
	}
	if ua := e.UserAgent(); ua != "" && !m.flags.Has(NotAddAgent) && m.Header(agent) == nil {
		m.AddHeader(agent, ua)
	}

	if !m.flags.Has(NotAddAllow) && m.Header("Allow") == nil {
		m.AddHeader("Allow", e.Allowed())
	}
	return nil
}

func newBranch() string { return BranchCookie + util.RandHex(8) }

func newTag() string { return util.RandHex(4) }

// joinHostPort renders addr with an optional port, IPv6 addresses in brackets.
func joinHostPort(addr string, port int) string {
	if port <= 0 {
		if strings.IndexByte(addr, ':') >= 0 {
			return "[" + addr + "]"
		}
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(port))
}

func escapeUser(s string) string {
	const special = "@%<>\"+?&;"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e || strings.IndexByte(special, c) >= 0 {
			sb.WriteByte('%')
			sb.WriteString(strings.ToUpper(strconv.FormatUint(uint64(c)|0x100, 16)[1:]))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
