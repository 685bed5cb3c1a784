package sip

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"braces.dev/errtrace"

	"github.com/vir/ysip/dns"
	"github.com/vir/ysip/internal/util"
	"github.com/vir/ysip/log"
	"github.com/vir/ysip/uri"
)

// Party is the transport endpoint a message is exchanged with.
// Implementations must be safe for concurrent use.
type Party interface {
	// Transmit sends the message of the event.
	Transmit(ev *Event) error
	// LocalAddr returns the local address and port.
	LocalAddr() (string, int)
	// PartyAddr returns the remote address and port.
	PartyAddr() (string, int)
	// ProtoName returns the transport name, e.g. UDP or TCP.
	ProtoName() string
	// IsReliable reports whether the transport is reliable.
	IsReliable() bool
}

// BaseParty implements the address bookkeeping of [Party].
// Transports embed it and add Transmit.
type BaseParty struct {
	mu       sync.RWMutex
	proto    string
	reliable bool

	laddr, raddr string
	lport, rport int
}

// NewBaseParty creates a base party for the given transport.
func NewBaseParty(proto string, reliable bool) *BaseParty {
	return &BaseParty{proto: util.UCase(proto), reliable: reliable}
}

// SetAddr updates the local or the remote address.
func (p *BaseParty) SetAddr(addr string, port int, local bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if local {
		p.laddr, p.lport = addr, port
	} else {
		p.raddr, p.rport = addr, port
	}
}

func (p *BaseParty) LocalAddr() (string, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.laddr, p.lport
}

func (p *BaseParty) PartyAddr() (string, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.raddr, p.rport
}

func (p *BaseParty) ProtoName() string { return p.proto }

func (p *BaseParty) IsReliable() bool { return p.reliable }

func (p *BaseParty) LogValue() slog.Value {
	laddr, lport := p.LocalAddr()
	raddr, rport := p.PartyAddr()
	return slog.GroupValue(
		slog.String("proto", p.proto),
		slog.String("local", joinHostPort(laddr, lport)),
		slog.String("remote", joinHostPort(raddr, rport)),
	)
}

// PartyResolver attaches transport parties to outgoing messages that have none.
type PartyResolver interface {
	ResolveParty(ctx context.Context, m *Message) (Party, error)
}

// PartyResolverFunc is a function adapter for [PartyResolver].
type PartyResolverFunc func(ctx context.Context, m *Message) (Party, error)

func (fn PartyResolverFunc) ResolveParty(ctx context.Context, m *Message) (Party, error) {
	return errtrace.Wrap2(fn(ctx, m))
}

// PartyDialer creates a transport party towards a resolved target.
// It is supplied by the transport layer.
type PartyDialer interface {
	DialParty(ctx context.Context, target dns.Target) (Party, error)
}

// PartyDialerFunc is a function adapter for [PartyDialer].
type PartyDialerFunc func(ctx context.Context, target dns.Target) (Party, error)

func (fn PartyDialerFunc) DialParty(ctx context.Context, target dns.Target) (Party, error) {
	return errtrace.Wrap2(fn(ctx, target))
}

// DNSPartyResolver locates the next hop of a request with RFC 3263 lookups
// and dials the first target that works.
//
// The next hop is the first Route, or the Request-URI if there is no Route.
type DNSPartyResolver struct {
	// Resolver is used for lookups. If nil, [dns.DefaultResolver] is used.
	Resolver *dns.Resolver
	// Dialer creates the party. It is required.
	Dialer PartyDialer
	// Proto is the default transport when the URI has no transport parameter.
	Proto  string
	Logger *slog.Logger
}

func (r *DNSPartyResolver) resolver() *dns.Resolver {
	if r.Resolver == nil {
		return dns.DefaultResolver()
	}
	return r.Resolver
}

func (r *DNSPartyResolver) log() *slog.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *DNSPartyResolver) ResolveParty(ctx context.Context, m *Message) (Party, error) {
	if r.Dialer == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("no party dialer"))
	}

	hop := m.URI
	if rt := m.Header("Route"); rt != nil {
		hop = rt.Value
	}
	u := uri.New(hop)
	if u.Host() == "" {
		return nil, errtrace.Wrap(newParseError(ErrNoTarget, "no host in %q", hop))
	}
	proto := uriTransport(u.Extra())
	if proto == "" {
		proto = r.Proto
	}

	targets, err := r.resolver().ResolveSIP(ctx, u.Host(), u.Port(), proto, util.EqFold(u.Scheme(), "sips"))
	if err != nil {
		return nil, errtrace.Wrap(newParseError(ErrNoTarget, err))
	}
	for _, t := range targets {
		p, err := r.Dialer.DialParty(ctx, t)
		if err != nil {
			r.log().LogAttrs(ctx, slog.LevelDebug, "failed to dial party",
				slog.Any("target", t),
				slog.Any("error", err),
			)
			continue
		}
		return p, nil
	}
	return nil, errtrace.Wrap(newParseError(ErrNoTarget, "no reachable target for %q", hop))
}

// uriTransport returns the transport parameter of the URI parameters text.
func uriTransport(extra string) string {
	for _, p := range strings.Split(extra, ";") {
		name, val, ok := strings.Cut(p, "=")
		if ok && util.EqFold(util.TrimBlanks(name), "transport") {
			return util.TrimBlanks(val)
		}
	}
	return ""
}
