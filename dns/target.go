package dns

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"strings"

	"braces.dev/errtrace"
)

// Default SIP ports.
const (
	DefaultPort    = 5060
	DefaultTLSPort = 5061
)

// Target is a resolved SIP server address.
type Target struct {
	// Proto is the upper case transport name: UDP, TCP, TLS or SCTP.
	Proto string
	// Host is the name the address was resolved from.
	Host string
	Addr netip.AddrPort
}

func (t Target) String() string { return strings.ToLower(t.Proto) + ":" + t.Addr.String() }

func (t Target) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("proto", t.Proto),
		slog.String("host", t.Host),
		slog.String("addr", t.Addr.String()),
	)
}

var naptrServices = map[string]string{
	"SIP+D2U":  "UDP",
	"SIP+D2T":  "TCP",
	"SIP+D2S":  "SCTP",
	"SIPS+D2T": "TLS",
}

func srvPrefix(proto string) (service, netw string) {
	switch proto {
	case "TCP":
		return "sip", "tcp"
	case "TLS":
		return "sips", "tcp"
	case "SCTP":
		return "sip", "sctp"
	default:
		return "sip", "udp"
	}
}

func defaultPort(proto string) int {
	if proto == "TLS" {
		return DefaultTLSPort
	}
	return DefaultPort
}

// ResolveSIP locates the servers of a SIP URI host as described in RFC 3263.
//
// An IP literal or an explicit port skips the NAPTR and SRV steps. Otherwise NAPTR
// records select the transports and SRV records, falling back to SRV queries for
// the allowed transports and finally to the address records of host.
// An empty proto allows any transport, secure restricts the choice to TLS.
func (r *Resolver) ResolveSIP(ctx context.Context, host string, port int, proto string, secure bool) ([]Target, error) {
	proto = strings.ToUpper(proto)
	if proto == "" && secure {
		proto = "TLS"
	}

	if ip, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return []Target{r.target(host, ip.Unmap(), port, proto)}, nil
	}
	if port > 0 {
		return errtrace.Wrap2(r.hostTargets(ctx, host, port, proto))
	}

	var targets []Target
	if recs, err := r.LookupNAPTR(ctx, host); err == nil {
		for _, rec := range recs {
			if !strings.EqualFold(rec.Flags, "s") {
				continue
			}
			tp, ok := naptrServices[strings.ToUpper(rec.Service)]
			if !ok || (proto != "" && tp != proto) {
				continue
			}
			ts, err := r.srvTargets(ctx, "", "", rec.Replacement, tp)
			if err != nil {
				continue
			}
			targets = append(targets, ts...)
		}
	} else if ctx.Err() != nil {
		return nil, errtrace.Wrap(ctx.Err())
	}
	if len(targets) > 0 {
		return targets, nil
	}

	protos := []string{proto}
	if proto == "" {
		protos = []string{"UDP", "TCP"}
	}
	for _, tp := range protos {
		svc, netw := srvPrefix(tp)
		ts, err := r.srvTargets(ctx, svc, netw, host, tp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errtrace.Wrap(ctx.Err())
			}
			continue
		}
		targets = append(targets, ts...)
	}
	if len(targets) > 0 {
		return targets, nil
	}

	return errtrace.Wrap2(r.hostTargets(ctx, host, 0, proto))
}

func (r *Resolver) target(host string, ip netip.Addr, port int, proto string) Target {
	if proto == "" {
		proto = "UDP"
	}
	if port <= 0 {
		port = defaultPort(proto)
	}
	return Target{Proto: proto, Host: host, Addr: netip.AddrPortFrom(ip, uint16(port))}
}

func (r *Resolver) hostTargets(ctx context.Context, host string, port int, proto string) ([]Target, error) {
	ips, err := r.LookupIP(ctx, host)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	targets := make([]Target, 0, len(ips))
	for _, ip := range ips {
		targets = append(targets, r.target(host, ip, port, proto))
	}
	return targets, nil
}

func (r *Resolver) srvTargets(ctx context.Context, service, netw, host, proto string) ([]Target, error) {
	recs, err := r.LookupSRV(ctx, service, netw, host)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	var targets []Target
	for _, rec := range recs {
		ts, err := r.hostTargets(ctx, rec.Target, int(rec.Port), proto)
		if err != nil {
			continue
		}
		targets = append(targets, ts...)
	}
	if len(targets) == 0 {
		return nil, errtrace.Wrap(&net.DNSError{Err: "no SRV targets", Name: host, IsNotFound: true})
	}
	return targets, nil
}
