// Package dns implements the RFC 3263 lookups used to locate SIP servers.
package dns

//go:generate go tool errtrace -w .

import (
	"cmp"
	"context"
	"errors"
	"net"
	"net/netip"
	"slices"
	"strings"
	"time"

	"braces.dev/errtrace"
	"github.com/miekg/dns"
)

// Resolver queries a DNS server with the miekg/dns client.
// The zero value uses the first server of /etc/resolv.conf.
type Resolver struct {
	// NameServer specifies the DNS server address (e.g., "8.8.8.8:53").
	// If empty, the system's default resolver configuration is used.
	NameServer string
	// Timeout specifies the timeout for DNS queries.
	// If zero, defaults to 5 seconds.
	Timeout time.Duration
	// Net is the client network, "udp" if empty.
	Net string
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 5 * time.Second
}

func (r *Resolver) nameserver() (string, error) {
	if r.NameServer != "" {
		if _, _, err := net.SplitHostPort(r.NameServer); err != nil {
			return net.JoinHostPort(r.NameServer, "53"), nil //nolint:nilerr
		}
		return r.NameServer, nil
	}

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	if len(conf.Servers) == 0 {
		return "", errtrace.Wrap(&net.DNSError{
			Err:  "no DNS servers configured",
			Name: "resolv.conf",
		})
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}

func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	ns, err := r.nameserver()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	client := &dns.Client{Net: r.Net, Timeout: r.timeout()}
	resp, _, err := client.ExchangeContext(ctx, m, ns)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, errtrace.Wrap(&net.DNSError{
			Err:        dns.RcodeToString[resp.Rcode],
			Name:       name,
			Server:     ns,
			IsNotFound: resp.Rcode == dns.RcodeNameError,
		})
	}
	return resp.Answer, nil
}

// LookupIP returns the A and AAAA addresses of host, IPv4 first.
// An IP literal is returned as is.
func (r *Resolver) LookupIP(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return []netip.Addr{ip.Unmap()}, nil
	}

	var ips []netip.Addr
	for _, qt := range [...]uint16{dns.TypeA, dns.TypeAAAA} {
		rrs, err := r.exchange(ctx, host, qt)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			if len(ips) > 0 {
				break
			}
			return nil, errtrace.Wrap(err)
		}
		for _, rr := range rrs {
			switch rr := rr.(type) {
			case *dns.A:
				if ip, ok := netip.AddrFromSlice(rr.A.To4()); ok {
					ips = append(ips, ip)
				}
			case *dns.AAAA:
				if ip, ok := netip.AddrFromSlice(rr.AAAA); ok {
					ips = append(ips, ip.Unmap())
				}
			}
		}
	}
	if len(ips) == 0 {
		return nil, errtrace.Wrap(&net.DNSError{Err: "no addresses", Name: host, IsNotFound: true})
	}
	return ips, nil
}

// SRV represents a SRV record.
type SRV struct {
	Target   string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// LookupSRV queries _service._proto.host SRV records.
// An empty service and proto query host directly.
// Records are sorted by Priority (ascending), then by Weight (descending).
func (r *Resolver) LookupSRV(ctx context.Context, service, proto, host string) ([]*SRV, error) {
	name := host
	if service != "" || proto != "" {
		name = "_" + service + "._" + proto + "." + host
	}
	rrs, err := r.exchange(ctx, name, dns.TypeSRV)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	recs := make([]*SRV, 0, len(rrs))
	for _, rr := range rrs {
		if rr, ok := rr.(*dns.SRV); ok {
			recs = append(recs, &SRV{
				Target:   strings.TrimSuffix(rr.Target, "."),
				Port:     rr.Port,
				Priority: rr.Priority,
				Weight:   rr.Weight,
			})
		}
	}
	slices.SortStableFunc(recs, func(a, b *SRV) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(b.Weight, a.Weight)
	})
	return recs, nil
}

// NAPTR represents a NAPTR DNS record as defined in RFC 3403.
type NAPTR struct {
	// Order specifies the order in which NAPTR records must be processed.
	// Lower values are processed first.
	Order uint16
	// Preference specifies the preference for records with equal Order values.
	// Lower values are preferred.
	Preference uint16
	// Flags control aspects of the rewriting and interpretation of fields.
	// Common flags: "s" (SRV lookup), "a" (A/AAAA lookup), "u" (terminal URI).
	Flags string
	// Service specifies the service and protocol available.
	// For SIP: "SIP+D2U" (UDP), "SIP+D2T" (TCP), "SIP+D2S" (SCTP), "SIPS+D2T" (TLS).
	Service string
	Regexp  string
	// Replacement is the next domain name to query.
	Replacement string
}

// LookupNAPTR queries NAPTR records for the given host.
// Returns records sorted by Order (ascending), then by Preference (ascending).
func (r *Resolver) LookupNAPTR(ctx context.Context, host string) ([]*NAPTR, error) {
	rrs, err := r.exchange(ctx, host, dns.TypeNAPTR)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	recs := make([]*NAPTR, 0, len(rrs))
	for _, rr := range rrs {
		if rr, ok := rr.(*dns.NAPTR); ok {
			recs = append(recs, &NAPTR{
				Order:       rr.Order,
				Preference:  rr.Preference,
				Flags:       rr.Flags,
				Service:     rr.Service,
				Regexp:      rr.Regexp,
				Replacement: strings.TrimSuffix(rr.Replacement, "."),
			})
		}
	}
	slices.SortStableFunc(recs, func(a, b *NAPTR) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Preference, b.Preference)
	})
	return recs, nil
}

func isNotFound(err error) bool {
	var de *net.DNSError
	return errors.As(err, &de) && de.IsNotFound
}

var defResolver = &Resolver{}

func DefaultResolver() *Resolver { return defResolver }
