package sip_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/mock/gomock"

	"github.com/vir/ysip/dns"
	"github.com/vir/ysip/sip"
	"github.com/vir/ysip/sip/sipmock"
)

func TestBaseParty(t *testing.T) {
	t.Parallel()

	p := sip.NewBaseParty("tls", true)
	p.SetAddr("192.0.2.1", 5061, true)
	p.SetAddr("2001:db8::2", 5071, false)

	if got := p.ProtoName(); got != "TLS" {
		t.Errorf("p.ProtoName() = %q, want \"TLS\"", got)
	}
	if !p.IsReliable() {
		t.Errorf("p.IsReliable() = false, want true")
	}
	if addr, port := p.LocalAddr(); addr != "192.0.2.1" || port != 5061 {
		t.Errorf("p.LocalAddr() = (%q, %d), want (\"192.0.2.1\", 5061)", addr, port)
	}
	if addr, port := p.PartyAddr(); addr != "2001:db8::2" || port != 5071 {
		t.Errorf("p.PartyAddr() = (%q, %d), want (\"2001:db8::2\", 5071)", addr, port)
	}
}

func TestDNSPartyResolver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	party := newTestParty(true)

	cases := []struct {
		name  string
		uri   string
		route string
		proto string
		want  dns.Target
	}{
		{
			"request uri",
			"sip:bob@192.0.2.5:5070;transport=tcp",
			"",
			"",
			dns.Target{Proto: "TCP", Host: "192.0.2.5", Addr: netip.MustParseAddrPort("192.0.2.5:5070")},
		},
		{
			"default proto and port",
			"sip:bob@192.0.2.5",
			"",
			"udp",
			dns.Target{Proto: "UDP", Host: "192.0.2.5", Addr: netip.MustParseAddrPort("192.0.2.5:5060")},
		},
		{
			"first route",
			"sip:bob@example.com",
			"<sip:192.0.2.9;lr>",
			"",
			dns.Target{Proto: "UDP", Host: "192.0.2.9", Addr: netip.MustParseAddrPort("192.0.2.9:5060")},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			var got dns.Target
			r := &sip.DNSPartyResolver{
				Dialer: sip.PartyDialerFunc(func(_ context.Context, target dns.Target) (sip.Party, error) {
					got = target
					return party, nil
				}),
				Proto: c.proto,
			}
			m := sip.NewRequest(sip.MethodOptions, c.uri)
			if c.route != "" {
				m.AddHeader("Route", c.route)
			}

			p, err := r.ResolveParty(ctx, m)
			if err != nil {
				t.Fatalf("r.ResolveParty() error = %v, want nil", err)
			}
			if p != party {
				t.Errorf("r.ResolveParty() = %v, want the dialed party", p)
			}
			if diff := cmp.Diff(got, c.want, cmp.Comparer(func(a, b netip.AddrPort) bool { return a == b })); diff != "" {
				t.Errorf("dialed target mismatch (-got +want):\n%v", diff)
			}
		})
	}
}

func TestDNSPartyResolver_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)

	dialer := sipmock.NewMockPartyDialer(ctrl)
	dialer.EXPECT().
		DialParty(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).
		Times(1)

	cases := []struct {
		name string
		r    *sip.DNSPartyResolver
		uri  string
		want error
	}{
		{"no dialer", &sip.DNSPartyResolver{}, "sip:bob@192.0.2.5", sip.ErrInvalidArgument},
		{"no host", &sip.DNSPartyResolver{Dialer: dialer}, "", sip.ErrNoTarget},
		{"unreachable", &sip.DNSPartyResolver{Dialer: dialer}, "sip:bob@192.0.2.5", sip.ErrNoTarget},
	}
	for _, c := range cases {
		p, err := c.r.ResolveParty(ctx, sip.NewRequest(sip.MethodOptions, c.uri))
		if diff := cmp.Diff(err, c.want, cmpopts.EquateErrors()); diff != "" {
			t.Errorf("%s: r.ResolveParty() error = %v, want %v\ndiff (-got +want):\n%v", c.name, err, c.want, diff)
		}
		if p != nil {
			t.Errorf("%s: r.ResolveParty() = %v, want nil", c.name, p)
		}
	}
}

func TestEngine_BuildParty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	party := sipmock.NewMockParty(ctrl)

	resolver := sipmock.NewMockPartyResolver(ctrl)
	gomock.InOrder(
		resolver.EXPECT().ResolveParty(gomock.Any(), gomock.Any()).Return(party, nil),
		resolver.EXPECT().ResolveParty(gomock.Any(), gomock.Any()).Return(nil, sip.ErrNoTarget),
	)
	e := sip.NewEngine(&sip.EngineOptions{Parties: resolver})

	m := sip.NewRequest(sip.MethodOptions, "sip:bob@example.com")
	if !e.BuildParty(ctx, m) || m.Party() != party {
		t.Fatalf("e.BuildParty() did not attach the resolved party")
	}
	// a message with a party is left alone
	if !e.BuildParty(ctx, m) {
		t.Errorf("e.BuildParty() = false, want true")
	}

	m = sip.NewRequest(sip.MethodOptions, "sip:bob@example.com")
	if e.BuildParty(ctx, m) || m.Party() != nil {
		t.Errorf("e.BuildParty() = true, want false on resolver failure")
	}
	if sip.NewEngine(nil).BuildParty(ctx, m) {
		t.Errorf("e.BuildParty() without resolver = true, want false")
	}
}
