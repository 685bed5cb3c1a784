package uri_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vir/ysip/uri"
)

type parts struct {
	Desc, Scheme, User, Host, Extra, Address string
	Port                                     int
}

func partsOf(u *uri.URI) parts {
	return parts{
		Desc:    u.Description(),
		Scheme:  u.Scheme(),
		User:    u.User(),
		Host:    u.Host(),
		Extra:   u.Extra(),
		Address: u.Address(),
		Port:    u.Port(),
	}
}

func TestURI_Parse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  parts
	}{
		{
			"sip with user and port",
			"sip:alice@example.com:5060",
			parts{Scheme: "sip", User: "alice", Host: "example.com", Port: 5060, Address: "sip:alice@example.com:5060"},
		},
		{
			"quoted description",
			`"Alice" <sip:alice@example.com>;tag=abc`,
			parts{Desc: "Alice", Scheme: "sip", User: "alice", Host: "example.com", Address: "sip:alice@example.com"},
		},
		{
			"bare description",
			"Alice Smith <sip:alice@Example.COM;transport=tcp>",
			parts{
				Desc:    "Alice Smith",
				Scheme:  "sip",
				User:    "alice",
				Host:    "example.com",
				Extra:   ";transport=tcp",
				Address: "sip:alice@Example.COM;transport=tcp",
			},
		},
		{
			"angle brackets only",
			"<SIP:bob@10.0.0.1:5080>",
			parts{Scheme: "sip", User: "bob", Host: "10.0.0.1", Port: 5080, Address: "SIP:bob@10.0.0.1:5080"},
		},
		{
			"host only with params",
			"sip:example.com;lr",
			parts{Scheme: "sip", Host: "example.com", Extra: ";lr", Address: "sip:example.com;lr"},
		},
		{
			"escaped user",
			"sip:al%20ice@example.com",
			parts{Scheme: "sip", User: "al ice", Host: "example.com", Address: "sip:al%20ice@example.com"},
		},
		{
			"ipv6 host",
			"sip:carol@[2001:db8::1]:5060",
			parts{Scheme: "sip", User: "carol", Host: "2001:db8::1", Port: 5060, Address: "sip:carol@[2001:db8::1]:5060"},
		},
		{
			"tel number goes to user",
			"tel:+15551234",
			parts{Scheme: "tel", User: "+15551234", Address: "tel:+15551234"},
		},
		{
			"no scheme",
			"alice@example.com",
			parts{User: "alice", Host: "example.com", Address: "alice@example.com"},
		},
		{"empty", "", parts{}},
		{"garbage", "<>?!", parts{Address: "<>?!"}},
		{"bad escape", "sip:a%zz@example.com", parts{Address: "sip:a%zz@example.com"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			u := uri.New(c.input)
			if diff := cmp.Diff(c.want, partsOf(u)); diff != "" {
				t.Errorf("parts mismatch (-want +got):\n%s", diff)
			}
			if got := u.String(); got != c.input {
				t.Errorf("u.String() = %q, want %q", got, c.input)
			}
		})
	}
}

func TestURI_Set(t *testing.T) {
	t.Parallel()

	u := uri.New("sip:alice@example.com")
	if got := u.User(); got != "alice" {
		t.Fatalf("u.User() = %q, want %q", got, "alice")
	}
	if !u.IsParsed() {
		t.Fatal("u.IsParsed() = false after accessor call")
	}

	u.Set("sip:bob@example.org:5070")
	if u.IsParsed() {
		t.Fatal("u.IsParsed() = true after Set")
	}
	want := parts{Scheme: "sip", User: "bob", Host: "example.org", Port: 5070, Address: "sip:bob@example.org:5070"}
	if diff := cmp.Diff(want, partsOf(u)); diff != "" {
		t.Errorf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                     string
		desc, scheme, user, host string
		port                     int
		wantStr                  string
	}{
		{"full", "Alice", "sip", "alice", "example.com", 5060, `"Alice" <sip:alice@example.com:5060>`},
		{"no desc", "", "sip", "alice", "example.com", 0, "sip:alice@example.com"},
		{"no user", "", "sip", "", "example.com", 5070, "sip:example.com:5070"},
		{"ipv6", "", "sip", "bob", "::1", 5060, "sip:bob@[::1]:5060"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			u := uri.Build(c.desc, c.scheme, c.user, c.host, c.port)
			if got := u.String(); got != c.wantStr {
				t.Errorf("u.String() = %q, want %q", got, c.wantStr)
			}
			if !u.IsParsed() {
				t.Error("built URI is not marked parsed")
			}
			if got := u.Host(); got != c.host {
				t.Errorf("u.Host() = %q, want %q", got, c.host)
			}

			// reparse of the built text gives the same components
			u2 := uri.New(u.String())
			if !u.Equal(u2) {
				t.Errorf("built %q is not equal to its reparse", u)
			}
			if got := u2.Description(); got != c.desc {
				t.Errorf("reparsed description = %q, want %q", got, c.desc)
			}
		})
	}
}

func TestURI_Equal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"sip:alice@example.com", "SIP:alice@EXAMPLE.com", true},
		{"sip:alice@example.com", `"Alice" <sip:alice@example.com>`, true},
		{"sip:alice@example.com", "sip:Alice@example.com", false},
		{"sip:alice@example.com", "sip:alice@example.com:5060", false},
		{"sip:alice@example.com", "sips:alice@example.com", false},
	}
	for _, c := range cases {
		if got := uri.New(c.a).Equal(uri.New(c.b)); got != c.want {
			t.Errorf("New(%q).Equal(New(%q)) = %v, want %v", c.a, c.b, got, c.want)
		}
	}

	var nilURI *uri.URI
	if !nilURI.Equal(nil) {
		t.Error("nil.Equal(nil) = false, want true")
	}
	if nilURI.Equal(uri.New("sip:a@b")) {
		t.Error("nil.Equal(uri) = true, want false")
	}
}

func TestURI_Clone(t *testing.T) {
	t.Parallel()

	u := uri.New("sip:alice@example.com")
	c := u.Clone()
	c.Set("sip:bob@example.com")
	if got := u.User(); got != "alice" {
		t.Errorf("original changed after clone Set: User() = %q", got)
	}
}
