package uri

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/vir/ysip/internal/util"
)

var (
	quotedDescRe = regexp.MustCompile(`^\s*"([^"]+)"\s*(.*)$`)
	bareDescRe   = regexp.MustCompile(`^\s*([^<]*[^<\s])\s*<([^>]+)`)
	angleAddrRe  = regexp.MustCompile(`<([^>]+)>`)
	addrRe       = regexp.MustCompile(
		`^([A-Za-z][A-Za-z0-9]+:)?/?/?([^\s\x00-\x1f\x7f@]+@)?([A-Za-z0-9._+-]+|\[[0-9A-Fa-f.:]+\])(:[0-9]+)?`,
	)
)

// URI is a SIP URI or name-addr value.
// The zero value is an empty URI.
type URI struct {
	raw string

	parsed bool
	addr   string
	desc,
	scheme,
	user,
	host,
	extra string
	port int
}

// New creates a URI from its text form.
// The text is parsed on first access to any of the components.
func New(raw string) *URI {
	return &URI{raw: raw}
}

// Build creates a URI from components.
// A non-empty desc is rendered as a quoted display name and the address is wrapped in angle brackets.
// A zero port is omitted, a host containing ':' is rendered in brackets.
func Build(desc, scheme, user, host string, port int) *URI {
	var sb strings.Builder
	sb.WriteString(scheme)
	sb.WriteByte(':')
	sb.WriteString(user)
	if host != "" {
		if user != "" {
			sb.WriteByte('@')
		}
		if strings.IndexByte(host, ':') >= 0 {
			sb.WriteByte('[')
			sb.WriteString(host)
			sb.WriteByte(']')
		} else {
			sb.WriteString(host)
		}
		if port > 0 {
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(port))
		}
	}
	addr := sb.String()

	u := &URI{
		parsed: true,
		addr:   addr,
		desc:   desc,
		scheme: scheme,
		user:   user,
		host:   host,
		port:   port,
	}
	if desc != "" {
		u.raw = `"` + desc + `" <` + addr + `>`
	} else {
		u.raw = addr
	}
	return u
}

// String returns the text the URI was created from.
func (u *URI) String() string {
	if u == nil {
		return ""
	}
	return u.raw
}

// Set replaces the URI text and drops the parsed components.
func (u *URI) Set(raw string) {
	u.raw = raw
	u.Invalidate()
}

// Invalidate drops the cached components so that the next accessor call parses the text again.
func (u *URI) Invalidate() {
	u.parsed = false
}

// IsParsed reports whether the components are cached.
func (u *URI) IsParsed() bool { return u.parsed }

// Description returns the display name.
func (u *URI) Description() string {
	u.Parse()
	return u.desc
}

// Scheme returns the lower-cased URI scheme without the trailing colon.
func (u *URI) Scheme() string {
	u.Parse()
	return u.scheme
}

// User returns the unescaped user part.
func (u *URI) User() string {
	u.Parse()
	return u.user
}

// Host returns the lower-cased host without IPv6 brackets.
func (u *URI) Host() string {
	u.Parse()
	return u.host
}

// Port returns the port or zero if the URI has none.
func (u *URI) Port() int {
	u.Parse()
	return u.port
}

// Extra returns everything that follows the host and port.
func (u *URI) Extra() string {
	u.Parse()
	return u.extra
}

// Address returns the URI text reduced to the address: the display name and
// the angle brackets are removed.
func (u *URI) Address() string {
	u.Parse()
	return u.addr
}

// IsZero reports whether the URI has neither a scheme nor a host nor a user.
func (u *URI) IsZero() bool {
	return u == nil || u.Scheme() == "" && u.Host() == "" && u.User() == ""
}

// Parse splits the URI text into components and caches them.
// Calling it on an already parsed URI does nothing.
func (u *URI) Parse() {
	if u.parsed {
		return
	}
	u.parsed = true
	u.desc, u.scheme, u.user, u.host, u.extra, u.port = "", "", "", "", "", 0

	tmp := u.raw
	if m := quotedDescRe.FindStringSubmatch(tmp); m != nil {
		u.desc, tmp = m[1], m[2]
	} else if m := bareDescRe.FindStringSubmatch(tmp); m != nil {
		u.desc, tmp = m[1], m[2]
	}
	if m := angleAddrRe.FindStringSubmatch(tmp); m != nil {
		tmp = m[1]
	}
	u.addr = tmp

	idx := addrRe.FindStringSubmatchIndex(tmp)
	if idx == nil || !u.parseAddr(tmp, idx) {
		u.desc, u.scheme, u.user, u.host, u.extra, u.port = "", "", "", "", "", 0
	}
}

func (u *URI) parseAddr(s string, idx []int) bool {
	group := func(n int) string {
		if idx[2*n] < 0 {
			return ""
		}
		return s[idx[2*n]:idx[2*n+1]]
	}

	scheme := util.LCase(strings.TrimSuffix(group(1), ":"))
	user := strings.TrimSuffix(group(2), "@")
	if scheme != "" && scheme != "jabber" && scheme != "xmpp" {
		var err error
		if user, err = url.PathUnescape(user); err != nil {
			return false
		}
	}
	host, err := url.PathUnescape(group(3))
	if err != nil {
		return false
	}
	host = util.LCase(host)
	if user == "" && scheme == "tel" {
		user, host = host, ""
	}
	if strings.HasPrefix(host, "[") {
		host = host[1 : len(host)-1]
	}

	var port int
	if p := group(4); p != "" {
		port, _ = strconv.Atoi(p[1:])
	}

	u.scheme, u.user, u.host, u.port = scheme, user, host, port
	u.extra = s[idx[1]:]
	return true
}

// Clone returns a deep copy of the URI.
func (u *URI) Clone() *URI {
	if u == nil {
		return nil
	}
	u2 := *u
	return &u2
}

// Equal reports whether two URIs address the same resource:
// schemes and hosts are compared case-insensitively, users and ports exactly.
func (u *URI) Equal(v *URI) bool {
	if u == nil || v == nil {
		return u == v
	}
	return util.EqFold(u.Scheme(), v.Scheme()) &&
		u.User() == v.User() &&
		util.EqFold(u.Host(), v.Host()) &&
		u.Port() == v.Port()
}
