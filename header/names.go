package header

import "github.com/vir/ysip/internal/util"

var compactForms = [...][2]string{
	{"a", "Accept-Contact"},
	{"u", "Allow-Events"},
	{"i", "Call-ID"},
	{"m", "Contact"},
	{"e", "Content-Encoding"},
	{"l", "Content-Length"},
	{"c", "Content-Type"},
	{"o", "Event"},
	{"f", "From"},
	{"y", "Identity"},
	{"n", "Identity-Info"},
	{"r", "Refer-To"},
	{"b", "Referred-By"},
	{"j", "Reject-Contact"},
	{"d", "Request-Disposition"},
	{"x", "Session-Expires"},
	{"s", "Subject"},
	{"k", "Supported"},
	{"t", "To"},
	{"v", "Via"},
}

// Uncompact returns the full header name for a single letter compact form.
// Any other name is returned as is.
func Uncompact(name string) string {
	if len(name) != 1 {
		return name
	}
	for _, f := range compactForms {
		if util.EqFold(f[0], name) {
			return f[1]
		}
	}
	return name
}

// Compact returns the single letter compact form of the header name.
// Names without a compact form are returned as is.
func Compact(name string) string {
	for _, f := range compactForms {
		if util.EqFold(f[1], name) {
			return f[0]
		}
	}
	return name
}

var authNames = [...]string{
	"WWW-Authenticate",
	"Proxy-Authenticate",
	"Authorization",
	"Proxy-Authorization",
}

// IsAuthName reports whether the header carries credentials or an auth challenge.
func IsAuthName(name string) bool {
	for _, n := range authNames {
		if util.EqFold(n, name) {
			return true
		}
	}
	return false
}
