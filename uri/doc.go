// Package uri provides a lenient, lazily parsed representation of the URIs
// and name-addr values found in SIP messages.
//
// # Overview
//
// A [URI] keeps the text it was created from and splits it into components
// only when one of the accessors is called for the first time. The parsed
// components are cached until the text is replaced with [URI.Set] or the cache
// is dropped with [URI.Invalidate].
//
// The parser accepts the usual name-addr forms:
//
//	"Alice" <sip:alice@example.com:5060>;tag=1
//	Alice <sip:alice@example.com>
//	<sip:alice@example.com>
//	sip:alice@example.com
//
// and extracts from them:
//
//	u := uri.New(`"Alice" <sip:alice@example.com:5060>`)
//	u.Description() // "Alice"
//	u.Scheme()      // "sip"
//	u.User()        // "alice"
//	u.Host()        // "example.com"
//	u.Port()        // 5060
//	u.Address()     // "sip:alice@example.com:5060"
//
// Scheme and host are lower-cased, the user part is percent-unescaped,
// brackets around IPv6 hosts are removed. Anything after the host and port
// (URI parameters, headers, path) is available through [URI.Extra].
//
// # Failures
//
// Parsing never fails with an error. Text that does not look like a URI
// yields empty components, callers must check for emptiness.
//
// # Thread Safety
//
// URI values are not safe for concurrent use: even the read accessors
// populate the internal cache. Use [URI.Clone] to share a URI across goroutines.
package uri
