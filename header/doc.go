// Package header implements the header line model of SIP messages.
//
// # Overview
//
// A [Line] is a single unfolded header: a name, a primary value and an ordered
// list of parameters. Two flavors exist:
//
//   - generic lines use ';' between parameters and never split inside
//     quoted strings or angle-bracketed URIs:
//
//     Via: SIP/2.0/UDP host:5060;branch=z9hG4bK123;rport
//     To: "Bob" <sip:bob@example.com;transport=tcp>;tag=1
//
//   - credential lines (WWW-Authenticate, Proxy-Authenticate, Authorization,
//     Proxy-Authorization) have the auth scheme as the primary value and use ','
//     between parameters, quoted values may contain commas:
//
//     Authorization: Digest username="alice", realm="a,b", nonce="x"
//
// Use [Parse] to pick the flavor from the header name, or [NewLine] and [NewAuthLine]
// to force one.
//
// # Parameters
//
// Parameter order is preserved. Names are compared case-insensitively. A parameter
// without '=' is a flag: its [Param.HasValue] is false, which is different from
// an empty value. Values are stored as received, quotes included; use [Unquote]
// to get the bare value and [Quote] before storing a value that needs quoting.
//
// # Header Names
//
// Names are stored as given. [Uncompact] expands the single letter compact forms
// of RFC 3261 and its extensions, [Compact] does the opposite.
package header
