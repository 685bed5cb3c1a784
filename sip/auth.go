package sip

import (
	"crypto/md5"
	"fmt"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/icholy/digest"

	"github.com/vir/ysip/header"
	"github.com/vir/ysip/internal/util"
)

// QOP is the quality of protection data of a digest computation.
// Only the "auth" protection is supported.
type QOP struct {
	QOP string
	// NC is the nonce count as 8 hex digits.
	NC     string
	CNonce string
}

func (q *QOP) isAuth() bool { return q != nil && q.QOP == "auth" }

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// BuildAuth computes a digest response from plain credentials:
// MD5(MD5(user:realm:pass):nonce:MD5(method:uri)).
// With qop=auth the nc, cnonce and qop values are inserted before the second hash.
// It returns an empty string if the qop data is unusable.
func BuildAuth(user, realm, pass, nonce, method, uri string, qop *QOP) string {
	return digestResponse(digest.Options{Method: method, URI: uri, Username: user, Password: pass}, realm, nonce, qop)
}

// digestResponse computes the MD5 digest response for o.
// The HA1 is taken from o.A1 if set, otherwise from the username and password.
func digestResponse(o digest.Options, realm, nonce string, qop *QOP) string {
	chal := &digest.Challenge{Realm: realm, Nonce: nonce, Algorithm: "MD5"}
	if qop.isAuth() {
		nc, err := strconv.ParseUint(qop.NC, 16, 32)
		if err != nil || nc == 0 || qop.CNonce == "" {
			return ""
		}
		chal.QOP = []string{"auth"}
		o.Count = int(nc)
		o.Cnonce = qop.CNonce
	}
	cred, err := digest.Digest(chal, o)
	if err != nil {
		return ""
	}
	return cred.Response
}

// BuildAuthHash computes a digest response from precomputed hashes: MD5(ha1:nonce:ha2).
func BuildAuthHash(ha1, nonce, ha2 string) string {
	return md5Hex(ha1 + ":" + nonce + ":" + ha2)
}

// BuildAuth answers a Digest challenge carried by this 401 or 407 response.
// It returns an Authorization line, or a Proxy-Authorization line if proxy is set,
// or nil if the response holds no usable challenge.
//
// The uri is stripped of its parameters. For qop=auth challenges the nonce count is taken
// from e, if given.
func (m *Message) BuildAuth(user, pass, method, uri string, proxy bool, e *Engine) *header.Line {
	hdr, name := "WWW-Authenticate", "Authorization"
	if proxy {
		hdr, name = "Proxy-Authenticate", "Proxy-Authorization"
	}
	uri, _, _ = strings.Cut(uri, ";")
	for ch := range m.HeadersNamed(hdr) {
		if !util.EqFold(ch.Value, "Digest") {
			continue
		}
		nonce := header.Unquote(ch.ParamValue("nonce"), false)
		if nonce == "" {
			continue
		}
		realm := header.Unquote(ch.ParamValue("realm"), false)

		chal := &digest.Challenge{Realm: realm, Nonce: nonce, Algorithm: "MD5"}
		o := digest.Options{Method: method, URI: uri, Username: user, Password: pass}
		if p, ok := ch.Param("qop"); ok {
			if header.Unquote(p.Value, false) != "auth" {
				continue
			}
			chal.QOP = []string{"auth"}
			o.Count = 1
			if e != nil {
				o.Count = int(e.nextNonceCount())
			}
		}
		cred, err := digest.Digest(chal, o)
		if err != nil {
			continue
		}

		l := header.NewAuthLine(name, "Digest").
			SetParam("username", header.Quote(user, true)).
			SetParam("realm", header.Quote(realm, true)).
			SetParam("nonce", header.Quote(nonce, true)).
			SetParam("uri", header.Quote(uri, true)).
			SetParam("response", header.Quote(cred.Response, true)).
			SetParam("algorithm", "MD5")
		if p, ok := ch.Param("opaque"); ok {
			l.SetParam(p.Name, p.Value)
		}
		if cred.QOP != "" {
			l.SetParam("qop", cred.QOP).
				SetParam("nc", fmt.Sprintf("%08x", cred.Nc)).
				SetParam("cnonce", header.Quote(cred.Cnonce, true))
		}
		return l
	}
	return nil
}

// BuildAuthFor answers the challenge of this response with the credentials stored
// on the original request by [Message.SetAuth].
// A 407 response is answered with Proxy-Authorization.
// It returns nil if the original has no stored username.
func (m *Message) BuildAuthFor(original *Message, e *Engine) *header.Line {
	if original == nil || original.authUser == "" {
		return nil
	}
	return m.BuildAuth(original.authUser, original.authPass, original.Method, original.URI, m.Code == int(StatusProxyAuthenticationRequired), e)
}
