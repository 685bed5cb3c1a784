package sip

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/icholy/digest"

	"github.com/vir/ysip/header"
	"github.com/vir/ysip/internal/util"
)

// Credentials are the digest credentials of a request
// taken from an Authorization or Proxy-Authorization line.
type Credentials struct {
	Username string
	Realm    string
	Nonce    string
	Method   string
	URI      string
	Response string
	// QOP is set when the credentials were computed with qop=auth.
	QOP *QOP
	// Message is the request carrying the credentials.
	Message *Message
	// Line is the credential header line, nil for requests checked without one.
	Line *header.Line
}

// Verify reports whether the response was computed with password.
func (c *Credentials) Verify(password string) bool {
	return c.verify(digest.Options{Username: c.Username, Password: password})
}

// VerifyHA1 reports whether the response was computed with the hash
// MD5(username:realm:password), for user stores that keep no plain passwords.
func (c *Credentials) VerifyHA1(ha1 string) bool {
	if ha1 == "" {
		return false
	}
	return c.verify(digest.Options{Username: c.Username, A1: util.LCase(ha1)})
}

func (c *Credentials) verify(o digest.Options) bool {
	if c.Response == "" {
		return false
	}
	o.Method, o.URI = c.Method, c.URI
	want := digestResponse(o, c.Realm, c.Nonce, c.QOP)
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(util.LCase(c.Response))) == 1
}

func (c *Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("realm", c.Realm),
		slog.String("method", c.Method),
		slog.String("uri", c.URI),
	)
}

// UserChecker checks digest credentials against a user store.
type UserChecker interface {
	CheckUser(ctx context.Context, cred *Credentials) bool
}

// UserCheckerFunc is a function adapter for [UserChecker].
type UserCheckerFunc func(ctx context.Context, cred *Credentials) bool

func (fn UserCheckerFunc) CheckUser(ctx context.Context, cred *Credentials) bool {
	return fn(ctx, cred)
}

// UserPasswords is a [UserChecker] over plain passwords indexed by username.
type UserPasswords map[string]string

func (up UserPasswords) CheckUser(_ context.Context, cred *Credentials) bool {
	pass, ok := up[cred.Username]
	return ok && cred.Verify(pass)
}

// ForeignAuth describes a request that carries no usable digest credential.
type ForeignAuth struct {
	// NoDigest is set if no Digest line with a valid nonce was found.
	NoDigest bool
	// User is the expected username, possibly empty.
	User    string
	Message *Message
	// Line is the first credential line of the request, whatever its scheme.
	Line *header.Line
}

// ForeignAuthChecker authenticates requests by other means than digest,
// for example by the source address or a non-Digest scheme.
// It returns the authenticated username.
type ForeignAuthChecker interface {
	CheckAuth(ctx context.Context, auth *ForeignAuth) (string, bool)
}

// ForeignAuthCheckerFunc is a function adapter for [ForeignAuthChecker].
type ForeignAuthCheckerFunc func(ctx context.Context, auth *ForeignAuth) (string, bool)

func (fn ForeignAuthCheckerFunc) CheckAuth(ctx context.Context, auth *ForeignAuth) (string, bool) {
	return fn(ctx, auth)
}

// Nonce returns the current digest nonce.
// A new nonce is issued every second: hex(MD5(secret "." seconds)) "." seconds.
func (e *Engine) Nonce() string {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()

	t := e.now().Unix()
	if t != e.nonceTime || e.nonce == "" {
		e.nonceTime = t
		ts := strconv.FormatInt(t, 10)
		e.nonce = md5Hex(e.nonceSecret+"."+ts) + "." + ts
		e.metrics.nonceIssued()
	}
	return e.nonce
}

// NonceAge returns the age in seconds of a nonce issued by this engine,
// or -1 if the nonce was not issued by it.
func (e *Engine) NonceAge(nonce string) int64 {
	if nonce == "" {
		return -1
	}

	now := e.now().Unix()
	e.nonceMu.Lock()
	if nonce == e.nonce {
		age := now - e.nonceTime
		e.nonceMu.Unlock()
		return age
	}
	e.nonceMu.Unlock()

	hash, ts, ok := strings.Cut(nonce, ".")
	if !ok || ts == "" {
		return -1
	}
	t, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || t < 0 {
		return -1
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(md5Hex(e.nonceSecret+"."+ts))) != 1 {
		return -1
	}
	return now - t
}

// NonceCount returns the next nonce count as 8 hex digits.
// The count wraps around skipping 0.
func (e *Engine) NonceCount() string {
	return fmt.Sprintf("%08x", e.nextNonceCount())
}

func (e *Engine) nextNonceCount() uint32 {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()
	e.nc++
	if e.nc == 0 {
		e.nc++
	}
	return e.nc
}

// Challenge builds a WWW-Authenticate line, or a Proxy-Authenticate line
// if proxy is set, carrying the current nonce.
func (e *Engine) Challenge(realm string, proxy, stale bool) *header.Line {
	name := "WWW-Authenticate"
	if proxy {
		name = "Proxy-Authenticate"
	}
	st := "FALSE"
	if stale {
		st = "TRUE"
	}
	return header.NewAuthLine(name, "Digest").
		SetParam("realm", header.Quote(realm, true)).
		SetParam("nonce", header.Quote(e.Nonce(), true)).
		SetParam("stale", st).
		SetParam("algorithm", "MD5")
}

// AuthUser authenticates a request by its Authorization lines,
// or Proxy-Authorization lines if proxy is set.
//
// Among the Digest lines carrying a nonce issued by this engine the freshest is used.
// If user is not empty the line must be for that user.
// The credentials are checked by the engine [UserChecker].
//
// It returns the nonce age and the authenticated username.
// Requests authenticated by the [ForeignAuthChecker] have age 0.
// An age of -1 means authentication failed.
func (e *Engine) AuthUser(ctx context.Context, m *Message, user string, proxy bool) (int64, string) {
	if m == nil {
		return -1, user
	}
	age, usr, ok := e.authUser(ctx, m, user, proxy)
	e.metrics.authChecked(ok)
	if !ok {
		return -1, user
	}
	return age, usr
}

func (e *Engine) authUser(ctx context.Context, m *Message, user string, proxy bool) (int64, string, bool) {
	name := "Authorization"
	if proxy {
		name = "Proxy-Authorization"
	}

	var (
		authLine, bestLine *header.Line
		bestAge            int64 = -1
		bestNonce          string
	)
	for l := range m.HeadersNamed(name) {
		if authLine == nil {
			authLine = l
		}
		if !util.EqFold(l.Value, "Digest") {
			continue
		}
		nonce := header.Unquote(l.ParamValue("nonce"), false)
		if nonce == "" {
			continue
		}
		age := e.NonceAge(nonce)
		if age < 0 {
			continue
		}
		if bestAge < 0 || bestAge > age {
			bestAge, bestNonce, bestLine = age, nonce, l
		}
		if authLine == l {
			authLine = nil
		}
	}

	if bestLine != nil {
		usr := header.Unquote(bestLine.ParamValue("username"), false)
		if usr != "" && (user == "" || usr == user) {
			cred := &Credentials{
				Username: usr,
				Realm:    header.Unquote(bestLine.ParamValue("realm"), false),
				Nonce:    bestNonce,
				Method:   m.Method,
				URI:      header.Unquote(bestLine.ParamValue("uri"), false),
				Response: header.Unquote(bestLine.ParamValue("response"), false),
				Message:  m,
				Line:     bestLine,
			}
			if cred.URI == "" {
				cred.URI = m.URI
			}
			if q := header.Unquote(bestLine.ParamValue("qop"), false); q != "" {
				cred.QOP = &QOP{
					QOP:    q,
					NC:     bestLine.ParamValue("nc"),
					CNonce: header.Unquote(bestLine.ParamValue("cnonce"), false),
				}
			}
			if cred.Response != "" && e.users != nil && e.users.CheckUser(ctx, cred) {
				e.log().LogAttrs(ctx, slog.LevelDebug, "authenticated user",
					slog.Any("credentials", cred),
					slog.Int64("nonce_age", bestAge),
				)
				return bestAge, usr, true
			}
		} else {
			bestLine = nil
		}
	}

	return e.checkAuth(ctx, bestLine == nil, user, m, authLine)
}

func (e *Engine) checkAuth(ctx context.Context, noDigest bool, user string, m *Message, line *header.Line) (int64, string, bool) {
	if e.foreign != nil {
		usr, ok := e.foreign.CheckAuth(ctx, &ForeignAuth{NoDigest: noDigest, User: user, Message: m, Line: line})
		if !ok {
			return -1, user, false
		}
		if usr == "" {
			usr = user
		}
		return 0, usr, true
	}
	if !noDigest || e.users == nil {
		return -1, user, false
	}
	cred := &Credentials{Username: user, Method: m.Method, URI: m.URI, Message: m, Line: line}
	if !e.users.CheckUser(ctx, cred) {
		return -1, user, false
	}
	return 0, user, true
}

// IsAllowed reports whether method is in the list of accepted methods.
func (e *Engine) IsAllowed(method string) bool {
	e.allowMu.RLock()
	defer e.allowMu.RUnlock()
	return allowedHas(e.allowed, method)
}

func allowedHas(list, method string) bool {
	if method == "" {
		return false
	}
	for tok := range strings.SplitSeq(list, ",") {
		if util.TrimBlanks(tok) == method {
			return true
		}
	}
	return false
}

// AddAllowed appends a method to the list of accepted methods.
func (e *Engine) AddAllowed(method string) {
	method = util.TrimBlanks(method)
	if method == "" {
		return
	}
	e.allowMu.Lock()
	defer e.allowMu.Unlock()
	if !allowedHas(e.allowed, method) {
		e.allowed += ", " + method
	}
}

// Allowed returns the list of accepted methods as written to Allow headers.
func (e *Engine) Allowed() string {
	e.allowMu.RLock()
	defer e.allowMu.RUnlock()
	return e.allowed
}
