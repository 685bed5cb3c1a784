package sip

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/vir/ysip/header"
)

const (
	txEvtStart   = "start"
	txEvtAnswer  = "answer"
	txEvtRetrans = "retrans"
	txEvtFinish  = "finish"
	txEvtClear   = "clear"
	txEvtDrop    = "drop"
)

// DefaultTransactionFactory creates [BasicTransaction] values.
var DefaultTransactionFactory TransactionFactory = TransactionFactoryFunc(
	func(ctx context.Context, e *Engine, m *Message, outgoing bool) Transaction {
		return NewBasicTransaction(ctx, e, m, outgoing)
	},
)

// BasicTransaction is a transaction without retransmission timers.
//
// It answers retransmitted requests with the latest response, sends the ACK of
// final INVITE answers and bounds every state with a deadline taken from the engine
// timer table. The deadlines are checked when the engine polls for events.
type BasicTransaction struct {
	ctx      context.Context
	engine   *Engine
	outgoing bool
	invite   bool
	branch   string
	callID   string

	fsm *stateless.StateMachine

	mu       sync.Mutex
	first    *Message
	last     *Message
	pending  *Event
	transmit bool
	tag      string
	response int
	now      time.Time
	deadline time.Time
}

// NewBasicTransaction creates a transaction for the first message m.
// The caller registers it with the engine.
func NewBasicTransaction(ctx context.Context, e *Engine, m *Message, outgoing bool) *BasicTransaction {
	tx := &BasicTransaction{
		ctx:      context.WithoutCancel(ctx),
		engine:   e,
		outgoing: outgoing,
		invite:   m.Method == MethodInvite,
		callID:   m.HeaderValue("Call-ID"),
		first:    m,
		tag:      m.ParamValue("To", "tag"),
		now:      e.now(),
	}
	if via := m.LastHeader("Via"); via != nil {
		if br := via.ParamValue("branch"); strings.HasPrefix(br, BranchCookie) {
			tx.branch = br
		}
	}
	tx.initFSM()
	return tx
}

func (tx *BasicTransaction) initFSM() {
	tx.fsm = stateless.NewStateMachine(StateInitial)

	tx.fsm.Configure(StateInitial).
		Permit(txEvtStart, StateTrying).
		Permit(txEvtRetrans, StateRetrans).
		Permit(txEvtFinish, StateFinish).
		Permit(txEvtDrop, StateInvalid)

	tx.fsm.Configure(StateTrying).
		OnEntry(tx.actTrying).
		Permit(txEvtAnswer, StateProcess).
		Permit(txEvtRetrans, StateRetrans).
		Permit(txEvtFinish, StateFinish).
		Permit(txEvtClear, StateCleared).
		Permit(txEvtDrop, StateInvalid)

	tx.fsm.Configure(StateProcess).
		OnEntry(tx.actProcess).
		Permit(txEvtRetrans, StateRetrans).
		Permit(txEvtFinish, StateFinish).
		Permit(txEvtClear, StateCleared).
		Permit(txEvtDrop, StateInvalid)

	tx.fsm.Configure(StateRetrans).
		OnEntry(tx.actRetrans).
		Permit(txEvtClear, StateCleared).
		Permit(txEvtDrop, StateInvalid)

	tx.fsm.Configure(StateFinish).
		OnEntry(tx.actFinish).
		Permit(txEvtClear, StateCleared).
		Permit(txEvtDrop, StateInvalid)

	tx.fsm.Configure(StateCleared).
		OnEntry(tx.actCleared).
		Permit(txEvtDrop, StateInvalid)
}

func (tx *BasicTransaction) fire(trig string) {
	if err := tx.fsm.FireCtx(tx.ctx, trig); err != nil {
		tx.engine.log().LogAttrs(tx.ctx, slog.LevelError, "failed to change transaction state",
			slog.String("trigger", trig),
			slog.Any("transaction", tx),
			slog.Any("error", err),
		)
	}
}

func (tx *BasicTransaction) timer(which byte) time.Duration {
	return tx.engine.Timer(which, tx.first.IsReliable())
}

func (tx *BasicTransaction) actTrying(context.Context, ...any) error {
	if tx.outgoing {
		tx.deadline = tx.now.Add(tx.timer(tx.pick('B', 'F')))
	}
	return nil
}

func (tx *BasicTransaction) actProcess(context.Context, ...any) error {
	if tx.outgoing {
		tx.deadline = tx.now.Add(tx.timer(tx.pick('B', 'F')))
	} else {
		tx.deadline = tx.now.Add(tx.timer('C'))
	}
	return nil
}

func (tx *BasicTransaction) actRetrans(context.Context, ...any) error {
	tx.deadline = tx.now.Add(tx.timer('H'))
	return nil
}

func (tx *BasicTransaction) actFinish(context.Context, ...any) error {
	if tx.outgoing {
		tx.deadline = tx.now.Add(tx.timer('D'))
	} else {
		tx.deadline = tx.now.Add(tx.timer('J'))
	}
	return nil
}

func (tx *BasicTransaction) actCleared(context.Context, ...any) error {
	tx.deadline = time.Time{}
	return nil
}

func (tx *BasicTransaction) pick(inv, nonInv byte) byte {
	if tx.invite {
		return inv
	}
	return nonInv
}

func (tx *BasicTransaction) State() TransactionState {
	return tx.fsm.MustState().(TransactionState) //nolint:forcetypeassert
}

// Engine returns the engine the transaction belongs to.
func (tx *BasicTransaction) Engine() *Engine { return tx.engine }

// IsOutgoing reports whether this is a client transaction.
func (tx *BasicTransaction) IsOutgoing() bool { return tx.outgoing }

// IsInvite reports whether the transaction was created by an INVITE.
func (tx *BasicTransaction) IsInvite() bool { return tx.invite }

// Branch returns the branch the transaction is matched by, empty for
// branches without the RFC 3261 cookie.
func (tx *BasicTransaction) Branch() string { return tx.branch }

func (tx *BasicTransaction) CallID() string { return tx.callID }

func (tx *BasicTransaction) Method() string { return tx.first.Method }

// InitialMessage returns the message that created the transaction.
func (tx *BasicTransaction) InitialMessage() *Message {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.first
}

// LatestMessage returns the latest response sent or received, or the ACK
// sent to a final INVITE answer.
func (tx *BasicTransaction) LatestMessage() *Message {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.last
}

// DialogTag returns the To tag of the dialog the transaction belongs to.
func (tx *BasicTransaction) DialogTag() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.tag
}

// Response returns the latest response code, 408 after a timeout
// or 500 after a transport failure.
func (tx *BasicTransaction) Response() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.response
}

func (tx *BasicTransaction) ProcessMessage(m *Message, branch string) MatchResult {
	if m == nil {
		return NoMatch
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if res := tx.match(m, branch); res != Matched {
		return res
	}

	tx.now = tx.engine.now()
	if tx.outgoing {
		tx.processClient(m)
	} else {
		tx.processServer(m)
	}
	return Matched
}

func (tx *BasicTransaction) match(m *Message, branch string) MatchResult {
	ackToInvite := tx.invite && !tx.outgoing && m.IsACK()
	if branch != "" {
		if branch != tx.branch {
			// only the ACK to a 2xx of an INVITE server transaction has its own branch
			if !ackToInvite ||
				tx.first.CSeq() != m.CSeq() ||
				tx.callID != m.HeaderValue("Call-ID") ||
				tx.tag != m.ParamValue("To", "tag") {
				return NoMatch
			}
			if tx.last == nil || tx.last.Code/100 != 2 {
				tx.engine.log().LogAttrs(tx.ctx, slog.LevelDebug, "received new branch ACK to a non-2xx response",
					slog.Any("transaction", tx),
					slog.Any("message", m),
				)
			}
		} else if tx.first.Method != m.Method {
			if !ackToInvite {
				return NoMatch
			}
			if tx.last == nil || tx.last.Code/100 == 2 {
				tx.engine.log().LogAttrs(tx.ctx, slog.LevelDebug, "received same branch ACK to a 2xx response",
					slog.Any("transaction", tx),
					slog.Any("message", m),
				)
			}
		}
	} else {
		if tx.first.Method != m.Method && !ackToInvite {
			return NoMatch
		}
		if tx.first.CSeq() != m.CSeq() ||
			tx.callID != m.HeaderValue("Call-ID") ||
			tx.first.HeaderValue("From") != m.HeaderValue("From") ||
			tx.first.HeaderValue("To") != m.HeaderValue("To") {
			return NoMatch
		}
		// answers without Via are tolerated
		if fv, mv := tx.first.LastHeader("Via"), m.LastHeader("Via"); fv != nil && mv != nil && fv.Value != mv.Value {
			return NoMatch
		}
		if m.IsACK() && (tx.tag != m.ParamValue("To", "tag") || !sameRequestURI(tx.first.URI, m.URI)) {
			return NoMatch
		}
	}

	if m.Party() == nil {
		m.SetParty(tx.first.Party())
	}
	// our own retransmissions
	if tx.outgoing != m.IsAnswer() {
		return NoMatch
	}

	if m.IsAnswer() {
		l := m.Header("To")
		tag, ok := "", false
		if l != nil {
			var p header.Param
			p, ok = l.Param("tag")
			tag = p.Value
		}
		switch {
		case tx.tag == "":
			if ok && m.Code > 100 {
				tx.tag = tag
			}
		case !ok:
			// out of the dialog, it could not be canceled anyway
			return NoMatch
		case tx.tag != tag:
			if tx.invite {
				return NoDialog
			}
			return NoMatch
		}
	}
	return Matched
}

// sameRequestURI compares Request-URIs tolerating parameters lost by the peer.
func sameRequestURI(ours, theirs string) bool {
	if ours == theirs {
		return true
	}
	if i := strings.IndexByte(ours, ';'); i > 0 {
		return ours[:i] == theirs
	}
	return false
}

func (tx *BasicTransaction) processClient(m *Message) {
	final := m.Code >= 200
	switch tx.State() {
	case StateTrying:
		tx.response = m.Code
		tx.fire(txEvtAnswer)
		if m.Code == int(StatusTrying) {
			return
		}
		fallthrough
	case StateProcess:
		if m.Code <= int(StatusTrying) {
			return
		}
		tx.setLatest(m)
		if tx.invite && !final {
			tx.deadline = tx.now.Add(tx.engine.UserTimeout())
		}
		tx.response = m.Code
		tx.setPending(NewEvent(m, tx), final)
		if !final {
			return
		}
		tx.deadline = time.Time{}
		if tx.invite {
			tx.setLatest(NewACK(tx.first, m))
			tx.transmit = true
			tx.fire(txEvtFinish)
		} else {
			tx.fire(txEvtClear)
		}
	case StateFinish:
		if final && tx.last != nil && tx.last.IsACK() {
			tx.transmit = true
		}
	}
}

func (tx *BasicTransaction) processServer(m *Message) {
	switch tx.State() {
	case StateTrying, StateProcess:
		tx.transmit = true
	case StateFinish, StateRetrans:
		if m.IsACK() {
			tx.deadline = time.Time{}
			tx.setPending(NewEvent(m, tx), false)
			tx.fire(txEvtClear)
		} else {
			tx.transmit = true
		}
	}
}

func (tx *BasicTransaction) setPending(ev *Event, replace bool) {
	if tx.pending == nil || replace {
		tx.pending = ev
	}
}

func (tx *BasicTransaction) setDialogTag() {
	if tx.tag == "" {
		tx.tag = newTag()
	}
}

func (tx *BasicTransaction) setLatest(m *Message) {
	if tx.last == m {
		return
	}
	tx.last = m
	if m == nil {
		return
	}
	if m.IsAnswer() {
		tx.response = m.Code
		if m.Code > int(StatusTrying) && m.Code < 300 {
			tx.setDialogTag()
		}
	}
	if err := m.Complete(tx.ctx, tx.engine, &CompleteOptions{DialogTag: tx.tag}); err != nil {
		tx.engine.log().LogAttrs(tx.ctx, slog.LevelDebug, "failed to complete transaction message",
			slog.Any("transaction", tx),
			slog.Any("error", err),
		)
	}
}

func (tx *BasicTransaction) Event(pending bool, now time.Time) *Event {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if ev := tx.pending; ev != nil {
		tx.pending = nil
		return ev
	}
	if tx.transmit {
		tx.transmit = false
		m := tx.last
		if m == nil {
			m = tx.first
		}
		return NewEvent(m, tx)
	}
	if pending {
		return nil
	}

	if now.IsZero() {
		now = tx.engine.now()
	}
	tx.now = now
	expired := !tx.deadline.IsZero() && !now.Before(tx.deadline)
	if expired {
		tx.deadline = time.Time{}
	}

	var ev *Event
	if tx.outgoing {
		ev = tx.clientEvent(expired)
	} else {
		ev = tx.serverEvent(expired)
	}
	if ev != nil {
		return ev
	}

	switch tx.State() {
	case StateFinish:
		if !expired {
			return nil
		}
		tx.fire(txEvtClear)
		fallthrough
	case StateCleared:
		ev = NewEvent(tx.first, tx)
		tx.fire(txEvtDrop)
		return ev
	case StateInvalid:
		tx.engine.log().LogAttrs(tx.ctx, slog.LevelError, "event requested from an invalid transaction",
			slog.Any("transaction", tx),
		)
	}
	return nil
}

func (tx *BasicTransaction) clientEvent(expired bool) *Event {
	switch tx.State() {
	case StateInitial:
		ev := NewEvent(tx.first, tx)
		tx.fire(txEvtStart)
		return ev
	case StateTrying, StateProcess:
		if expired {
			tx.response = int(StatusRequestTimeout)
			tx.fire(txEvtClear)
		}
	}
	return nil
}

func (tx *BasicTransaction) serverEvent(expired bool) *Event {
	switch tx.State() {
	case StateInitial:
		first := tx.first
		switch {
		case first.CSeq() < 0 ||
			first.Header("Call-ID") == nil ||
			first.Header("From") == nil ||
			first.Header("To") == nil:
			tx.setResponse(int(StatusBadRequest), "")
		case !tx.engine.IsAllowed(first.Method):
			tx.setResponse(int(StatusNotImplemented), "")
		default:
			tx.setResponse(int(StatusTrying), "")
			tx.fire(txEvtStart)
			return nil
		}
		ev := NewEvent(tx.last, tx)
		tx.transmit = false
		tx.fire(txEvtDrop)
		return ev
	case StateTrying:
		ev := NewEvent(tx.first, tx)
		tx.fire(txEvtAnswer)
		return ev
	case StateProcess:
		if expired && tx.setResponse(int(StatusRequestTimeout), "") {
			tx.transmit = false
			return NewEvent(tx.last, tx)
		}
	case StateRetrans:
		if expired {
			// no ACK came
			tx.response = int(StatusRequestTimeout)
			tx.fire(txEvtClear)
		}
	}
	return nil
}

func (tx *BasicTransaction) canRespond() bool {
	if tx.outgoing {
		return false
	}
	switch tx.State() {
	case StateInitial, StateTrying, StateProcess:
		return true
	default:
		return false
	}
}

func (tx *BasicTransaction) respond(m *Message) {
	tx.setLatest(m)
	tx.transmit = true
	switch {
	case m.Code >= 200:
		if tx.invite {
			tx.fire(txEvtRetrans)
		} else {
			tx.fire(txEvtFinish)
		}
	case m.Code > int(StatusTrying):
		tx.deadline = tx.now.Add(tx.timer('C'))
	}
}

func (tx *BasicTransaction) setResponse(code int, reason string) bool {
	if tx.outgoing {
		tx.engine.log().LogAttrs(tx.ctx, slog.LevelWarn, "response set on a client transaction",
			slog.Int("code", code),
			slog.Any("transaction", tx),
		)
		return false
	}
	if !tx.canRespond() {
		tx.engine.log().LogAttrs(tx.ctx, slog.LevelDebug, "ignoring response",
			slog.Int("code", code),
			slog.Any("transaction", tx),
		)
		return false
	}
	tx.respond(NewResponse(tx.first, code, reason))
	return true
}

// SetResponse answers the request of a server transaction.
// It is ignored once a final response was sent.
func (tx *BasicTransaction) SetResponse(code int) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.now = tx.engine.now()
	tx.setResponse(code, "")
}

// Respond answers the request of a server transaction with a prepared response,
// usually built by [NewResponse] from [BasicTransaction.InitialMessage].
func (tx *BasicTransaction) Respond(m *Message) bool {
	if m == nil || !m.IsAnswer() {
		return false
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if !tx.canRespond() {
		return false
	}
	tx.now = tx.engine.now()
	tx.respond(m)
	return true
}

// RequestAuth answers the request with a 401 challenge, or 407 if proxy is set.
// The challenge carries a fresh engine nonce. No challenge header is added
// if realm is empty.
func (tx *BasicTransaction) RequestAuth(realm, domain string, stale, proxy bool) bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if !tx.canRespond() {
		tx.engine.log().LogAttrs(tx.ctx, slog.LevelDebug, "ignoring authentication request",
			slog.Any("transaction", tx),
		)
		return false
	}

	code := StatusUnauthorized
	if proxy {
		code = StatusProxyAuthenticationRequired
	}
	m := NewResponse(tx.first, int(code), "")
	if realm != "" {
		ch := tx.engine.Challenge(realm, proxy, stale)
		if domain != "" {
			ch.SetParam("domain", header.Quote(domain, true))
		}
		m.AppendHeader(ch)
	}
	tx.now = tx.engine.now()
	tx.respond(m)
	return true
}

// AuthUser checks the credentials of the request of the transaction,
// see [Engine.AuthUser].
func (tx *BasicTransaction) AuthUser(ctx context.Context, user string, proxy bool) (int64, string) {
	return tx.engine.AuthUser(ctx, tx.first, user, proxy)
}

// TransmitFailed handles a transport failure for one of the transaction messages.
// A client transaction that could not send its request is cleared with
// a 500 response code, otherwise the message loses its party.
func (tx *BasicTransaction) TransmitFailed(m *Message) {
	if m == nil {
		return
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	state := tx.State()
	switch state {
	case StateInvalid, StateFinish, StateCleared:
		return
	}
	if tx.outgoing {
		switch {
		case state == StateTrying:
			if m != tx.first {
				return
			}
			tx.engine.log().LogAttrs(tx.ctx, slog.LevelInfo, "failed to send request, clearing transaction",
				slog.Any("transaction", tx),
			)
			tx.response = int(StatusServerInternalError)
			tx.fire(txEvtClear)
			return
		case state == StateInitial || m != tx.last:
			return
		}
	} else if m != tx.last {
		return
	}
	m.SetParty(nil)
}

func (tx *BasicTransaction) LogValue() slog.Value {
	if tx == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("state", tx.State().String()),
		slog.String("method", tx.first.Method),
		slog.String("branch", tx.branch),
		slog.String("call_id", tx.callID),
		slog.Bool("outgoing", tx.outgoing),
	)
}
