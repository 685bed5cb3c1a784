package sip

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/vir/ysip/internal/util"
	"github.com/vir/ysip/log"
)

const (
	// DefaultMaxForwards is the Max-Forwards value of completed requests.
	DefaultMaxForwards = 70
	// DefaultAllowed is the initial list of methods accepted by the engine.
	DefaultAllowed = MethodAck
)

// EngineOptions are the options for an [Engine].
type EngineOptions struct {
	// UserAgent is written to User-Agent headers of requests and Server headers of responses.
	// If empty, no such headers are added.
	UserAgent string
	// Timings are the timer bases.
	// If zero, the RFC 3261 defaults are used.
	Timings TimingConfig
	// MaxForwards is the Max-Forwards value of completed requests.
	// If zero, [DefaultMaxForwards] is used.
	MaxForwards int
	// Allowed is the initial comma separated list of accepted methods.
	// If empty, [DefaultAllowed] is used.
	Allowed string
	// NonceSecret is mixed into the digest nonces.
	// If empty, a random secret is generated.
	NonceSecret string
	// Flags are applied to every completed message.
	Flags Flags
	// Users checks digest credentials. If nil, every credential is rejected.
	Users UserChecker
	// ForeignAuth checks requests without a usable digest credential.
	// If nil, they are offered to Users with an empty response.
	ForeignAuth ForeignAuthChecker
	// Transactions creates transactions for new requests.
	// If nil, [DefaultTransactionFactory] is used.
	Transactions TransactionFactory
	// Parties attaches transport parties to outgoing messages without one.
	// If nil, such messages cannot be completed.
	Parties PartyResolver
	// Metrics records engine activity. If nil, nothing is recorded.
	Metrics *Metrics
	// Logger is the logger.
	// If nil, the [log.Default] is used.
	Logger *slog.Logger
	// Now is the clock. If nil, [time.Now] is used.
	Now func() time.Time
}

func (o *EngineOptions) userAgent() string {
	if o == nil {
		return ""
	}
	return o.UserAgent
}

func (o *EngineOptions) timings() TimingConfig {
	if o == nil {
		return TimingConfig{}
	}
	return o.Timings
}

func (o *EngineOptions) maxForwards() int {
	if o == nil || o.MaxForwards <= 0 {
		return DefaultMaxForwards
	}
	return o.MaxForwards
}

func (o *EngineOptions) allowed() string {
	if o == nil || o.Allowed == "" {
		return DefaultAllowed
	}
	return o.Allowed
}

func (o *EngineOptions) nonceSecret() string {
	if o == nil || o.NonceSecret == "" {
		return fmt.Sprintf("%08x", util.RandUint32())
	}
	return o.NonceSecret
}

func (o *EngineOptions) flags() Flags {
	if o == nil {
		return 0
	}
	return o.Flags
}

func (o *EngineOptions) users() UserChecker {
	if o == nil {
		return nil
	}
	return o.Users
}

func (o *EngineOptions) foreignAuth() ForeignAuthChecker {
	if o == nil {
		return nil
	}
	return o.ForeignAuth
}

func (o *EngineOptions) txFctr() TransactionFactory {
	if o == nil || o.Transactions == nil {
		return DefaultTransactionFactory
	}
	return o.Transactions
}

func (o *EngineOptions) parties() PartyResolver {
	if o == nil {
		return nil
	}
	return o.Parties
}

func (o *EngineOptions) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}

func (o *EngineOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

func (o *EngineOptions) clock() func() time.Time {
	if o == nil || o.Now == nil {
		return time.Now
	}
	return o.Now
}

// Engine owns the transactions of a SIP endpoint.
//
// It completes outgoing messages, dispatches messages to transactions,
// creates transactions for new requests and hands the transaction events
// to the transport parties. It also issues and checks digest nonces.
//
// The engine does no I/O by itself: transports feed it with [Engine.AddRaw] or
// [Engine.AddMessage] and a driving loop calls [Engine.Process].
type Engine struct {
	userAgent string
	timings   TimingConfig
	maxFwd    int
	flags     Flags
	users     UserChecker
	foreign   ForeignAuthChecker
	txFctr    TransactionFactory
	parties   PartyResolver
	metrics   *Metrics
	logger    *slog.Logger
	clock     func() time.Time
	seq       *Sequence

	mu  sync.Mutex
	txs []Transaction

	allowMu sync.RWMutex
	allowed string

	nonceMu     sync.Mutex
	nonceSecret string
	nonce       string
	nonceTime   int64
	nc          uint32
}

// NewEngine creates a new [Engine].
// Options are optional, if nil, default values are used (see [EngineOptions]).
func NewEngine(opts *EngineOptions) *Engine {
	return &Engine{
		userAgent:   opts.userAgent(),
		timings:     opts.timings(),
		maxFwd:      opts.maxForwards(),
		flags:       opts.flags(),
		users:       opts.users(),
		foreign:     opts.foreignAuth(),
		txFctr:      opts.txFctr(),
		parties:     opts.parties(),
		metrics:     opts.metrics(),
		logger:      opts.log(),
		clock:       opts.clock(),
		seq:         NewSequence(0),
		allowed:     opts.allowed(),
		nonceSecret: opts.nonceSecret(),
	}
}

func (e *Engine) log() *slog.Logger { return e.logger }

func (e *Engine) now() time.Time { return e.clock() }

// UserAgent returns the identity written to User-Agent and Server headers.
func (e *Engine) UserAgent() string { return e.userAgent }

// MaxForwards returns the Max-Forwards value of completed requests.
func (e *Engine) MaxForwards() int { return e.maxFwd }

// Flags returns the completion flags applied to every message.
func (e *Engine) Flags() Flags { return e.flags }

// Timings returns the timer bases.
func (e *Engine) Timings() TimingConfig { return e.timings }

// Sequence returns the engine wide CSeq sequence used for messages
// outside of a dialog.
func (e *Engine) Sequence() *Sequence { return e.seq }

// NextCSeq allocates a number from the engine sequence.
func (e *Engine) NextCSeq() int { return e.seq.Next() }

// Timer returns the value of an RFC 3261 timer, see [TimingConfig.Timer].
// An unknown letter is logged and yields 0.
func (e *Engine) Timer(which byte, reliable bool) time.Duration {
	d, ok := e.timings.Timer(which, reliable)
	if !ok {
		e.log().LogAttrs(context.Background(), slog.LevelError, "requested invalid timer",
			slog.String("timer", string(rune(which))),
		)
	}
	return d
}

// UserTimeout returns how long an INVITE client transaction waits for
// a final answer after a provisional one.
func (e *Engine) UserTimeout() time.Duration {
	return e.Timer('C', false) - e.Timer('2', false)
}

// BuildParty asks the party resolver for a party of the message.
// It reports whether the message has a party afterwards.
func (e *Engine) BuildParty(ctx context.Context, m *Message) bool {
	if m.Party() != nil {
		return true
	}
	if e.parties == nil {
		return false
	}
	p, err := e.parties.ResolveParty(ctx, m)
	if err != nil {
		e.log().LogAttrs(ctx, slog.LevelWarn, "failed to resolve party",
			slog.Any("message", m),
			slog.Any("error", err),
		)
		return false
	}
	if p == nil {
		return false
	}
	m.SetParty(p)
	return true
}

// AddRaw parses a buffer received from party and dispatches the message,
// see [Engine.AddMessage].
func (e *Engine) AddRaw(ctx context.Context, p Party, buf []byte) (Transaction, error) {
	m, err := Parse(p, buf)
	if err != nil {
		e.metrics.parseFailed()
		e.log().LogAttrs(ctx, slog.LevelWarn, "failed to parse message",
			slog.Any("party", p),
			slog.Any("buffer", buf),
			slog.Any("error", err),
		)
		return nil, errtrace.Wrap(err)
	}
	e.metrics.messageParsed(m)
	return e.AddMessage(ctx, m), nil
}

// AddMessage dispatches the message to the transaction it belongs to,
// or creates a new transaction for a new request.
// Outgoing messages are completed first.
//
// It returns nil for answers and ACKs that match no transaction, and for
// answers of forked INVITEs, see [Engine.ForkInvite].
func (e *Engine) AddMessage(ctx context.Context, m *Message) Transaction {
	if !m.IsValid() {
		return nil
	}
	if m.IsOutgoing() {
		m.Complete(ctx, e, nil) //nolint:errcheck
	}

	var branch string
	if via := m.LastHeader("Via"); via != nil {
		if br := via.ParamValue("branch"); strings.HasPrefix(br, BranchCookie) {
			branch = br
		}
	} else {
		e.log().LogAttrs(ctx, slog.LevelDebug, "message without Via header", slog.Any("message", m))
	}

	var forked Transaction
	e.mu.Lock()
	for _, t := range e.txs {
		switch t.ProcessMessage(m, branch) {
		case Matched:
			e.mu.Unlock()
			e.metrics.dispatched(dispatchMatched)
			return t
		case NoDialog:
			forked = t
		}
	}
	e.mu.Unlock()

	if forked != nil {
		e.metrics.dispatched(dispatchForked)
		return e.ForkInvite(ctx, m, forked)
	}
	if m.IsAnswer() {
		e.metrics.dispatched(dispatchStrayAnswer)
		e.log().LogAttrs(ctx, slog.LevelInfo, "discarding unhandled answer", slog.Any("message", m))
		return nil
	}
	if m.IsACK() {
		e.metrics.dispatched(dispatchStrayACK)
		e.log().LogAttrs(ctx, slog.LevelDebug, "discarding unhandled ACK", slog.Any("message", m))
		return nil
	}

	m.Complete(ctx, e, nil) //nolint:errcheck
	t := e.txFctr.NewTransaction(ctx, e, m, m.IsOutgoing())
	if t == nil {
		return nil
	}
	e.Append(t)
	e.metrics.dispatched(dispatchCreated)
	e.log().LogAttrs(ctx, slog.LevelDebug, "created transaction",
		slog.Any("transaction", t),
		slog.Any("message", m),
	)
	return t
}

// ForkInvite handles an answer that matched the dialog of an INVITE
// transaction but not its To tag.
// Forks are not supported: the answer is logged and nil is returned.
func (e *Engine) ForkInvite(ctx context.Context, answer *Message, tx Transaction) Transaction {
	e.log().LogAttrs(ctx, slog.LevelInfo, "discarding forked INVITE answer",
		slog.Any("message", answer),
		slog.Any("transaction", tx),
	)
	return nil
}

// Event returns the next event of the transactions or nil.
// Events already queued by transactions are returned first.
// Transactions that became invalid are removed.
func (e *Engine) Event(ctx context.Context) *Event {
	txs := e.Transactions()
	if len(txs) == 0 {
		return nil
	}
	now := e.now()
	for _, pending := range [...]bool{true, false} {
		for _, t := range txs {
			ev := t.Event(pending, now)
			if ev == nil {
				continue
			}
			if t.State() == StateInvalid {
				e.Remove(t)
			}
			e.log().LogAttrs(ctx, slog.LevelDebug, "got transaction event",
				slog.Bool("pending", pending),
				slog.Any("event", ev),
			)
			return ev
		}
	}
	return nil
}

// ProcessEvent handles an event in the default way.
//
// Outgoing messages are transmitted to their party unless the transaction is invalid,
// or cleared and the message is not an answer.
// A transport failure is reported to transactions implementing [TransmitFailer].
// Incoming requests left unhandled in the Trying state are answered with 405.
func (e *Engine) ProcessEvent(ctx context.Context, ev *Event) {
	if ev == nil || ev.Message() == nil {
		return
	}
	m := ev.Message()
	if ev.IsOutgoing() {
		switch {
		case ev.State() == StateInvalid:
		case ev.State() == StateCleared && !m.IsAnswer():
		default:
			p := ev.Party()
			if p == nil {
				break
			}
			e.log().LogAttrs(ctx, slog.LevelDebug, "transmitting message",
				slog.Any("party", p),
				slog.Any("buffer", log.CalcValue(func() any { return log.StringValue(m.Buffer()) })),
			)
			if err := p.Transmit(ev); err != nil {
				e.log().LogAttrs(ctx, slog.LevelWarn, "failed to transmit message",
					slog.Any("event", ev),
					slog.Any("error", err),
				)
				if tf, ok := ev.Transaction().(TransmitFailer); ok {
					tf.TransmitFailed(m)
				}
			}
		}
	}
	if ev.IsIncoming() && ev.State() == StateTrying && !m.IsAnswer() && ev.Transaction() != nil {
		e.log().LogAttrs(ctx, slog.LevelInfo, "rejecting unhandled request", slog.Any("message", m))
		ev.Transaction().SetResponse(int(StatusMethodNotAllowed))
	}
}

// Process gets one event and processes it in the default way.
// It reports whether there was an event.
func (e *Engine) Process(ctx context.Context) bool {
	ev := e.Event(ctx)
	if ev == nil {
		return false
	}
	e.ProcessEvent(ctx, ev)
	return true
}

// Append registers a transaction.
func (e *Engine) Append(t Transaction) {
	if t == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.txs = append(e.txs, t)
	e.metrics.setTransactions(len(e.txs))
}

// Insert registers a transaction before all others so it is matched first.
func (e *Engine) Insert(t Transaction) {
	if t == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.txs = slices.Insert(e.txs, 0, t)
	e.metrics.setTransactions(len(e.txs))
}

// Remove unregisters a transaction.
func (e *Engine) Remove(t Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.txs, t); i >= 0 {
		e.txs = slices.Delete(e.txs, i, i+1)
		e.metrics.setTransactions(len(e.txs))
	}
}

// Len returns the number of registered transactions.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.txs)
}

// Transactions returns a snapshot of the registered transactions.
func (e *Engine) Transactions() []Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.txs)
}
