package sip

import (
	"context"
	"time"
)

// MatchResult is the outcome of offering a message to a transaction.
type MatchResult int

const (
	// NoMatch means the message belongs to another transaction.
	NoMatch MatchResult = iota
	// NoDialog means the message matches the transaction but not its dialog,
	// as the answers of a forked INVITE do.
	NoDialog
	// Matched means the transaction consumed the message.
	Matched
)

func (r MatchResult) String() string {
	switch r {
	case NoMatch:
		return "NoMatch"
	case NoDialog:
		return "NoDialog"
	case Matched:
		return "Matched"
	default:
		return "Unknown"
	}
}

// TransactionState is the coarse state of a transaction seen by the engine.
type TransactionState int

const (
	// StateInvalid transactions are removed from the engine.
	StateInvalid TransactionState = iota
	StateInitial
	StateTrying
	StateProcess
	StateRetrans
	StateFinish
	StateCleared
)

func (s TransactionState) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateInitial:
		return "Initial"
	case StateTrying:
		return "Trying"
	case StateProcess:
		return "Process"
	case StateRetrans:
		return "Retrans"
	case StateFinish:
		return "Finish"
	case StateCleared:
		return "Cleared"
	default:
		return "Undefined"
	}
}

// Transaction is a SIP transaction registered in the [Engine].
//
// ProcessMessage is called with the engine registry locked,
// so it must not call back into the registry.
type Transaction interface {
	// ProcessMessage classifies the message against the transaction and
	// consumes it on [Matched]. Branch is the normalized branch of the last Via.
	ProcessMessage(m *Message, branch string) MatchResult
	// State returns the current state.
	State() TransactionState
	// Event returns the next event of the transaction or nil.
	// With pending set only already queued events are returned.
	Event(pending bool, now time.Time) *Event
	// SetResponse answers an incoming request with the given status code.
	SetResponse(code int)
}

// TransmitFailer is implemented by transactions that want to know when
// a transport failed to send one of their messages.
type TransmitFailer interface {
	TransmitFailed(m *Message)
}

// TransactionFactory creates transactions for messages that matched none.
// It is called without the engine registry locked. The engine registers the
// returned transaction itself.
type TransactionFactory interface {
	NewTransaction(ctx context.Context, e *Engine, m *Message, outgoing bool) Transaction
}

// TransactionFactoryFunc is a function adapter for [TransactionFactory].
type TransactionFactoryFunc func(ctx context.Context, e *Engine, m *Message, outgoing bool) Transaction

func (fn TransactionFactoryFunc) NewTransaction(ctx context.Context, e *Engine, m *Message, outgoing bool) Transaction {
	return fn(ctx, e, m, outgoing)
}
