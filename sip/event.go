package sip

import "log/slog"

// Event is produced by a transaction for the engine driver.
// Outgoing events carry a message to transmit, incoming events
// a message for the application.
type Event struct {
	msg   *Message
	tx    Transaction
	state TransactionState
}

// NewEvent creates an event for the message of a transaction.
// The transaction state is captured at creation.
func NewEvent(m *Message, tx Transaction) *Event {
	ev := &Event{msg: m, tx: tx, state: StateInvalid}
	if tx != nil {
		ev.state = tx.State()
	}
	return ev
}

func (ev *Event) Message() *Message { return ev.msg }

func (ev *Event) Transaction() Transaction { return ev.tx }

// State returns the transaction state at the time the event was created.
func (ev *Event) State() TransactionState { return ev.state }

// Party returns the transport party of the event message.
func (ev *Event) Party() Party {
	if ev.msg == nil {
		return nil
	}
	return ev.msg.Party()
}

// IsOutgoing reports whether the event message is to be sent.
func (ev *Event) IsOutgoing() bool { return ev.msg != nil && ev.msg.IsOutgoing() }

// IsIncoming reports whether the event message was received.
func (ev *Event) IsIncoming() bool { return ev.msg != nil && !ev.msg.IsOutgoing() }

func (ev *Event) LogValue() slog.Value {
	if ev == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("state", ev.state.String()),
		slog.Bool("outgoing", ev.IsOutgoing()),
		slog.Any("message", ev.msg),
	)
}
