// Package sip implements the wire-protocol core of a SIP stack.
//
// It covers the [Message] model (parsing, completion of locally originated
// messages, serialization, responses, ACKs and route sets), [Dialog] identity,
// digest authentication and the dispatch [Engine] that routes messages to
// transactions and exposes the RFC 3261 timer table.
//
// Sockets are not handled here. Transports plug in through the [Party]
// interface, and transactions through [Transaction] and [TransactionFactory].
package sip

//go:generate go tool errtrace -w .
//go:generate go tool mockgen -source=party.go -destination=sipmock/party.go -package=sipmock
//go:generate go tool mockgen -source=transaction.go -destination=sipmock/transaction.go -package=sipmock
