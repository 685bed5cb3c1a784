package sip

import "log/slog"

// Dialog identifies a SIP dialog: the Call-ID plus the local and remote URIs and tags.
type Dialog struct {
	CallID    string
	LocalURI  string
	LocalTag  string
	RemoteURI string
	RemoteTag string
	// RemoteCSeq is the highest CSeq of the requests received in the dialog, -1 if none.
	RemoteCSeq int

	seq *Sequence
}

// NewDialog creates the dialog identity of a message.
func NewDialog(m *Message) *Dialog {
	d := &Dialog{RemoteCSeq: -1}
	d.Assign(m)
	return d
}

// Assign updates the dialog from a message.
// The Call-ID and the sequence are kept if the message has none.
//
// For outgoing requests and incoming answers the local party is From,
// otherwise it is To.
func (d *Dialog) Assign(m *Message) {
	if cid := m.HeaderValue("Call-ID"); cid != "" {
		d.CallID = cid
	}
	local, remote := "To", "From"
	if m.IsOutgoing() != m.IsAnswer() {
		local, remote = "From", "To"
	}
	d.LocalURI, d.LocalTag = dialogParty(m, local)
	d.RemoteURI, d.RemoteTag = dialogParty(m, remote)
	if s := m.Sequence(); s != nil {
		d.seq = s
	}
	if !m.IsOutgoing() && !m.IsAnswer() && !m.IsACK() && d.RemoteCSeq < m.CSeq() {
		d.RemoteCSeq = m.CSeq()
	}
}

func dialogParty(m *Message, name string) (string, string) {
	l := m.Header(name)
	if l == nil {
		return "", ""
	}
	u := l.Value
	if sm := angledRe.FindStringSubmatch(u); sm != nil {
		u = sm[1]
	}
	return u, l.ParamValue("tag")
}

// SetCallID switches the dialog to another Call-ID and clears the URIs and tags.
func (d *Dialog) SetCallID(callID string) {
	d.CallID = callID
	d.LocalURI = ""
	d.LocalTag = ""
	d.RemoteURI = ""
	d.RemoteTag = ""
}

// Equal reports whether both dialogs have the same Call-ID, URIs and tags.
func (d *Dialog) Equal(o *Dialog) bool { return d.Matches(o, false) }

// Matches compares dialogs like [Dialog.Equal], optionally ignoring the URIs.
func (d *Dialog) Matches(o *Dialog, ignoreURIs bool) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.CallID == o.CallID &&
		d.LocalTag == o.LocalTag &&
		d.RemoteTag == o.RemoteTag &&
		(ignoreURIs || (d.LocalURI == o.LocalURI && d.RemoteURI == o.RemoteURI))
}

// SetCSeq attaches a new local sequence that continues after cseq.
func (d *Dialog) SetCSeq(cseq int) { d.seq = NewSequence(cseq) }

// Sequence returns the local CSeq sequence of the dialog or nil.
func (d *Dialog) Sequence() *Sequence { return d.seq }

func (d *Dialog) LogValue() slog.Value {
	if d == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("call_id", d.CallID),
		slog.String("local_uri", d.LocalURI),
		slog.String("local_tag", d.LocalTag),
		slog.String("remote_uri", d.RemoteURI),
		slog.String("remote_tag", d.RemoteTag),
	)
}
