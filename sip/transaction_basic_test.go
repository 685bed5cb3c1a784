package sip_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vir/ysip/sip"
)

type txFixture struct {
	ctx   context.Context
	clock *testClock
	party *testParty
	e     *sip.Engine
}

func newTxFixture(t *testing.T, opts *sip.EngineOptions) *txFixture {
	t.Helper()

	if opts == nil {
		opts = &sip.EngineOptions{}
	}
	if opts.Allowed == "" {
		opts.Allowed = "INVITE, ACK, BYE, OPTIONS, REGISTER"
	}
	clock := newTestClock()
	opts.Now = clock.Now
	return &txFixture{
		ctx:   context.Background(),
		clock: clock,
		party: newTestParty(false),
		e:     sip.NewEngine(opts),
	}
}

func (f *txFixture) addRaw(t *testing.T, raw string) *sip.BasicTransaction {
	t.Helper()

	tx, err := f.e.AddRaw(f.ctx, f.party, []byte(raw))
	if err != nil {
		t.Fatalf("e.AddRaw() error = %v, want nil", err)
	}
	if tx == nil {
		return nil
	}
	bt, ok := tx.(*sip.BasicTransaction)
	if !ok {
		t.Fatalf("e.AddRaw() = %T, want *sip.BasicTransaction", tx)
	}
	return bt
}

type evSummary struct {
	Outgoing bool
	State    sip.TransactionState
	Start    string
}

// event checks the next engine event without processing it.
func (f *txFixture) event(t *testing.T, want *evSummary) *sip.Event {
	t.Helper()

	ev := f.e.Event(f.ctx)
	if want == nil {
		if ev != nil {
			t.Fatalf("e.Event() = %v, want nil", ev)
		}
		return nil
	}
	if ev == nil {
		t.Fatalf("e.Event() = nil, want %+v", *want)
	}
	got := evSummary{Outgoing: ev.IsOutgoing(), State: ev.State(), Start: ev.Message().StartLine()}
	if diff := cmp.Diff(got, *want); diff != "" {
		t.Fatalf("e.Event() mismatch (-got +want):\n%v", diff)
	}
	return ev
}

func (f *txFixture) nextEvent(t *testing.T, want *evSummary) *sip.Event {
	t.Helper()

	ev := f.event(t, want)
	f.e.ProcessEvent(f.ctx, ev)
	return ev
}

func (f *txFixture) sent() []string {
	var lines []string
	for _, m := range f.party.Sent() {
		lines = append(lines, m.StartLine())
	}
	return lines
}

func TestBasicTransaction_ServerInvite(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, nil)
	bt := f.addRaw(t, inviteRaw)
	if bt == nil || bt.IsOutgoing() || !bt.IsInvite() || bt.Branch() != "z9hG4bKabc" || bt.CallID() != "call1@192.0.2.2" {
		t.Fatalf("e.AddRaw() = %v, want an INVITE server transaction", bt)
	}

	// the 100 is queued on the first poll and sent on the next one
	f.nextEvent(t, nil)
	f.nextEvent(t, &evSummary{true, sip.StateTrying, "SIP/2.0 100 Trying"})

	ev := f.e.Event(f.ctx)
	if ev == nil || ev.IsOutgoing() || ev.State() != sip.StateTrying || ev.Message() != bt.InitialMessage() {
		t.Fatalf("e.Event() = %v, want the incoming INVITE", ev)
	}
	if got := bt.State(); got != sip.StateProcess {
		t.Fatalf("bt.State() = %v, want %v", got, sip.StateProcess)
	}

	// retransmissions are answered with the latest response
	if got := f.addRaw(t, inviteRaw); got != bt {
		t.Fatalf("e.AddRaw(retransmission) = %v, want %v", got, bt)
	}
	f.nextEvent(t, &evSummary{true, sip.StateProcess, "SIP/2.0 100 Trying"})

	bt.SetResponse(int(sip.StatusOK))
	ok := f.nextEvent(t, &evSummary{true, sip.StateRetrans, "SIP/2.0 200 OK"})
	tag := bt.DialogTag()
	if tag == "" || ok.Message().ParamValue("To", "tag") != tag {
		t.Fatalf("200 To tag = %q, want dialog tag %q", ok.Message().ParamValue("To", "tag"), tag)
	}
	if bt.LatestMessage() != ok.Message() || bt.Response() != 200 {
		t.Errorf("latest message = %v %d, want the 200", bt.LatestMessage(), bt.Response())
	}

	bt.SetResponse(int(sip.StatusBusyHere))
	if got := bt.Response(); got != 200 {
		t.Errorf("bt.Response() after a late response = %d, want 200", got)
	}

	ack := "ACK sip:bob@example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 192.0.2.2:5062;branch=z9hG4bKack\r\n" +
		"From: \"Alice\" <sip:alice@example.com>;tag=a1\r\n" +
		"To: <sip:bob@example.com>;tag=" + tag + "\r\n" +
		"Call-ID: call1@192.0.2.2\r\n" +
		"CSeq: 5 ACK\r\n\r\n"
	if got := f.addRaw(t, ack); got != bt {
		t.Fatalf("e.AddRaw(ACK) = %v, want %v", got, bt)
	}
	f.nextEvent(t, &evSummary{false, sip.StateRetrans, "ACK sip:bob@example.com SIP/2.0"})
	f.nextEvent(t, &evSummary{false, sip.StateCleared, "INVITE sip:bob@example.com SIP/2.0"})
	f.nextEvent(t, nil)

	if got := f.e.Len(); got != 0 {
		t.Errorf("e.Len() = %d, want 0", got)
	}
	want := []string{"SIP/2.0 100 Trying", "SIP/2.0 100 Trying", "SIP/2.0 200 OK"}
	if diff := cmp.Diff(f.sent(), want); diff != "" {
		t.Errorf("sent messages mismatch (-got +want):\n%v", diff)
	}
}

func TestBasicTransaction_ServerNoACK(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, nil)
	bt := f.addRaw(t, inviteRaw)
	f.nextEvent(t, nil)
	f.nextEvent(t, &evSummary{true, sip.StateTrying, "SIP/2.0 100 Trying"})
	f.event(t, &evSummary{false, sip.StateTrying, "INVITE sip:bob@example.com SIP/2.0"})

	// the application answers instead of the engine default
	if !bt.Respond(sip.NewResponse(bt.InitialMessage(), int(sip.StatusBusyHere), "Busy")) {
		t.Fatalf("bt.Respond() = false, want true")
	}
	f.nextEvent(t, &evSummary{true, sip.StateRetrans, "SIP/2.0 486 Busy"})

	f.clock.Advance(31 * time.Second)
	f.nextEvent(t, nil)
	f.clock.Advance(time.Second)
	f.nextEvent(t, &evSummary{false, sip.StateCleared, "INVITE sip:bob@example.com SIP/2.0"})

	if got := bt.Response(); got != int(sip.StatusRequestTimeout) {
		t.Errorf("bt.Response() = %d, want %d", got, sip.StatusRequestTimeout)
	}
	if got := bt.State(); got != sip.StateInvalid {
		t.Errorf("bt.State() = %v, want %v", got, sip.StateInvalid)
	}
	if bt.Respond(sip.NewResponse(bt.InitialMessage(), 200, "")) {
		t.Errorf("bt.Respond() on a finished transaction = true, want false")
	}
}

func TestBasicTransaction_ServerNonInvite(t *testing.T) {
	t.Parallel()

	const options = "OPTIONS sip:bob@example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 192.0.2.2:5062;branch=z9hG4bKopt\r\n" +
		"From: <sip:alice@example.com>;tag=a1\r\n" +
		"To: <sip:bob@example.com>\r\n" +
		"Call-ID: opt1\r\n" +
		"CSeq: 1 OPTIONS\r\n\r\n"

	f := newTxFixture(t, nil)
	bt := f.addRaw(t, options)
	f.nextEvent(t, nil)
	f.nextEvent(t, &evSummary{true, sip.StateTrying, "SIP/2.0 100 Trying"})
	// unhandled requests are rejected by the engine
	f.nextEvent(t, &evSummary{false, sip.StateTrying, "OPTIONS sip:bob@example.com SIP/2.0"})
	f.nextEvent(t, &evSummary{true, sip.StateFinish, "SIP/2.0 405 Method Not Allowed"})

	if got := f.addRaw(t, options); got != bt {
		t.Fatalf("e.AddRaw(retransmission) = %v, want %v", got, bt)
	}
	f.nextEvent(t, &evSummary{true, sip.StateFinish, "SIP/2.0 405 Method Not Allowed"})

	f.clock.Advance(32 * time.Second)
	f.nextEvent(t, &evSummary{false, sip.StateCleared, "OPTIONS sip:bob@example.com SIP/2.0"})
	if got := f.e.Len(); got != 0 {
		t.Errorf("e.Len() = %d, want 0", got)
	}

	res := f.party.Sent()[1]
	if got, want := res.HeaderValue("Allow"), f.e.Allowed(); got != want {
		t.Errorf("405 Allow = %q, want %q", got, want)
	}
}

func TestBasicTransaction_ServerReject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		allowed string
		raw     string
		want    string
	}{
		{
			"method not allowed",
			"ACK",
			inviteRaw,
			"SIP/2.0 501 Not Implemented",
		},
		{
			"missing Call-ID",
			"",
			"OPTIONS sip:bob@example.com SIP/2.0\r\n" +
				"Via: SIP/2.0/UDP 192.0.2.2;branch=z9hG4bKbad\r\n" +
				"From: <sip:alice@example.com>;tag=a1\r\n" +
				"To: <sip:bob@example.com>\r\n" +
				"CSeq: 1 OPTIONS\r\n\r\n",
			"SIP/2.0 400 Bad Request",
		},
		{
			"missing CSeq",
			"",
			"OPTIONS sip:bob@example.com SIP/2.0\r\n" +
				"Via: SIP/2.0/UDP 192.0.2.2;branch=z9hG4bKbad\r\n" +
				"From: <sip:alice@example.com>;tag=a1\r\n" +
				"To: <sip:bob@example.com>\r\n" +
				"Call-ID: bad1\r\n\r\n",
			"SIP/2.0 400 Bad Request",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			f := newTxFixture(t, &sip.EngineOptions{Allowed: c.allowed})
			bt := f.addRaw(t, c.raw)
			if bt == nil {
				t.Fatalf("e.AddRaw() = nil, want a transaction")
			}
			ev := f.e.Event(f.ctx)
			if ev == nil || !ev.IsOutgoing() || ev.Message().StartLine() != c.want {
				t.Fatalf("e.Event() = %v, want %q", ev, c.want)
			}
			f.e.ProcessEvent(f.ctx, ev)

			if diff := cmp.Diff(f.sent(), []string{c.want}); diff != "" {
				t.Errorf("sent messages mismatch (-got +want):\n%v", diff)
			}
			if got := bt.State(); got != sip.StateInvalid {
				t.Errorf("bt.State() = %v, want %v", got, sip.StateInvalid)
			}
			if got := f.e.Len(); got != 0 {
				t.Errorf("e.Len() = %d, want 0", got)
			}
		})
	}
}

// newOutgoing starts a client transaction and sends its request.
func (f *txFixture) newOutgoing(t *testing.T, method string) (*sip.BasicTransaction, *sip.Message) {
	t.Helper()

	m := sip.NewRequest(method, "sip:bob@example.com")
	m.SetParty(f.party)
	tx := f.e.AddMessage(f.ctx, m)
	bt, ok := tx.(*sip.BasicTransaction)
	if !ok || !bt.IsOutgoing() {
		t.Fatalf("e.AddMessage() = %v, want a client transaction", tx)
	}
	if bt.Method() != method || bt.Engine() != f.e {
		t.Fatalf("transaction method and engine = %q %p, want %q %p", bt.Method(), bt.Engine(), method, f.e)
	}
	f.nextEvent(t, &evSummary{true, sip.StateInitial, m.StartLine()})
	return bt, m
}

func (f *txFixture) respond(t *testing.T, req *sip.Message, code int, tag string) *sip.BasicTransaction {
	t.Helper()

	res := sip.NewResponse(req, code, "")
	if tag != "" {
		res.Header("To").SetParam("tag", tag)
	}
	return f.addRaw(t, res.String())
}

func TestBasicTransaction_ClientNonInvite(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, nil)
	bt, req := f.newOutgoing(t, sip.MethodOptions)
	if got := bt.State(); got != sip.StateTrying {
		t.Fatalf("bt.State() = %v, want %v", got, sip.StateTrying)
	}

	if got := f.respond(t, req, 100, ""); got != bt {
		t.Fatalf("100 matched %v, want %v", got, bt)
	}
	f.nextEvent(t, nil)
	if got := bt.State(); got != sip.StateProcess {
		t.Fatalf("bt.State() = %v, want %v", got, sip.StateProcess)
	}

	if got := f.respond(t, req, 200, "b1"); got != bt {
		t.Fatalf("200 matched %v, want %v", got, bt)
	}
	f.nextEvent(t, &evSummary{false, sip.StateProcess, "SIP/2.0 200 OK"})
	f.nextEvent(t, &evSummary{true, sip.StateCleared, req.StartLine()})
	f.nextEvent(t, nil)

	if bt.Response() != 200 || bt.DialogTag() != "b1" {
		t.Errorf("response and tag = %d %q, want 200 \"b1\"", bt.Response(), bt.DialogTag())
	}
	if diff := cmp.Diff(f.sent(), []string{req.StartLine()}); diff != "" {
		t.Errorf("sent messages mismatch (-got +want):\n%v", diff)
	}
}

func TestBasicTransaction_ClientTimeout(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, &sip.EngineOptions{Timings: sip.NewTimings(100*time.Millisecond, 0)})
	bt, req := f.newOutgoing(t, sip.MethodOptions)

	f.clock.Advance(6 * time.Second)
	f.nextEvent(t, nil)
	f.clock.Advance(time.Second)
	f.nextEvent(t, &evSummary{true, sip.StateCleared, req.StartLine()})

	if got := bt.Response(); got != int(sip.StatusRequestTimeout) {
		t.Errorf("bt.Response() = %d, want %d", got, sip.StatusRequestTimeout)
	}
	if got := f.respond(t, req, 200, "late"); got != nil {
		t.Errorf("late answer matched %v, want nil", got)
	}
}

func TestBasicTransaction_ClientInvite(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, nil)
	bt, req := f.newOutgoing(t, sip.MethodInvite)

	f.respond(t, req, 180, "b1")
	f.nextEvent(t, &evSummary{false, sip.StateProcess, "SIP/2.0 180 Ringing"})

	// an answer from another fork of the call
	if got := f.respond(t, req, 183, "b2"); got != nil {
		t.Errorf("forked answer matched %v, want nil", got)
	}
	f.nextEvent(t, nil)

	f.respond(t, req, 200, "b1")
	f.nextEvent(t, &evSummary{false, sip.StateProcess, "SIP/2.0 200 OK"})
	ack := f.nextEvent(t, &evSummary{true, sip.StateFinish, "ACK sip:bob@example.com SIP/2.0"}).Message()

	if got, want := ack.HeaderValue("CSeq"), "1 ACK"; got != want {
		t.Errorf("ACK CSeq = %q, want %q", got, want)
	}
	if got := ack.ParamValue("To", "tag"); got != "b1" {
		t.Errorf("ACK To tag = %q, want \"b1\"", got)
	}
	if br := ack.ParamValue("Via", "branch"); br == bt.Branch() || !strings.HasPrefix(br, sip.BranchCookie) {
		t.Errorf("ACK branch = %q, want a new branch", br)
	}

	// a retransmitted 200 is acknowledged again
	f.respond(t, req, 200, "b1")
	f.nextEvent(t, &evSummary{true, sip.StateFinish, "ACK sip:bob@example.com SIP/2.0"})

	f.clock.Advance(32 * time.Second)
	f.nextEvent(t, &evSummary{true, sip.StateCleared, req.StartLine()})
	f.nextEvent(t, nil)

	want := []string{req.StartLine(), ack.StartLine(), ack.StartLine()}
	if diff := cmp.Diff(f.sent(), want); diff != "" {
		t.Errorf("sent messages mismatch (-got +want):\n%v", diff)
	}
	if bt.LatestMessage() != ack {
		t.Errorf("bt.LatestMessage() = %v, want the ACK", bt.LatestMessage())
	}
}

func TestBasicTransaction_TransmitFailed(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, nil)
	f.party.err = errors.New("network unreachable")
	m := sip.NewRequest(sip.MethodOptions, "sip:bob@example.com")
	m.SetParty(f.party)
	bt, ok := f.e.AddMessage(f.ctx, m).(*sip.BasicTransaction)
	if !ok {
		t.Fatalf("e.AddMessage() did not create a basic transaction")
	}

	f.nextEvent(t, &evSummary{true, sip.StateInitial, m.StartLine()})
	if got := bt.State(); got != sip.StateCleared {
		t.Fatalf("bt.State() = %v, want %v", got, sip.StateCleared)
	}
	if got := bt.Response(); got != int(sip.StatusServerInternalError) {
		t.Errorf("bt.Response() = %d, want %d", got, sip.StatusServerInternalError)
	}
	f.nextEvent(t, &evSummary{true, sip.StateCleared, m.StartLine()})
	if got := f.e.Len(); got != 0 {
		t.Errorf("e.Len() = %d, want 0", got)
	}
}

func TestBasicTransaction_RequestAuth(t *testing.T) {
	t.Parallel()

	f := newTxFixture(t, &sip.EngineOptions{Users: sip.UserPasswords{"alice": "secret"}})
	register := func(cseq, branch string) string {
		return "REGISTER sip:example.com SIP/2.0\r\n" +
			"Via: SIP/2.0/UDP 192.0.2.2:5062;branch=" + branch + "\r\n" +
			"From: <sip:alice@example.com>;tag=r1\r\n" +
			"To: <sip:alice@example.com>\r\n" +
			"Call-ID: reg1\r\n" +
			"CSeq: " + cseq + " REGISTER\r\n"
	}

	bt := f.addRaw(t, register("1", "z9hG4bKr1")+"\r\n")
	f.nextEvent(t, nil)
	f.nextEvent(t, &evSummary{true, sip.StateTrying, "SIP/2.0 100 Trying"})
	f.e.Event(f.ctx)

	if age, _ := bt.AuthUser(f.ctx, "", false); age != -1 {
		t.Errorf("bt.AuthUser() without credentials age = %d, want -1", age)
	}
	if !bt.RequestAuth("example.com", "sip:example.com", false, false) {
		t.Fatalf("bt.RequestAuth() = false, want true")
	}
	challenge := f.nextEvent(t, &evSummary{true, sip.StateFinish, "SIP/2.0 401 Unauthorized"}).Message()
	if got, want := challenge.Header("WWW-Authenticate").ParamValue("domain"), `"sip:example.com"`; got != want {
		t.Errorf("challenge domain = %q, want %q", got, want)
	}
	if bt.RequestAuth("example.com", "", false, false) {
		t.Errorf("second bt.RequestAuth() = true, want false")
	}

	auth := challenge.BuildAuth("alice", "secret", sip.MethodRegister, "sip:example.com", false, f.e)
	bt2 := f.addRaw(t, register("2", "z9hG4bKr2")+auth.String()+"\r\n\r\n")
	if bt2 == nil || bt2 == bt {
		t.Fatalf("e.AddRaw(authenticated REGISTER) = %v, want a new transaction", bt2)
	}
	if age, user := bt2.AuthUser(f.ctx, "", false); age != 0 || user != "alice" {
		t.Errorf("bt2.AuthUser() = (%d, %q), want (0, \"alice\")", age, user)
	}
}
