package sip

import (
	"encoding/json"
	"time"

	"braces.dev/errtrace"
)

// Default values for SIP timers as described in RFC 3261.
const (
	// T1 is the message RTT estimate.
	T1 = 500 * time.Millisecond
	// T2 is the maximum retransmit interval for non-INVITE requests and INVITE responses.
	T2 = 4 * time.Second
	// T4 is the maximum duration a message will remain in the network.
	T4 = 5 * time.Second
	// TimeC is the proxy INVITE transaction timeout.
	TimeC = 180 * time.Second
	// TimeD is the wait duration for response retransmits via unreliable transport.
	TimeD = 32 * time.Second
)

// TimingConfig represents SIP timing config.
// Only the T1 and T4 bases are configurable, zero values select [T1] and [T4].
// All letter timers are derived from them.
type TimingConfig struct {
	t1, t4 time.Duration
}

// NewTimings creates a new SIP timing config with specified base values.
func NewTimings(t1, t4 time.Duration) TimingConfig {
	return TimingConfig{t1, t4}
}

// T1 is the message RTT estimate.
// It is equal to [T1] if not specified.
func (c TimingConfig) T1() time.Duration {
	if c.t1 <= 0 {
		return T1
	}
	return c.t1
}

// T2 is the maximum retransmit interval for non-INVITE requests and INVITE responses.
// It is always [T2].
func (TimingConfig) T2() time.Duration { return T2 }

// T4 is the maximum duration a message will remain in the network.
// It is equal to [T4] if not specified.
func (c TimingConfig) T4() time.Duration {
	if c.t4 <= 0 {
		return T4
	}
	return c.t4
}

// TimeA returns INVITE request retransmit interval for unreliable transport.
func (c TimingConfig) TimeA() time.Duration { return c.T1() }

// TimeB returns INVITE client transaction timeout.
func (c TimingConfig) TimeB() time.Duration { return 64 * c.T1() }

// TimeC returns the INVITE transaction timeout on proxy.
func (TimingConfig) TimeC() time.Duration { return TimeC }

// TimeD is the wait duration for response retransmits.
// It is zero for reliable transports.
func (TimingConfig) TimeD(reliable bool) time.Duration {
	if reliable {
		return 0
	}
	return TimeD
}

// TimeE returns non-INVITE request retransmit interval for unreliable transport.
func (c TimingConfig) TimeE() time.Duration { return c.T1() }

// TimeF returns non-INVITE client transaction timeout.
func (c TimingConfig) TimeF() time.Duration { return 64 * c.T1() }

// TimeG returns INVITE response retransmit interval.
func (c TimingConfig) TimeG() time.Duration { return c.T1() }

// TimeH returns timeout for ACK request receipt.
func (c TimingConfig) TimeH() time.Duration { return 64 * c.T1() }

// TimeI returns wait duration for ACK request retransmits.
// It is zero for reliable transports.
func (c TimingConfig) TimeI(reliable bool) time.Duration {
	if reliable {
		return 0
	}
	return c.T4()
}

// TimeJ returns wait duration for non-INVITE request retransmits.
// It is zero for reliable transports.
func (c TimingConfig) TimeJ(reliable bool) time.Duration {
	if reliable {
		return 0
	}
	return 64 * c.T1()
}

// TimeK returns wait duration for response retransmits.
// It is zero for reliable transports.
func (c TimingConfig) TimeK(reliable bool) time.Duration {
	if reliable {
		return 0
	}
	return c.T4()
}

// Timer returns the timer identified by its RFC 3261 letter
// ('1', '2', '4' for the bases, 'A' to 'K' for the letter timers).
// The second result is false for an unknown letter.
func (c TimingConfig) Timer(which byte, reliable bool) (time.Duration, bool) {
	switch which {
	case '1':
		return c.T1(), true
	case '2':
		return c.T2(), true
	case '4':
		return c.T4(), true
	case 'A':
		return c.TimeA(), true
	case 'B':
		return c.TimeB(), true
	case 'C':
		return c.TimeC(), true
	case 'D':
		return c.TimeD(reliable), true
	case 'E':
		return c.TimeE(), true
	case 'F':
		return c.TimeF(), true
	case 'G':
		return c.TimeG(), true
	case 'H':
		return c.TimeH(), true
	case 'I':
		return c.TimeI(reliable), true
	case 'J':
		return c.TimeJ(reliable), true
	case 'K':
		return c.TimeK(reliable), true
	}
	return 0, false
}

func (c TimingConfig) IsZero() bool { return c.t1 == 0 && c.t4 == 0 }

type timingConfData struct {
	T1 time.Duration `json:"t1,omitempty"`
	T4 time.Duration `json:"t4,omitempty"`
}

func (c TimingConfig) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(json.Marshal(timingConfData{
		T1: c.t1,
		T4: c.t4,
	}))
}

func (c *TimingConfig) UnmarshalJSON(data []byte) error {
	var d timingConfData
	if err := json.Unmarshal(data, &d); err != nil {
		return errtrace.Wrap(err)
	}
	c.t1 = d.T1
	c.t4 = d.T4
	return nil
}
