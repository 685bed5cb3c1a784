package sip

import (
	"errors"

	"braces.dev/errtrace"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch results counted by [Metrics].
const (
	dispatchMatched     = "matched"
	dispatchCreated     = "created"
	dispatchForked      = "forked"
	dispatchStrayAnswer = "stray_answer"
	dispatchStrayACK    = "stray_ack"
)

// Metrics holds the engine collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	parsed       *prometheus.CounterVec
	parseErrors  prometheus.Counter
	dispatch     *prometheus.CounterVec
	nonces       prometheus.Counter
	auth         *prometheus.CounterVec
	transactions prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
// Collectors already registered by another engine are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ysip_messages_parsed_total",
			Help: "Number of parsed SIP messages by kind (request or response).",
		}, []string{"kind"}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ysip_parse_errors_total",
			Help: "Number of buffers that failed to parse as SIP messages.",
		}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ysip_dispatch_total",
			Help: "Number of dispatched messages by result.",
		}, []string{"result"}),
		nonces: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ysip_nonces_issued_total",
			Help: "Number of digest nonces generated.",
		}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ysip_auth_total",
			Help: "Number of credential checks by result.",
		}, []string{"result"}),
		transactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ysip_transactions",
			Help: "Number of transactions in the engine registry.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.parsed = register(reg, m.parsed, &err)
	m.parseErrors = register(reg, m.parseErrors, &err)
	m.dispatch = register(reg, m.dispatch, &err)
	m.nonces = register(reg, m.nonces, &err)
	m.auth = register(reg, m.auth, &err)
	m.transactions = register(reg, m.transactions, &err)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if ex, ok := are.ExistingCollector.(C); ok {
				return ex
			}
		}
		*errp = err
	}
	return c
}

func (m *Metrics) messageParsed(msg *Message) {
	if m == nil {
		return
	}
	kind := "request"
	if msg.IsAnswer() {
		kind = "response"
	}
	m.parsed.WithLabelValues(kind).Inc()
}

func (m *Metrics) parseFailed() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}

func (m *Metrics) dispatched(result string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(result).Inc()
}

func (m *Metrics) nonceIssued() {
	if m == nil {
		return
	}
	m.nonces.Inc()
}

func (m *Metrics) authChecked(ok bool) {
	if m == nil {
		return
	}
	res := "fail"
	if ok {
		res = "ok"
	}
	m.auth.WithLabelValues(res).Inc()
}

func (m *Metrics) setTransactions(n int) {
	if m == nil {
		return
	}
	m.transactions.Set(float64(n))
}
