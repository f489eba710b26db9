package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline outcomes.
type Metrics struct {
	submissions   *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	erasures      *prometheus.CounterVec
}

// NewMetrics registers the pipeline counters with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_submissions_total",
			Help: "Invoice submissions by mode and result.",
		}, []string{"mode", "result"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_status_changes_total",
			Help: "Status change requests by target status and result.",
		}, []string{"target", "result"}),
		erasures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_erasures_total",
			Help: "Cascading erase requests by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.submissions, m.statusChanges, m.erasures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// resultLabel folds an error into a small label set.
func resultLabel(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *ValidationError:
		return "invalid"
	case *ConflictError:
		return "conflict"
	}
	switch err {
	case ErrNotFound:
		return "not_found"
	case ErrInvalidStatus, ErrInvalidToken:
		return "invalid"
	}
	return "error"
}

func (m *Metrics) submission(mode Mode, err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(mode), resultLabel(err)).Inc()
}

func (m *Metrics) statusChange(target string, err error) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(target, resultLabel(err)).Inc()
}

func (m *Metrics) erasure(err error) {
	if m == nil {
		return
	}
	m.erasures.WithLabelValues(resultLabel(err)).Inc()
}
