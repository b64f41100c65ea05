// Package metrics contains the prometheus [domain.Metrics] implementation.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// Namespace prefixes every exported metric.
const Namespace = "polodb"

// Metrics implements [domain.Metrics]. The zero value records nothing.
type Metrics struct {
	transactions *prometheus.CounterVec
	documents    *prometheus.CounterVec
	syncs        prometheus.Counter
	compactions  prometheus.Counter
	collections  prometheus.Gauge
}

// NewMetrics returns a [domain.Metrics] registered in reg. A nil reg returns
// a no-op instance. Collectors already registered by another database are
// shared.
func NewMetrics(reg prometheus.Registerer) (domain.Metrics, error) {
	if reg == nil {
		return &Metrics{}, nil
	}

	m := &Metrics{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "transactions_total",
				Help:      "Total number of finished transactions",
			},
			[]string{"outcome"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "documents_written_total",
				Help:      "Total number of documents inserted, updated or deleted",
			},
			[]string{"operation"},
		),
		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "journal_syncs_total",
			Help:      "Total number of journal appends flushed to disk",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "journal_compactions_total",
			Help:      "Total number of journal compactions",
		}),
		collections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "collections",
			Help:      "Current number of collections",
		}),
	}

	var err error
	m.transactions, err = register(reg, m.transactions)
	if err != nil {
		return nil, err
	}
	if m.documents, err = register(reg, m.documents); err != nil {
		return nil, err
	}
	if m.syncs, err = register(reg, m.syncs); err != nil {
		return nil, err
	}
	if m.compactions, err = register(reg, m.compactions); err != nil {
		return nil, err
	}
	if m.collections, err = register(reg, m.collections); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Commit implements [domain.Metrics].
func (m *Metrics) Commit() {
	if m.transactions == nil {
		return
	}
	m.transactions.WithLabelValues("commit").Inc()
}

// Rollback implements [domain.Metrics].
func (m *Metrics) Rollback() {
	if m.transactions == nil {
		return
	}
	m.transactions.WithLabelValues("rollback").Inc()
}

// Insert implements [domain.Metrics].
func (m *Metrics) Insert() {
	if m.documents == nil {
		return
	}
	m.documents.WithLabelValues("insert").Inc()
}

// Delete implements [domain.Metrics].
func (m *Metrics) Delete() {
	if m.documents == nil {
		return
	}
	m.documents.WithLabelValues("delete").Inc()
}

// Update implements [domain.Metrics].
func (m *Metrics) Update(n int64) {
	if m.documents == nil || n <= 0 {
		return
	}
	m.documents.WithLabelValues("update").Add(float64(n))
}

// Sync implements [domain.Metrics].
func (m *Metrics) Sync() {
	if m.syncs == nil {
		return
	}
	m.syncs.Inc()
}

// Compaction implements [domain.Metrics].
func (m *Metrics) Compaction() {
	if m.compactions == nil {
		return
	}
	m.compactions.Inc()
}

// Collections implements [domain.Metrics].
func (m *Metrics) Collections(n int) {
	if m.collections == nil {
		return
	}
	m.collections.Set(float64(n))
}
