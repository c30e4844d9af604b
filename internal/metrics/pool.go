package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStats maps metric names to their help text and stat reader.
var poolStats = []struct {
	name string
	help string
	read func(*pgxpool.Stat) float64
}{
	{"acquire_count", "Cumulative count of successful connection acquires.",
		func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }},
	{"acquire_duration_seconds", "Cumulative time spent acquiring connections.",
		func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }},
	{"acquired_conns", "Number of currently acquired connections.",
		func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
	{"canceled_acquire_count", "Cumulative count of acquires canceled by context.",
		func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }},
	{"constructing_conns", "Number of connections currently being constructed.",
		func(s *pgxpool.Stat) float64 { return float64(s.ConstructingConns()) }},
	{"empty_acquire_count", "Cumulative count of acquires from an empty pool.",
		func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }},
	{"idle_conns", "Number of idle connections in the pool.",
		func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
	{"max_conns", "Maximum number of connections allowed.",
		func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }},
	{"new_conns_count", "Cumulative count of new connections created.",
		func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }},
	{"total_conns", "Total number of connections in the pool.",
		func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
}

// PoolCollector implements prometheus.Collector for pgxpool statistics.
// Stats are read on-demand during each scrape; no polling goroutine.
type PoolCollector struct {
	pools map[string]*pgxpool.Pool
	descs []*prometheus.Desc
}

// NewPoolCollector creates a collector that exports pgxpool stats per
// named pool.
func NewPoolCollector(pools map[string]*pgxpool.Pool) *PoolCollector {
	c := &PoolCollector{pools: pools}
	for _, st := range poolStats {
		c.descs = append(c.descs, prometheus.NewDesc(
			"duneatlas_pgxpool_"+st.name, st.help, []string{"pool"}, nil))
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for name, pool := range c.pools {
		stat := pool.Stat()
		for i, st := range poolStats {
			ch <- prometheus.MustNewConstMetric(
				c.descs[i], prometheus.GaugeValue, st.read(stat), name)
		}
	}
}
