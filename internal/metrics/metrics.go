// Package metrics exposes Prometheus metrics gathered at scrape time from
// the platform's repositories.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EntityCounter returns the total number of rows for one entity type.
type EntityCounter interface {
	Count(ctx context.Context) (int64, error)
}

// CallDirectionCounter returns call counts grouped by direction.
type CallDirectionCounter interface {
	CountByDirection(ctx context.Context) (map[string]int64, error)
}

// Collector is a prometheus.Collector that gathers CallForge metrics at scrape time.
type Collector struct {
	agents    EntityCounter
	contacts  EntityCounter
	campaigns EntityCounter
	calls     CallDirectionCounter
	startTime time.Time

	// Metric descriptors.
	agentsDesc     *prometheus.Desc
	contactsDesc   *prometheus.Desc
	campaignsDesc  *prometheus.Desc
	callsTotalDesc *prometheus.Desc
	uptimeDesc     *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if unavailable.
func NewCollector(
	agents EntityCounter,
	contacts EntityCounter,
	campaigns EntityCounter,
	calls CallDirectionCounter,
	startTime time.Time,
) *Collector {
	return &Collector{
		agents:    agents,
		contacts:  contacts,
		campaigns: campaigns,
		calls:     calls,
		startTime: startTime,

		agentsDesc: prometheus.NewDesc(
			"callforge_agents",
			"Number of configured AI agents",
			nil, nil,
		),
		contactsDesc: prometheus.NewDesc(
			"callforge_contacts",
			"Number of stored contacts",
			nil, nil,
		),
		campaignsDesc: prometheus.NewDesc(
			"callforge_campaigns",
			"Number of campaigns in any status",
			nil, nil,
		),
		callsTotalDesc: prometheus.NewDesc(
			"callforge_calls_total",
			"Total number of calls recorded",
			[]string{"direction"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"callforge_uptime_seconds",
			"Seconds since the CallForge process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.agentsDesc
	ch <- c.contactsDesc
	ch <- c.campaignsDesc
	ch <- c.callsTotalDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gauge := func(desc *prometheus.Desc, counter EntityCounter) {
		if counter == nil {
			return
		}
		count, err := counter.Count(ctx)
		if err != nil {
			slog.Error("metrics: count failed", "metric", desc.String(), "error", err)
			return
		}
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(count))
	}

	gauge(c.agentsDesc, c.agents)
	gauge(c.contactsDesc, c.contacts)
	gauge(c.campaignsDesc, c.campaigns)

	// Call volume counters by direction.
	if c.calls != nil {
		counts, err := c.calls.CountByDirection(ctx)
		if err != nil {
			slog.Error("metrics: failed to count calls by direction", "error", err)
		} else {
			for _, dir := range []string{"inbound", "outbound"} {
				ch <- prometheus.MustNewConstMetric(
					c.callsTotalDesc, prometheus.CounterValue,
					float64(counts[dir]), dir,
				)
			}
		}
	}

	// Uptime.
	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
