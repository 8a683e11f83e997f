// Package telemetry exports the meters of an engine to Prometheus.
//
// Peak meters reset when read, so only the [Poller] reads them; the
// collector reports the values of its last poll. Level meters are read
// directly at scrape time.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/algo-hotmic/host/meter"
)

const namespace = "hotmic"

// Collector exposes a meter bank as gauges labelled by meter name.
type Collector struct {
	bank   *meter.Bank
	poller *Poller

	levelDesc *prometheus.Desc
	peakDesc  *prometheus.Desc
}

// NewCollector returns a collector over bank. poller may be nil, in which
// case peaks are reported without resetting them.
func NewCollector(bank *meter.Bank, poller *Poller, constLabels prometheus.Labels) *Collector {
	return &Collector{
		bank:   bank,
		poller: poller,
		levelDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "meter", "level"),
			"Current value of a level meter.",
			[]string{"meter"}, constLabels,
		),
		peakDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "meter", "peak"),
			"Largest value of a peak meter during the last poll interval.",
			[]string{"meter"}, constLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.levelDesc
	ch <- c.peakDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.bank.EachLevel(func(name string, l *meter.Level) {
		ch <- prometheus.MustNewConstMetric(c.levelDesc, prometheus.GaugeValue, l.Load(), name)
	})

	if c.poller != nil {
		for name, v := range c.poller.Values() {
			ch <- prometheus.MustNewConstMetric(c.peakDesc, prometheus.GaugeValue, v, name)
		}

		return
	}

	c.bank.EachPeak(func(name string, p *meter.Peak) {
		ch <- prometheus.MustNewConstMetric(c.peakDesc, prometheus.GaugeValue, p.Peek(), name)
	})
}
