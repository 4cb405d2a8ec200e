package sink

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hooksink/hooksink/internal/cache"
	"github.com/hooksink/hooksink/internal/metric"
)

// Snapshotter is the read side of the series cache: an ordered view of the
// current live entries. Sinks render it with no further extraction logic.
type Snapshotter interface {
	Snapshot() []cache.Entry
}

// Collector bridges a cache snapshot to the prometheus client as const
// metrics. Gauge and counter entries expose the cached value; info entries
// expose <name>_info with value 1 and the info map merged into the labels.
//
// Timestamps are attached only when enabled: the scrape endpoint wants the
// sample's event time, while the textfile collector and the pushgateway both
// reject timestamped samples.
type Collector struct {
	src        Snapshotter
	log        *zap.Logger
	timestamps bool
}

func NewCollector(src Snapshotter, log *zap.Logger, timestamps bool) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{src: src, log: log, timestamps: timestamps}
}

// Describe sends nothing: the metric set is config- and traffic-driven, so
// the collector is unchecked.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, entry := range c.src.Snapshot() {
		m, err := c.build(entry)
		if err != nil {
			c.log.Warn("skipping unrenderable series",
				zap.String("series", entry.Record.Name),
				zap.Error(err))
			continue
		}
		if c.timestamps {
			m = prometheus.NewMetricWithTimestamp(entry.Record.Timestamp, m)
		}
		ch <- m
	}
}

func (c *Collector) build(entry cache.Entry) (prometheus.Metric, error) {
	rec := entry.Record

	name := rec.Name
	value := rec.Value
	valueType := prometheus.GaugeValue
	labels := rec.Labels

	switch rec.Type {
	case metric.TypeCounter:
		valueType = prometheus.CounterValue
	case metric.TypeInfo:
		// Info convention: constant 1 with the info map as extra labels.
		name += "_info"
		value = 1
		merged := make(map[string]string, len(rec.Labels)+len(rec.Info))
		for k, v := range rec.Labels {
			merged[k] = v
		}
		for k, v := range rec.Info {
			merged[k] = v
		}
		labels = merged
	}

	keys, vals := sortedLabelPairs(labels)
	desc := prometheus.NewDesc(name, rec.Help, keys, nil)
	return prometheus.NewConstMetric(desc, valueType, value, vals...)
}

func sortedLabelPairs(labels map[string]string) ([]string, []string) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = labels[k]
	}
	return keys, vals
}
