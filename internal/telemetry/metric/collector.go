package metric

import "github.com/prometheus/client_golang/prometheus"

// BoardStat is the per-board data reported at scrape time.
type BoardStat struct {
	Name         string
	Elements     int
	Participants int
}

// BoardSource lists the resident boards.
type BoardSource interface {
	BoardStats() []BoardStat
}

// BoardCollector reports element and participant gauges per resident board.
type BoardCollector struct {
	source       BoardSource
	elements     *prometheus.Desc
	participants *prometheus.Desc
}

// NewBoardCollector creates a collector reading from source.
func NewBoardCollector(source BoardSource) *BoardCollector {
	return &BoardCollector{
		source: source,
		elements: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "board", "elements"),
			"Elements stored on a resident board",
			[]string{"board"}, nil,
		),
		participants: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "board", "participants"),
			"Participants attached to a resident board",
			[]string{"board"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BoardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.elements
	ch <- c.participants
}

// Collect implements prometheus.Collector.
func (c *BoardCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source.BoardStats() {
		ch <- prometheus.MustNewConstMetric(c.elements, prometheus.GaugeValue, float64(s.Elements), s.Name)
		ch <- prometheus.MustNewConstMetric(c.participants, prometheus.GaugeValue, float64(s.Participants), s.Name)
	}
}

// BoardSourceFunc adapts a function to BoardSource.
type BoardSourceFunc func() []BoardStat

// BoardStats implements BoardSource.
func (f BoardSourceFunc) BoardStats() []BoardStat { return f() }
