// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import "github.com/prometheus/client_golang/prometheus"

// PollerCollector is a prometheus.Collector exposing a Poller's membership
// and readiness-set sizes. It is optional: nothing in the package registers
// it automatically.
//
// Grounded on runZeroInc-conniver's pkg/exporter.TCPInfoCollector: a hand-
// written Describe/Collect pair over a fixed set of prometheus.NewDesc
// values, rather than promauto's registration-time helpers.
type PollerCollector struct {
	poller *Poller
	prefix string

	members    *prometheus.Desc
	acceptable *prometheus.Desc
	readable   *prometheus.Desc
	errored    *prometheus.Desc

	messagesSent     *prometheus.Desc
	bytesSent        *prometheus.Desc
	messagesReceived *prometheus.Desc
	bytesReceived    *prometheus.Desc
	endpointErrors   *prometheus.Desc
}

// NewPollerCollector wraps p. prefix names the exported metric family, e.g.
// "dsmsg" yields "dsmsg_members", "dsmsg_acceptable", and so on.
func NewPollerCollector(p *Poller, prefix string) *PollerCollector {
	return &PollerCollector{
		poller: p,
		prefix: prefix,
		members: prometheus.NewDesc(prefix+"_members", "Endpoints currently registered with the poller.", nil, nil),
		acceptable: prometheus.NewDesc(prefix+"_acceptable", "Member endpoints with a connection waiting to be accepted.", nil, nil),
		readable: prometheus.NewDesc(prefix+"_readable", "Member endpoints with a completed message waiting to be received.", nil, nil),
		errored: prometheus.NewDesc(prefix+"_errored", "Member endpoints that have transitioned to ERRORED.", nil, nil),

		messagesSent:     prometheus.NewDesc(prefix+"_messages_sent_total", "Messages fully flushed to a member's socket.", nil, nil),
		bytesSent:        prometheus.NewDesc(prefix+"_bytes_sent_total", "Payload octets fully flushed to a member's socket.", nil, nil),
		messagesReceived: prometheus.NewDesc(prefix+"_messages_received_total", "Messages fully assembled from a member's socket.", nil, nil),
		bytesReceived:    prometheus.NewDesc(prefix+"_bytes_received_total", "Payload octets fully assembled from a member's socket.", nil, nil),
		endpointErrors:   prometheus.NewDesc(prefix+"_endpoint_errors_total", "Member endpoints that transitioned to ERRORED with a non-nil cause.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PollerCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.members
	descs <- c.acceptable
	descs <- c.readable
	descs <- c.errored
	descs <- c.messagesSent
	descs <- c.bytesSent
	descs <- c.messagesReceived
	descs <- c.bytesReceived
	descs <- c.endpointErrors
}

// Collect implements prometheus.Collector.
func (c *PollerCollector) Collect(metrics chan<- prometheus.Metric) {
	p := c.poller
	metrics <- prometheus.MustNewConstMetric(c.members, prometheus.GaugeValue, float64(len(p.members)))
	metrics <- prometheus.MustNewConstMetric(c.acceptable, prometheus.GaugeValue, float64(len(p.acceptable)))
	metrics <- prometheus.MustNewConstMetric(c.readable, prometheus.GaugeValue, float64(len(p.readable)))
	metrics <- prometheus.MustNewConstMetric(c.errored, prometheus.GaugeValue, float64(len(p.errored)))

	metrics <- prometheus.MustNewConstMetric(c.messagesSent, prometheus.CounterValue, float64(p.messagesSent))
	metrics <- prometheus.MustNewConstMetric(c.bytesSent, prometheus.CounterValue, float64(p.bytesSent))
	metrics <- prometheus.MustNewConstMetric(c.messagesReceived, prometheus.CounterValue, float64(p.messagesReceived))
	metrics <- prometheus.MustNewConstMetric(c.bytesReceived, prometheus.CounterValue, float64(p.bytesReceived))
	metrics <- prometheus.MustNewConstMetric(c.endpointErrors, prometheus.CounterValue, float64(p.endpointErrors))
}
