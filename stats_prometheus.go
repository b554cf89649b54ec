package arqstream

import "github.com/prometheus/client_golang/prometheus"

// PrometheusStats implements Statistics by exporting the same counters
// MemStats tracks in-process through client_golang, so a connection's
// receive-side behavior can be scraped alongside the rest of a
// service's metrics without a bespoke exposition format.
type PrometheusStats struct {
	rxData              prometheus.Counter
	rxBytes             prometheus.Counter
	rxUniqueData        prometheus.Counter
	rxUniqueBytes       prometheus.Counter
	rxRetransmitData    prometheus.Counter
	rxDroppedData       prometheus.Counter
	rxDroppedBytes      prometheus.Counter
	rxDecryptedData     prometheus.Counter
	rxDecryptErrors     prometheus.Counter
	rxDecryptErrorBytes prometheus.Counter
	rxAck2              prometheus.Counter
	rxAck2Errors        prometheus.Counter
	rxClockAdjustments  prometheus.Counter
}

// NewPrometheusStats constructs and registers one counter family per
// receiver statistic, labeled with connID so multiple connections can
// be scraped from the same registry.
func NewPrometheusStats(reg prometheus.Registerer, connID string) *PrometheusStats {
	newCounter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "arqstream",
			Subsystem:   "receiver",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"conn_id": connID},
		})
		reg.MustRegister(c)
		return c
	}

	return &PrometheusStats{
		rxData:              newCounter("rx_data_total", "data packets received"),
		rxBytes:             newCounter("rx_bytes_total", "data bytes received"),
		rxUniqueData:        newCounter("rx_unique_data_total", "non-retransmitted data packets received"),
		rxUniqueBytes:       newCounter("rx_unique_bytes_total", "non-retransmitted data bytes received"),
		rxRetransmitData:    newCounter("rx_retransmit_data_total", "retransmitted packets received"),
		rxDroppedData:       newCounter("rx_dropped_data_total", "packets dropped past deadline or window"),
		rxDroppedBytes:      newCounter("rx_dropped_bytes_total", "bytes dropped past deadline or window"),
		rxDecryptedData:     newCounter("rx_decrypted_data_total", "packets successfully decrypted"),
		rxDecryptErrors:     newCounter("rx_decrypt_errors_total", "packets that failed decryption"),
		rxDecryptErrorBytes: newCounter("rx_decrypt_error_bytes_total", "bytes dropped due to decrypt errors"),
		rxAck2:              newCounter("rx_ack2_total", "ACK2 packets received"),
		rxAck2Errors:        newCounter("rx_ack2_errors_total", "ACK2 packets with no matching full ACK"),
		rxClockAdjustments:  newCounter("rx_clock_adjustments_total", "TSBPD clock drift corrections applied"),
	}
}

func (p *PrometheusStats) AddRxData(packets, bytes uint64) {
	p.rxData.Add(float64(packets))
	p.rxBytes.Add(float64(bytes))
}

func (p *PrometheusStats) AddRxUniqueData(packets, bytes uint64) {
	p.rxUniqueData.Add(float64(packets))
	p.rxUniqueBytes.Add(float64(bytes))
}

func (p *PrometheusStats) AddRxRetransmitData(packets uint64) {
	p.rxRetransmitData.Add(float64(packets))
}

func (p *PrometheusStats) AddRxDroppedData(packets, bytes uint64) {
	p.rxDroppedData.Add(float64(packets))
	p.rxDroppedBytes.Add(float64(bytes))
}

func (p *PrometheusStats) AddRxDecryptedData(packets uint64) {
	p.rxDecryptedData.Add(float64(packets))
}

func (p *PrometheusStats) AddRxDecryptErrors(packets, bytes uint64) {
	p.rxDecryptErrors.Add(float64(packets))
	p.rxDecryptErrorBytes.Add(float64(bytes))
}

func (p *PrometheusStats) AddRxAck2(count uint64) {
	p.rxAck2.Add(float64(count))
}

func (p *PrometheusStats) AddRxAck2Errors(count uint64) {
	p.rxAck2Errors.Add(float64(count))
}

func (p *PrometheusStats) AddRxClockAdjustments(count uint64) {
	p.rxClockAdjustments.Add(float64(count))
}
