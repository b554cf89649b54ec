package arqstream

import "sync/atomic"

// Statistics is the receiver's own counter bundle (§6). Implementations
// must be safe for concurrent use since a caller may sample counters
// from outside the connection's single-threaded event loop.
type Statistics interface {
	AddRxData(packets, bytes uint64)
	AddRxUniqueData(packets, bytes uint64)
	AddRxRetransmitData(packets uint64)
	AddRxDroppedData(packets, bytes uint64)
	AddRxDecryptedData(packets uint64)
	AddRxDecryptErrors(packets, bytes uint64)
	AddRxAck2(count uint64)
	AddRxAck2Errors(count uint64)
	AddRxClockAdjustments(count uint64)
}

// MemStats is a dependency-free, in-process Statistics implementation
// backed by atomic counters. It is the zero-dependency fallback the
// teacher's own code would reach for when no metrics backend is wired
// in; PrometheusStats (stats_prometheus.go) exports the same counters
// for scraping.
type MemStats struct {
	RxData              uint64
	RxBytes             uint64
	RxUniqueData        uint64
	RxUniqueBytes       uint64
	RxRetransmitData    uint64
	RxDroppedData       uint64
	RxDroppedBytes      uint64
	RxDecryptedData     uint64
	RxDecryptErrors     uint64
	RxDecryptErrorBytes uint64
	RxAck2              uint64
	RxAck2Errors        uint64
	RxClockAdjustments  uint64
}

func (m *MemStats) AddRxData(packets, bytes uint64) {
	atomic.AddUint64(&m.RxData, packets)
	atomic.AddUint64(&m.RxBytes, bytes)
}

func (m *MemStats) AddRxUniqueData(packets, bytes uint64) {
	atomic.AddUint64(&m.RxUniqueData, packets)
	atomic.AddUint64(&m.RxUniqueBytes, bytes)
}

func (m *MemStats) AddRxRetransmitData(packets uint64) {
	atomic.AddUint64(&m.RxRetransmitData, packets)
}

func (m *MemStats) AddRxDroppedData(packets, bytes uint64) {
	atomic.AddUint64(&m.RxDroppedData, packets)
	atomic.AddUint64(&m.RxDroppedBytes, bytes)
}

func (m *MemStats) AddRxDecryptedData(packets uint64) {
	atomic.AddUint64(&m.RxDecryptedData, packets)
}

func (m *MemStats) AddRxDecryptErrors(packets, bytes uint64) {
	atomic.AddUint64(&m.RxDecryptErrors, packets)
	atomic.AddUint64(&m.RxDecryptErrorBytes, bytes)
}

func (m *MemStats) AddRxAck2(count uint64) {
	atomic.AddUint64(&m.RxAck2, count)
}

func (m *MemStats) AddRxAck2Errors(count uint64) {
	atomic.AddUint64(&m.RxAck2Errors, count)
}

func (m *MemStats) AddRxClockAdjustments(count uint64) {
	atomic.AddUint64(&m.RxClockAdjustments, count)
}
