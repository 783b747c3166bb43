package hdfskit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by a Provider. A nil
// *Metrics records nothing.
type Metrics struct {
	operationsTotal  *prometheus.CounterVec
	bytesTransferred *prometheus.CounterVec
	bulkJobsTotal    *prometheus.CounterVec
	openFileSystems  *prometheus.GaugeVec
}

// NewMetrics registers the provider collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdfskit_operations_total",
				Help: "Total number of provider operations by operation, status, and error kind",
			},
			[]string{"operation", "status", "error_kind"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdfskit_bytes_transferred_total",
				Help: "Total bytes moved through byte channels",
			},
			[]string{"direction"},
		),
		bulkJobsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdfskit_bulk_jobs_total",
				Help: "Total number of bulk copy jobs by status",
			},
			[]string{"status"},
		),
		openFileSystems: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hdfskit_open_filesystems",
				Help: "Current number of open file system handles",
			},
			[]string{"scheme"},
		),
	}
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(op, status, errorKind(err)).Inc()
}

func (m *Metrics) addBytesRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues("read").Add(float64(n))
}

func (m *Metrics) addBytesWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues("write").Add(float64(n))
}

func (m *Metrics) bulkJob(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.bulkJobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) fileSystemOpened(scheme string) {
	if m == nil {
		return
	}
	m.openFileSystems.WithLabelValues(scheme).Inc()
}

func (m *Metrics) fileSystemClosed(scheme string) {
	if m == nil {
		return
	}
	m.openFileSystems.WithLabelValues(scheme).Dec()
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrNotExist, "not_exist"},
	{ErrExist, "exist"},
	{ErrNotEmpty, "not_empty"},
	{ErrPermission, "permission"},
	{ErrNotDir, "not_dir"},
	{ErrNotLink, "not_link"},
	{ErrNotSupported, "not_supported"},
	{ErrInvalidArgument, "invalid_argument"},
	{ErrProviderMismatch, "provider_mismatch"},
	{ErrClosed, "closed"},
	{ErrIO, "io"},
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
