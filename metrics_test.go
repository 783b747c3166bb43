package hdfskit

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	t.Run("nil metrics record nothing", func(t *testing.T) {
		var m *Metrics
		m.observe("stat", ErrIO)
		m.addBytesRead(10)
		m.addBytesWritten(10)
		m.bulkJob(nil)
		m.fileSystemOpened("mem")
		m.fileSystemClosed("mem")
	})

	t.Run("counts operations by error kind", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.observe("stat", nil)
		m.observe("stat", &PathError{Op: "stat", Err: ErrNotExist})
		m.observe("stat", &PathError{Op: "stat", Err: ErrNotExist})

		if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("stat", "success", "")); got != 1 {
			t.Errorf("expected 1 success, got %v", got)
		}
		if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("stat", "error", "not_exist")); got != 2 {
			t.Errorf("expected 2 not_exist errors, got %v", got)
		}
	})

	t.Run("bytes bulk jobs and handles", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		m.addBytesRead(5)
		m.addBytesRead(0)
		m.addBytesWritten(7)
		m.bulkJob(nil)
		m.bulkJob(ErrIO)
		m.fileSystemOpened("mem")
		m.fileSystemOpened("mem")
		m.fileSystemClosed("mem")

		if got := testutil.ToFloat64(m.bytesTransferred.WithLabelValues("read")); got != 5 {
			t.Errorf("expected 5 bytes read, got %v", got)
		}
		if got := testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write")); got != 7 {
			t.Errorf("expected 7 bytes written, got %v", got)
		}
		if got := testutil.ToFloat64(m.bulkJobsTotal.WithLabelValues("error")); got != 1 {
			t.Errorf("expected 1 failed job, got %v", got)
		}
		if got := testutil.ToFloat64(m.openFileSystems.WithLabelValues("mem")); got != 1 {
			t.Errorf("expected 1 open handle, got %v", got)
		}
	})
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&PathError{Err: ErrNotEmpty}, "not_empty"},
		{&PathError{Err: ErrProviderMismatch}, "provider_mismatch"},
		{ErrClosed, "closed"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
