/*
Copyright 2025 The Kubeflow authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceMetricsObserveInstall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServiceMetrics("spark_interop_", nil)
	m.RegisterWith(reg)

	m.ObserveInstall("hdfs", "hdfs", 42*time.Second, nil)
	m.ObserveInstall("kafka", "kafka", time.Second, errors.New("timed out"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.installCount.WithLabelValues("hdfs", "hdfs")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.installCount.WithLabelValues("kafka", "kafka")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.installFailureCount.WithLabelValues("hdfs", "hdfs")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.installFailureCount.WithLabelValues("kafka", "kafka")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.installDurationSeconds, "spark_interop_service_install_duration_seconds"))
}

func TestJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics("", []float64{1, 10})
	m.RegisterWith(reg)

	m.IncSubmitCount()
	m.IncSubmitCount()
	m.ObserveStage("launched", 3*time.Second)
	m.IncPollTimeout("job", "running")
	m.IncFailedCount("completion")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.submitCount))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failedCount.WithLabelValues("completion")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pollTimeouts.count.WithLabelValues("job", "running")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDurationSeconds))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var sm *ServiceMetrics
	var jm *JobMetrics
	assert.NotPanics(t, func() {
		sm.ObserveInstall("hdfs", "hdfs", time.Second, nil)
		jm.IncSubmitCount()
		jm.ObserveStage("running", time.Second)
		jm.IncPollTimeout("install", "ready")
		jm.IncFailedCount("completion")
		sm.IncPollTimeout("install", "ready")
		new(ServiceMetrics).IncPollTimeout("install", "ready")
	})
	assert.Nil(t, jm.PollTimeouts())
}

func TestPollTimeoutsSharedByServiceAndJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	jm := NewJobMetrics("spark_interop_", nil)
	sm := NewServiceMetrics("spark_interop_", nil).WithPollTimeouts(jm.PollTimeouts())
	sm.RegisterWith(reg)
	jm.RegisterWith(reg)

	sm.IncPollTimeout("install", "ready")
	jm.IncPollTimeout("job", "completion")

	count, err := testutil.GatherAndCount(reg, "spark_interop_poll_timeout_count")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, float64(1), testutil.ToFloat64(jm.pollTimeouts.count.WithLabelValues("install", "ready")))
}

func TestPush(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := NewJobMetrics("", nil)
	m.RegisterWith(reg)
	m.IncSubmitCount()

	require.NoError(t, Push(context.Background(), server.URL, "spark-interop", reg))
	assert.Equal(t, "/metrics/job/spark-interop", path)

	assert.Error(t, Push(context.Background(), "", "spark-interop", reg))
}
