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
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kubeflow/spark-interop/pkg/common"
	"github.com/kubeflow/spark-interop/pkg/util"
)

// JobMetrics tracks job submissions, failures, stage latencies and poll
// timeouts. A nil *JobMetrics records nothing.
type JobMetrics struct {
	prefix string

	submitCount          *prometheus.CounterVec
	failedCount          *prometheus.CounterVec
	stageDurationSeconds *prometheus.HistogramVec
	pollTimeouts         *PollTimeouts
}

func NewJobMetrics(prefix string, stageDurationBuckets []float64) *JobMetrics {
	if len(stageDurationBuckets) == 0 {
		stageDurationBuckets = util.DefaultJobStageDurationBuckets
	}

	return &JobMetrics{
		prefix: prefix,

		submitCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricJobSubmitCount),
				Help: "Total number of submitted jobs",
			},
			nil,
		),
		failedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricJobFailedCount),
				Help: "Total number of jobs that failed while awaited",
			},
			[]string{common.MetricLabelStage},
		),
		stageDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    util.CreateValidMetricNameLabel(prefix, common.MetricJobStageDurationSeconds),
				Help:    "Time a job took to reach a stage",
				Buckets: stageDurationBuckets,
			},
			[]string{common.MetricLabelStage},
		),
		pollTimeouts: NewPollTimeouts(prefix),
	}
}

// Register registers the metrics with the controller-runtime registry.
func (m *JobMetrics) Register() {
	m.RegisterWith(Registry())
}

func (m *JobMetrics) RegisterWith(reg prometheus.Registerer) {
	register(reg, common.MetricJobSubmitCount, m.submitCount)
	register(reg, common.MetricJobFailedCount, m.failedCount)
	register(reg, common.MetricJobStageDurationSeconds, m.stageDurationSeconds)
	m.pollTimeouts.RegisterWith(reg)
}

// PollTimeouts returns the poll timeout counter, for sharing with other
// metrics of the same registry.
func (m *JobMetrics) PollTimeouts() *PollTimeouts {
	if m == nil {
		return nil
	}
	return m.pollTimeouts
}

func (m *JobMetrics) IncSubmitCount() {
	if m == nil {
		return
	}
	m.submitCount.WithLabelValues().Inc()
}

// IncFailedCount counts a job observed failing while awaited through stage.
func (m *JobMetrics) IncFailedCount(stage string) {
	if m == nil {
		return
	}
	m.failedCount.WithLabelValues(stage).Inc()
	logger.V(1).Info("Increased job failed count", "stage", stage)
}

// ObserveStage records the time a job took to reach stage.
func (m *JobMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
	logger.V(1).Info("Observed job stage duration seconds", "stage", stage, "value", duration.Seconds())
}

// IncPollTimeout counts a wait of operation that timed out in stage.
func (m *JobMetrics) IncPollTimeout(operation, stage string) {
	if m == nil {
		return
	}
	m.pollTimeouts.Inc(operation, stage)
}
