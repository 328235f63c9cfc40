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

// ServiceMetrics tracks service installs and their readiness timeouts. A nil
// *ServiceMetrics records nothing.
type ServiceMetrics struct {
	prefix string

	pollTimeouts *PollTimeouts

	installCount           *prometheus.CounterVec
	installFailureCount    *prometheus.CounterVec
	installDurationSeconds *prometheus.HistogramVec
}

func NewServiceMetrics(prefix string, installDurationBuckets []float64) *ServiceMetrics {
	labels := []string{common.MetricLabelPackage, common.MetricLabelService}
	if len(installDurationBuckets) == 0 {
		installDurationBuckets = util.DefaultInstallDurationBuckets
	}

	return &ServiceMetrics{
		prefix: prefix,

		installCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricServiceInstallCount),
				Help: "Total number of service installs",
			},
			labels,
		),
		installFailureCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricServiceInstallFailureCount),
				Help: "Total number of service installs that failed or did not become ready in time",
			},
			labels,
		),
		installDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    util.CreateValidMetricNameLabel(prefix, common.MetricServiceInstallDurationSeconds),
				Help:    "Time from install until the service reported enough running tasks",
				Buckets: installDurationBuckets,
			},
			labels,
		),
	}
}

// Register registers the metrics with the controller-runtime registry.
func (m *ServiceMetrics) Register() {
	m.RegisterWith(Registry())
}

// WithPollTimeouts makes install timeouts count into p. Registering p is
// left to its owner.
func (m *ServiceMetrics) WithPollTimeouts(p *PollTimeouts) *ServiceMetrics {
	m.pollTimeouts = p
	return m
}

func (m *ServiceMetrics) RegisterWith(reg prometheus.Registerer) {
	register(reg, common.MetricServiceInstallCount, m.installCount)
	register(reg, common.MetricServiceInstallFailureCount, m.installFailureCount)
	register(reg, common.MetricServiceInstallDurationSeconds, m.installDurationSeconds)
}

// ObserveInstall records the outcome of bringing a service up.
func (m *ServiceMetrics) ObserveInstall(packageName, serviceName string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	labels := prometheus.Labels{
		common.MetricLabelPackage: packageName,
		common.MetricLabelService: serviceName,
	}
	m.installCount.With(labels).Inc()
	if err != nil {
		m.installFailureCount.With(labels).Inc()
		logger.V(1).Info("Increased service install failure count", "package", packageName, "service", serviceName)
		return
	}
	m.installDurationSeconds.With(labels).Observe(duration.Seconds())
	logger.V(1).Info("Observed service install duration seconds", "package", packageName, "service", serviceName, "value", duration.Seconds())
}

// IncPollTimeout counts a readiness wait of operation that timed out in stage.
func (m *ServiceMetrics) IncPollTimeout(operation, stage string) {
	if m == nil {
		return
	}
	m.pollTimeouts.Inc(operation, stage)
}
