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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kubeflow/spark-interop/pkg/common"
	"github.com/kubeflow/spark-interop/pkg/util"
)

// PollTimeouts counts bounded waits that timed out, by operation and stage.
// It is shared by service and job metrics so that both report into a single
// collector. A nil *PollTimeouts records nothing.
type PollTimeouts struct {
	count *prometheus.CounterVec
}

func NewPollTimeouts(prefix string) *PollTimeouts {
	return &PollTimeouts{
		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricPollTimeoutCount),
				Help: "Total number of waits that timed out",
			},
			[]string{common.MetricLabelOperation, common.MetricLabelStage},
		),
	}
}

func (p *PollTimeouts) RegisterWith(reg prometheus.Registerer) {
	register(reg, common.MetricPollTimeoutCount, p.count)
}

// Inc counts a wait of operation that timed out in stage.
func (p *PollTimeouts) Inc(operation, stage string) {
	if p == nil {
		return
	}
	p.count.WithLabelValues(operation, stage).Inc()
	logger.V(1).Info("Increased poll timeout count", "operation", operation, "stage", stage)
}
