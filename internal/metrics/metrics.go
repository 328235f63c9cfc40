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

// Package metrics exposes Prometheus metrics about service installs and job
// stages, registered with the controller-runtime registry.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var logger = ctrl.Log.WithName("metrics")

// Registry returns the registry every metric is registered with by default.
func Registry() prometheus.Registerer {
	return metrics.Registry
}

// Push pushes everything gathered by g to the Pushgateway at url under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if url == "" {
		return fmt.Errorf("pushgateway url must not be empty")
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %v", url, err)
	}
	logger.V(1).Info("Pushed metrics", "url", url, "job", job)
	return nil
}

func register(reg prometheus.Registerer, name string, c prometheus.Collector) {
	if err := reg.Register(c); err != nil {
		logger.Error(err, "Failed to register metric", "name", name)
	}
}
