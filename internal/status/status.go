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

// Package status reports the health of installed services as seen by the
// cluster.
package status

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kubeflow/spark-interop/pkg/common"
)

// ServiceStatus is a snapshot of the tasks of a service.
type ServiceStatus struct {
	Name             string
	TaskCount        int
	RunningTaskCount int
}

// Kubernetes derives service status from the pods of a Helm release: every
// pod labelled with the release instance is a task, and a task is running
// when its pod is Running and Ready.
type Kubernetes struct {
	client    client.Reader
	namespace string
}

// NewKubernetes returns a status service reading pods in namespace.
func NewKubernetes(c client.Reader, namespace string) *Kubernetes {
	return &Kubernetes{client: c, namespace: namespace}
}

// GetService returns the status of serviceName, or nil when the service has
// no tasks.
func (k *Kubernetes) GetService(ctx context.Context, serviceName string) (*ServiceStatus, error) {
	pods := &corev1.PodList{}
	if err := k.client.List(ctx, pods,
		client.InNamespace(k.namespace),
		client.MatchingLabels{common.LabelAppInstance: serviceName},
	); err != nil {
		return nil, common.NewExternalServiceError("get service", serviceName, fmt.Errorf("failed to list pods: %v", err))
	}
	if len(pods.Items) == 0 {
		return nil, nil
	}

	status := &ServiceStatus{Name: serviceName, TaskCount: len(pods.Items)}
	for i := range pods.Items {
		if IsPodRunningAndReady(&pods.Items[i]) {
			status.RunningTaskCount++
		}
	}
	return status, nil
}

// IsPodRunningAndReady returns whether pod is running and passes its readiness checks.
func IsPodRunningAndReady(pod *corev1.Pod) bool {
	if pod.DeletionTimestamp != nil || pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}
