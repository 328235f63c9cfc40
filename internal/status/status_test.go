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

package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/kubeflow/spark-interop/pkg/common"
)

func newPod(name, instance string, phase corev1.PodPhase, ready corev1.ConditionStatus) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "spark-interop",
			Labels:    map[string]string{common.LabelAppInstance: instance},
		},
		Status: corev1.PodStatus{
			Phase: phase,
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: ready},
			},
		},
	}
}

func TestGetService(t *testing.T) {
	c := fake.NewClientBuilder().WithObjects(
		newPod("kafka-0", "kafka", corev1.PodRunning, corev1.ConditionTrue),
		newPod("kafka-1", "kafka", corev1.PodRunning, corev1.ConditionFalse),
		newPod("kafka-2", "kafka", corev1.PodPending, corev1.ConditionFalse),
		newPod("hdfs-0", "hdfs", corev1.PodRunning, corev1.ConditionTrue),
	).Build()
	k := NewKubernetes(c, "spark-interop")

	status, err := k.GetService(context.Background(), "kafka")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, &ServiceStatus{Name: "kafka", TaskCount: 3, RunningTaskCount: 1}, status)
}

func TestGetServiceNotFound(t *testing.T) {
	k := NewKubernetes(fake.NewClientBuilder().Build(), "spark-interop")

	status, err := k.GetService(context.Background(), "kafka")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestGetServiceListError(t *testing.T) {
	c := fake.NewClientBuilder().WithInterceptorFuncs(interceptor.Funcs{
		List: func(context.Context, client.WithWatch, client.ObjectList, ...client.ListOption) error {
			return errors.New("connection refused")
		},
	}).Build()
	k := NewKubernetes(c, "spark-interop")

	_, err := k.GetService(context.Background(), "kafka")
	var extErr *common.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "get service", extErr.Op)
}

func TestIsPodRunningAndReady(t *testing.T) {
	assert.True(t, IsPodRunningAndReady(newPod("p", "s", corev1.PodRunning, corev1.ConditionTrue)))
	assert.False(t, IsPodRunningAndReady(newPod("p", "s", corev1.PodRunning, corev1.ConditionFalse)))
	assert.False(t, IsPodRunningAndReady(newPod("p", "s", corev1.PodSucceeded, corev1.ConditionTrue)))
	assert.False(t, IsPodRunningAndReady(&corev1.Pod{Status: corev1.PodStatus{Phase: corev1.PodRunning}}))

	deleting := newPod("p", "s", corev1.PodRunning, corev1.ConditionTrue)
	now := metav1.Now()
	deleting.DeletionTimestamp = &now
	assert.False(t, IsPodRunningAndReady(deleting))
}
