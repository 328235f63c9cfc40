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

package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/kubeflow/spark-operator/v2/api/v1beta2"

	"github.com/kubeflow/spark-interop/pkg/common"
	"github.com/kubeflow/spark-interop/pkg/util"
)

const testNamespace = "spark-interop"

func newTestPlatform(objs ...client.Object) (*SparkApplicationPlatform, client.Client) {
	c := fake.NewClientBuilder().WithScheme(util.Scheme()).WithObjects(objs...).Build()
	clientset := kubefake.NewSimpleClientset(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "spark-1-driver", Namespace: testNamespace},
	})
	return NewSparkApplicationPlatform(c, clientset, testNamespace, SparkApplicationOptions{
		SparkConf: map[string]string{"spark.scheduler.minRegisteredResourcesRatio": "1.0"},
	}), c
}

func newSparkApplication(name string, state v1beta2.ApplicationStateType, driverPod string) *v1beta2.SparkApplication {
	return &v1beta2.SparkApplication{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace},
		Status: v1beta2.SparkApplicationStatus{
			AppState:   v1beta2.ApplicationState{State: state},
			DriverInfo: v1beta2.DriverInfo{PodName: driverPod},
		},
	}
}

func TestSparkApplicationPlatformSubmit(t *testing.T) {
	p, c := newTestPlatform()

	h, err := p.Submit(context.Background(), Spec{
		AppName: "/spark",
		AppURL:  "https://downloads.example.com/spark-terasort.jar",
		AppArgs: []string{"1g", "hdfs:///terasort_in"},
		SubmitArgs: []string{
			"--class", "com.github.ehiggs.spark.terasort.TeraGen",
			"--conf", "spark.cores.max=2",
			"--kerberos-principal", "hdfs/name-0-node.hdfs.autoip.dcos.thisdcos.directory@LOCAL",
			"--keytab-secret-path", "/kerberos-keytab",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/spark", h.AppName)

	app := &v1beta2.SparkApplication{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: h.ID, Namespace: testNamespace}, app))
	assert.Equal(t, "/spark", app.Labels[common.LabelJobAppName])
	assert.Equal(t, common.ManagedByValue, app.Labels[common.LabelManagedBy])
	assert.Equal(t, v1beta2.SparkApplicationTypeScala, app.Spec.Type)
	assert.Equal(t, v1beta2.DeployModeCluster, app.Spec.Mode)
	assert.Equal(t, common.DefaultSparkVersion, app.Spec.SparkVersion)
	assert.Equal(t, ptr.To(common.DefaultSparkImage), app.Spec.Image)
	assert.Equal(t, ptr.To("https://downloads.example.com/spark-terasort.jar"), app.Spec.MainApplicationFile)
	assert.Equal(t, []string{"1g", "hdfs:///terasort_in"}, app.Spec.Arguments)
	assert.Equal(t, ptr.To("com.github.ehiggs.spark.terasort.TeraGen"), app.Spec.MainClass)
	assert.Equal(t, v1beta2.RestartPolicyNever, app.Spec.RestartPolicy.Type)
	assert.Equal(t, ptr.To[int32](common.DefaultDriverCores), app.Spec.Driver.Cores)
	assert.Equal(t, ptr.To(common.DefaultSparkServiceAccount), app.Spec.Driver.ServiceAccount)
	assert.Equal(t, ptr.To[int32](common.DefaultExecutorInstances), app.Spec.Executor.Instances)
	assert.Equal(t, "2", app.Spec.SparkConf[common.SparkCoresMax])
	assert.Equal(t, "1.0", app.Spec.SparkConf["spark.scheduler.minRegisteredResourcesRatio"])
	assert.Equal(t, "hdfs/name-0-node.hdfs.autoip.dcos.thisdcos.directory@LOCAL", app.Spec.SparkConf[common.SparkKerberosPrincipal])
	require.Len(t, app.Spec.Driver.Secrets, 1)
	assert.Equal(t, "kerberos-keytab", app.Spec.Driver.Secrets[0].Name)
}

func TestSparkApplicationPlatformSubmitInvalidArgs(t *testing.T) {
	p, _ := newTestPlatform()

	_, err := p.Submit(context.Background(), Spec{AppName: "spark", AppURL: "local:///app.jar", SubmitArgs: []string{"--bogus"}})
	assert.Error(t, err)

	_, err = p.Submit(context.Background(), Spec{AppName: "spark"})
	assert.Error(t, err)
}

func TestSparkApplicationPlatformSubmitCreateFailure(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(util.Scheme()).WithInterceptorFuncs(interceptor.Funcs{
		Create: func(context.Context, client.WithWatch, client.Object, ...client.CreateOption) error {
			return errors.New("admission webhook denied the request")
		},
	}).Build()
	p := NewSparkApplicationPlatform(c, kubefake.NewSimpleClientset(), testNamespace, SparkApplicationOptions{})

	_, err := p.Submit(context.Background(), Spec{AppName: "spark", AppURL: "local:///app.jar"})
	var extErr *common.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "submit", extErr.Op)
}

func TestSparkApplicationPlatformGetJobPhase(t *testing.T) {
	p, _ := newTestPlatform(
		newSparkApplication("spark-1", v1beta2.ApplicationStateRunning, "spark-1-driver"),
		newSparkApplication("spark-2", v1beta2.ApplicationStateNew, ""),
	)

	phase, err := p.GetJobPhase(context.Background(), Handle{ID: "spark-1"})
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, phase)

	phase, err = p.GetJobPhase(context.Background(), Handle{ID: "spark-2"})
	require.NoError(t, err)
	assert.Equal(t, PhaseNotFound, phase)

	phase, err = p.GetJobPhase(context.Background(), Handle{ID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, PhaseNotFound, phase)
}

func TestPhaseOf(t *testing.T) {
	testCases := []struct {
		state    v1beta2.ApplicationStateType
		expected Phase
	}{
		{state: v1beta2.ApplicationStateNew, expected: PhaseNotFound},
		{state: v1beta2.ApplicationStateSubmitted, expected: PhaseLaunched},
		{state: v1beta2.ApplicationStatePendingRerun, expected: PhaseLaunched},
		{state: v1beta2.ApplicationStateInvalidating, expected: PhaseLaunched},
		{state: v1beta2.ApplicationStateUnknown, expected: PhaseLaunched},
		{state: v1beta2.ApplicationStateRunning, expected: PhaseRunning},
		{state: v1beta2.ApplicationStateSucceeding, expected: PhaseRunning},
		{state: v1beta2.ApplicationStateFailing, expected: PhaseRunning},
		{state: v1beta2.ApplicationStateCompleted, expected: PhaseFinished},
		{state: v1beta2.ApplicationStateFailed, expected: PhaseFailed},
		{state: v1beta2.ApplicationStateFailedSubmission, expected: PhaseFailed},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, PhaseOf(tc.state), string(tc.state))
	}
}

func TestSparkApplicationPlatformGetJobOutput(t *testing.T) {
	p, _ := newTestPlatform(
		newSparkApplication("spark-1", v1beta2.ApplicationStateRunning, "spark-1-driver"),
		newSparkApplication("spark-2", v1beta2.ApplicationStateSubmitted, ""),
	)

	output, err := p.GetJobOutput(context.Background(), Handle{ID: "spark-1"})
	require.NoError(t, err)
	assert.Equal(t, "fake logs", output)

	_, err = p.GetJobOutput(context.Background(), Handle{ID: "spark-2"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.GetJobOutput(context.Background(), Handle{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSparkApplicationPlatformKill(t *testing.T) {
	p, c := newTestPlatform(newSparkApplication("spark-1", v1beta2.ApplicationStateRunning, "spark-1-driver"))

	require.NoError(t, p.Kill(context.Background(), Handle{ID: "spark-1"}))
	phase, err := p.GetJobPhase(context.Background(), Handle{ID: "spark-1"})
	require.NoError(t, err)
	assert.Equal(t, PhaseNotFound, phase)

	err = c.Get(context.Background(), types.NamespacedName{Name: "spark-1", Namespace: testNamespace}, &v1beta2.SparkApplication{})
	assert.True(t, apierrors.IsNotFound(err))

	assert.ErrorIs(t, p.Kill(context.Background(), Handle{ID: "spark-1"}), ErrNotFound)
}

func TestSparkApplicationPlatformWithRunner(t *testing.T) {
	p, c := newTestPlatform()
	r := newTestRunner(p)

	h, err := p.Submit(context.Background(), Spec{AppName: "spark", AppURL: "local:///app.jar"})
	require.NoError(t, err)

	app := &v1beta2.SparkApplication{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: h.ID, Namespace: testNamespace}, app))
	app.Status.AppState.State = v1beta2.ApplicationStateCompleted
	require.NoError(t, c.Update(context.Background(), app))

	require.NoError(t, r.AwaitFinished(context.Background(), h, 100*time.Millisecond))
	r.Kill(context.Background(), h)
	phase, err := p.GetJobPhase(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, PhaseNotFound, phase)
}

func TestSparkApplicationPlatformWithRunnerFailedApp(t *testing.T) {
	p, c := newTestPlatform()
	r := newTestRunner(p)

	h, err := p.Submit(context.Background(), Spec{AppName: "spark", AppURL: "local:///app.jar"})
	require.NoError(t, err)

	app := &v1beta2.SparkApplication{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: h.ID, Namespace: testNamespace}, app))
	app.Status.AppState.State = v1beta2.ApplicationStateFailed
	app.Status.DriverInfo.PodName = "spark-1-driver"
	require.NoError(t, c.Update(context.Background(), app))

	err = r.AwaitFinished(context.Background(), h, 5*time.Second)
	var failedErr *FailedError
	require.ErrorAs(t, err, &failedErr)
	assert.Equal(t, StageCompletion, failedErr.Stage)
	assert.Equal(t, PhaseFailed, failedErr.LastPhase)

	start := time.Now()
	_, err = r.AwaitCompletion(context.Background(), h, ContainsOutput("Number of records written"), 5*time.Second)
	assert.True(t, IsFailed(err))
	assert.Less(t, time.Since(start), time.Second)
}
