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
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kubeflow/spark-operator/v2/api/v1beta2"

	"github.com/kubeflow/spark-interop/internal/sparkargs"
	"github.com/kubeflow/spark-interop/pkg/common"
)

// SparkApplicationOptions are the defaults of submitted applications.
type SparkApplicationOptions struct {
	Image             string
	SparkVersion      string
	ServiceAccount    string
	DriverCores       int32
	DriverMemory      string
	ExecutorInstances int32
	ExecutorCores     int32
	ExecutorMemory    string
	// SparkConf is added to every application before its submit arguments.
	SparkConf map[string]string
}

func (o *SparkApplicationOptions) setDefaults() {
	if o.Image == "" {
		o.Image = common.DefaultSparkImage
	}
	if o.SparkVersion == "" {
		o.SparkVersion = common.DefaultSparkVersion
	}
	if o.ServiceAccount == "" {
		o.ServiceAccount = common.DefaultSparkServiceAccount
	}
	if o.DriverCores == 0 {
		o.DriverCores = common.DefaultDriverCores
	}
	if o.DriverMemory == "" {
		o.DriverMemory = common.DefaultDriverMemory
	}
	if o.ExecutorInstances == 0 {
		o.ExecutorInstances = common.DefaultExecutorInstances
	}
	if o.ExecutorCores == 0 {
		o.ExecutorCores = common.DefaultExecutorCores
	}
	if o.ExecutorMemory == "" {
		o.ExecutorMemory = common.DefaultExecutorMemory
	}
}

// SparkApplicationPlatform runs jobs as Spark Operator SparkApplications.
type SparkApplicationPlatform struct {
	client    client.Client
	clientset kubernetes.Interface
	namespace string
	options   SparkApplicationOptions
	logger    logr.Logger
}

func NewSparkApplicationPlatform(c client.Client, clientset kubernetes.Interface, namespace string, options SparkApplicationOptions) *SparkApplicationPlatform {
	options.setDefaults()
	return &SparkApplicationPlatform{
		client:    c,
		clientset: clientset,
		namespace: namespace,
		options:   options,
		logger:    ctrl.Log.WithName("job").WithName("sparkapplication"),
	}
}

// Build returns the SparkApplication that Submit would create for spec under name.
func (p *SparkApplicationPlatform) Build(name string, spec Spec) (*v1beta2.SparkApplication, error) {
	if spec.AppURL == "" {
		return nil, fmt.Errorf("application url must not be empty")
	}
	submit, err := sparkargs.Parse(spec.SubmitArgs)
	if err != nil {
		return nil, err
	}

	app := &v1beta2.SparkApplication{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: p.namespace,
			Labels: map[string]string{
				common.LabelJobAppName: spec.AppName,
				common.LabelManagedBy:  common.ManagedByValue,
			},
		},
		Spec: v1beta2.SparkApplicationSpec{
			Type:                v1beta2.SparkApplicationTypeScala,
			SparkVersion:        p.options.SparkVersion,
			Mode:                v1beta2.DeployModeCluster,
			Image:               ptr.To(p.options.Image),
			MainApplicationFile: ptr.To(spec.AppURL),
			Arguments:           spec.AppArgs,
			RestartPolicy:       v1beta2.RestartPolicy{Type: v1beta2.RestartPolicyNever},
			Driver: v1beta2.DriverSpec{
				SparkPodSpec: v1beta2.SparkPodSpec{
					Cores:          ptr.To(p.options.DriverCores),
					Memory:         ptr.To(p.options.DriverMemory),
					ServiceAccount: ptr.To(p.options.ServiceAccount),
				},
			},
			Executor: v1beta2.ExecutorSpec{
				Instances: ptr.To(p.options.ExecutorInstances),
				SparkPodSpec: v1beta2.SparkPodSpec{
					Cores:  ptr.To(p.options.ExecutorCores),
					Memory: ptr.To(p.options.ExecutorMemory),
				},
			},
		},
	}
	if len(p.options.SparkConf) > 0 {
		app.Spec.SparkConf = make(map[string]string, len(p.options.SparkConf))
		for key, value := range p.options.SparkConf {
			app.Spec.SparkConf[key] = value
		}
	}
	if err := sparkargs.Apply(submit, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit creates the SparkApplication of spec under a fresh name.
func (p *SparkApplicationPlatform) Submit(ctx context.Context, spec Spec) (Handle, error) {
	name, err := NewID(spec.AppName)
	if err != nil {
		return Handle{}, err
	}
	app, err := p.Build(name, spec)
	if err != nil {
		return Handle{}, err
	}
	if err := p.client.Create(ctx, app); err != nil {
		return Handle{}, common.NewExternalServiceError("submit", name, err)
	}
	p.logger.V(1).Info("Created SparkApplication", "name", name, "namespace", p.namespace)
	return Handle{ID: name, AppName: spec.AppName}, nil
}

// GetJobPhase maps the application state onto a job phase. A job without a
// SparkApplication is PhaseNotFound.
func (p *SparkApplicationPlatform) GetJobPhase(ctx context.Context, h Handle) (Phase, error) {
	app, err := p.get(ctx, h)
	if err != nil {
		if errors.IsNotFound(err) {
			return PhaseNotFound, nil
		}
		return PhaseNotFound, common.NewExternalServiceError("get job phase", h.ID, err)
	}
	return PhaseOf(app.Status.AppState.State), nil
}

// PhaseOf maps a SparkApplication state onto a job phase.
func PhaseOf(state v1beta2.ApplicationStateType) Phase {
	switch state {
	case v1beta2.ApplicationStateNew:
		return PhaseNotFound
	case v1beta2.ApplicationStateSubmitted,
		v1beta2.ApplicationStatePendingRerun,
		v1beta2.ApplicationStateInvalidating,
		v1beta2.ApplicationStateUnknown:
		return PhaseLaunched
	case v1beta2.ApplicationStateRunning,
		v1beta2.ApplicationStateSucceeding,
		v1beta2.ApplicationStateFailing:
		return PhaseRunning
	case v1beta2.ApplicationStateCompleted:
		return PhaseFinished
	case v1beta2.ApplicationStateFailed,
		v1beta2.ApplicationStateFailedSubmission:
		return PhaseFailed
	}
	return PhaseLaunched
}

// GetJobOutput returns the logs of the driver pod. ErrNotFound is returned
// while the driver pod is not known yet.
func (p *SparkApplicationPlatform) GetJobOutput(ctx context.Context, h Handle) (string, error) {
	app, err := p.get(ctx, h)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", common.NewExternalServiceError("get job output", h.ID, err)
	}

	podName := app.Status.DriverInfo.PodName
	if podName == "" {
		return "", ErrNotFound
	}
	logs, err := p.clientset.CoreV1().Pods(p.namespace).GetLogs(podName, &corev1.PodLogOptions{}).DoRaw(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", common.NewExternalServiceError("get job output", h.ID, err)
	}
	return string(logs), nil
}

// Kill deletes the SparkApplication, which stops its driver and executors.
func (p *SparkApplicationPlatform) Kill(ctx context.Context, h Handle) error {
	app := &v1beta2.SparkApplication{
		ObjectMeta: metav1.ObjectMeta{Name: h.ID, Namespace: p.namespace},
	}
	if err := p.client.Delete(ctx, app, client.PropagationPolicy(metav1.DeletePropagationBackground)); err != nil {
		if errors.IsNotFound(err) {
			return ErrNotFound
		}
		return common.NewExternalServiceError("kill", h.ID, err)
	}
	return nil
}

func (p *SparkApplicationPlatform) get(ctx context.Context, h Handle) (*v1beta2.SparkApplication, error) {
	app := &v1beta2.SparkApplication{}
	if err := p.client.Get(ctx, types.NamespacedName{Name: h.ID, Namespace: p.namespace}, app); err != nil {
		return nil, err
	}
	return app, nil
}
