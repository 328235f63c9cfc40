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

// Package lifecycle brings packaged services into a known running state:
// uninstall whatever is there, install with a configuration overlay and wait
// until enough tasks report running.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/mod/semver"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubeflow/spark-interop/internal/metrics"
	"github.com/kubeflow/spark-interop/internal/pkgmgr"
	"github.com/kubeflow/spark-interop/internal/status"
	"github.com/kubeflow/spark-interop/internal/wait"
)

// DefaultPollInterval is the interval between two status checks.
const DefaultPollInterval = 5 * time.Second

// PackageManager installs and uninstalls services. Uninstall returns
// pkgmgr.ErrNotFound when the service is not installed.
type PackageManager interface {
	Install(ctx context.Context, packageName, packageVersion, serviceName string, options map[string]any) error
	Uninstall(ctx context.Context, packageName, serviceName string) error
}

// StatusService reports the tasks of a service. A nil status means the
// service has no tasks.
type StatusService interface {
	GetService(ctx context.Context, serviceName string) (*status.ServiceStatus, error)
}

// ServiceInstallRequest describes a service to (re)install and the number of
// running tasks it must reach.
type ServiceInstallRequest struct {
	PackageName string
	// PackageVersion is optional; empty selects the latest version.
	PackageVersion string
	ServiceName    string
	TaskCount      int
	// Options is a nested overlay merged over the package defaults.
	Options map[string]any
	Timeout time.Duration
}

func (r ServiceInstallRequest) validate() error {
	var problems []string
	if r.PackageName == "" {
		problems = append(problems, "package name must not be empty")
	}
	if r.ServiceName == "" {
		problems = append(problems, "service name must not be empty")
	}
	if r.PackageVersion != "" && !semver.IsValid("v"+strings.TrimPrefix(r.PackageVersion, "v")) {
		problems = append(problems, fmt.Sprintf("package version %q is not a semantic version", r.PackageVersion))
	}
	if r.TaskCount <= 0 {
		problems = append(problems, fmt.Sprintf("task count must be positive, got %d", r.TaskCount))
	}
	if r.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("timeout must be positive, got %s", r.Timeout))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid install request: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InstallError reports that the package manager rejected an install.
type InstallError struct {
	PackageName string
	ServiceName string
	Err         error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install service %s from package %s: %v", e.ServiceName, e.PackageName, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// InstallTimeoutError reports that a service did not reach its desired number
// of running tasks in time.
type InstallTimeoutError struct {
	ServiceName  string
	Desired      int
	LastObserved int
	Timeout      time.Duration
	Elapsed      time.Duration
}

func (e *InstallTimeoutError) Error() string {
	return fmt.Sprintf("service %s has %d of %d running tasks after %s (timeout %s)",
		e.ServiceName, e.LastObserved, e.Desired, e.Elapsed.Round(time.Millisecond), e.Timeout)
}

// Orchestrator drives services through uninstall, install and readiness.
type Orchestrator struct {
	packages     PackageManager
	status       StatusService
	poller       *wait.Poller
	pollInterval time.Duration
	metrics      *metrics.ServiceMetrics
	logger       logr.Logger
}

func NewOrchestrator(packages PackageManager, statusService StatusService) *Orchestrator {
	return &Orchestrator{
		packages:     packages,
		status:       statusService,
		poller:       wait.NewPoller(),
		pollInterval: DefaultPollInterval,
		logger:       ctrl.Log.WithName("lifecycle"),
	}
}

func (o *Orchestrator) WithPollInterval(interval time.Duration) *Orchestrator {
	o.pollInterval = interval
	return o
}

func (o *Orchestrator) WithPoller(poller *wait.Poller) *Orchestrator {
	o.poller = poller
	return o
}

func (o *Orchestrator) WithMetrics(m *metrics.ServiceMetrics) *Orchestrator {
	o.metrics = m
	return o
}

func (o *Orchestrator) WithLogger(logger logr.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// EnsureRunning removes any previous installation of the service, installs it
// with the request's overlay and waits until it reports at least TaskCount
// running tasks.
func (o *Orchestrator) EnsureRunning(ctx context.Context, req ServiceInstallRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	logger := o.logger.WithValues("package", req.PackageName, "service", req.ServiceName)

	o.Uninstall(ctx, req.PackageName, req.ServiceName)

	start := time.Now()
	logger.Info("Installing service", "version", req.PackageVersion, "tasks", req.TaskCount)
	if err := o.packages.Install(ctx, req.PackageName, req.PackageVersion, req.ServiceName, req.Options); err != nil {
		installErr := &InstallError{PackageName: req.PackageName, ServiceName: req.ServiceName, Err: err}
		o.metrics.ObserveInstall(req.PackageName, req.ServiceName, time.Since(start), installErr)
		return installErr
	}

	lastObserved := 0
	err := o.poller.Poll(ctx, o.pollInterval, req.Timeout, func(ctx context.Context) (bool, error) {
		svc, err := o.status.GetService(ctx, req.ServiceName)
		if err != nil {
			logger.Error(err, "Failed to get service status")
			return false, nil
		}
		lastObserved = 0
		if svc != nil {
			lastObserved = svc.RunningTaskCount
		}
		logger.V(1).Info("Waiting for service", "running", lastObserved, "desired", req.TaskCount)
		return lastObserved >= req.TaskCount, nil
	})
	if err != nil {
		var timeoutErr *wait.TimeoutError
		if errors.As(err, &timeoutErr) {
			o.metrics.IncPollTimeout("install", "ready")
			err = &InstallTimeoutError{
				ServiceName:  req.ServiceName,
				Desired:      req.TaskCount,
				LastObserved: lastObserved,
				Timeout:      timeoutErr.Timeout,
				Elapsed:      timeoutErr.Elapsed,
			}
		}
		o.metrics.ObserveInstall(req.PackageName, req.ServiceName, time.Since(start), err)
		return err
	}

	o.metrics.ObserveInstall(req.PackageName, req.ServiceName, time.Since(start), nil)
	logger.Info("Service is running", "tasks", lastObserved, "elapsed", time.Since(start).Round(time.Second))
	return nil
}

// Uninstall removes the service on a best-effort basis: a missing service is
// ignored and other failures are logged.
func (o *Orchestrator) Uninstall(ctx context.Context, packageName, serviceName string) {
	err := o.packages.Uninstall(ctx, packageName, serviceName)
	switch {
	case err == nil:
		o.logger.Info("Uninstalled service", "package", packageName, "service", serviceName)
	case errors.Is(err, pkgmgr.ErrNotFound):
		o.logger.V(1).Info("Service is not installed", "package", packageName, "service", serviceName)
	default:
		o.logger.Error(err, "Failed to uninstall service", "package", packageName, "service", serviceName)
	}
}
