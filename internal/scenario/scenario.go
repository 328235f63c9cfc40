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

// Package scenario wires Kerberos, service lifecycle and job submission into
// the HDFS and Kafka interoperability suites.
package scenario

import (
	"context"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubeflow/spark-interop/internal/job"
	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/lifecycle"
	"github.com/kubeflow/spark-interop/pkg/config"
)

// Installer brings services up and tears them down.
type Installer interface {
	EnsureRunning(ctx context.Context, req lifecycle.ServiceInstallRequest) error
	Uninstall(ctx context.Context, packageName, serviceName string)
}

// Deps are the collaborators of the suites.
type Deps struct {
	Installer Installer
	// Provisioner backs every Kerberos environment a suite creates.
	Provisioner kerberos.Provisioner
	Jobs        *job.Runner
	Logger      logr.Logger
}

func (d Deps) logger() logr.Logger {
	if d.Logger.GetSink() == nil {
		return ctrl.Log.WithName("scenario")
	}
	return d.Logger
}

// runTimeouts returns the job stage bounds of cfg.
func runTimeouts(cfg *config.Config) job.RunTimeouts {
	return job.RunTimeouts{
		Launch:     cfg.Jobs.LaunchTimeout,
		Start:      cfg.Jobs.StartTimeout,
		Completion: cfg.Jobs.CompletionTimeout,
	}
}

// cleanupEnvironment releases env on a best-effort basis.
func cleanupEnvironment(ctx context.Context, logger logr.Logger, env *kerberos.Environment) {
	if env == nil {
		return
	}
	if err := env.Cleanup(context.WithoutCancel(ctx)); err != nil {
		logger.Error(err, "Failed to clean up kerberos environment", "realm", env.Realm())
	}
}

// withKerberizedService finalizes env, installs a service against it and runs
// fn. The service is uninstalled and env cleaned up however fn exits.
func withKerberizedService(ctx context.Context, deps Deps, env *kerberos.Environment, packageName, serviceName string,
	install, fn func(ctx context.Context, env *kerberos.Environment) error) error {
	return kerberos.WithEnvironment(ctx, env, func(ctx context.Context, env *kerberos.Environment) error {
		defer deps.Installer.Uninstall(context.WithoutCancel(ctx), packageName, serviceName)
		if err := install(ctx, env); err != nil {
			return err
		}
		return fn(ctx, env)
	})
}
