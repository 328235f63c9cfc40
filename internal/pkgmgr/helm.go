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

// Package pkgmgr installs and uninstalls packaged services. A package is a
// Helm chart reference and a service is the Helm release installed from it.
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/storage/driver"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubeflow/spark-interop/pkg/common"
)

// ErrNotFound is returned by Uninstall when the service is not installed.
var ErrNotFound = errors.New("service not found")

// ChartLoader resolves a package name to a loaded chart.
type ChartLoader func(options *action.ChartPathOptions, packageName string) (*chart.Chart, error)

// Helm manages services as Helm releases in a single namespace.
type Helm struct {
	namespace   string
	settings    *cli.EnvSettings
	logger      logr.Logger
	config      *action.Configuration
	chartLoader ChartLoader
}

// NewHelm returns a Helm package manager for namespace. The action
// configuration is initialized lazily from settings.
func NewHelm(namespace string, settings *cli.EnvSettings) *Helm {
	if settings == nil {
		settings = cli.New()
	}
	settings.SetNamespace(namespace)
	return &Helm{
		namespace:   namespace,
		settings:    settings,
		logger:      ctrl.Log.WithName("pkgmgr").WithValues("namespace", namespace),
		chartLoader: locateChart(settings),
	}
}

// WithActionConfig makes h use config instead of one built from its settings.
func (h *Helm) WithActionConfig(config *action.Configuration) *Helm {
	h.config = config
	return h
}

// WithChartLoader replaces the function used to resolve package names.
func (h *Helm) WithChartLoader(loader ChartLoader) *Helm {
	h.chartLoader = loader
	return h
}

// WithLogger replaces the logger of h.
func (h *Helm) WithLogger(logger logr.Logger) *Helm {
	h.logger = logger
	return h
}

// Install installs packageName as release serviceName with options merged
// over the chart's default values. An empty packageVersion selects the
// latest version.
func (h *Helm) Install(ctx context.Context, packageName, packageVersion, serviceName string, options map[string]any) error {
	config, err := h.actionConfig()
	if err != nil {
		return common.NewExternalServiceError("install", serviceName, err)
	}

	install := action.NewInstall(config)
	install.ReleaseName = serviceName
	install.Namespace = h.namespace
	install.CreateNamespace = true
	install.Version = packageVersion

	chrt, err := h.chartLoader(&install.ChartPathOptions, packageName)
	if err != nil {
		return common.NewExternalServiceError("load package", packageName, err)
	}

	values := MergeOptions(chrt.Values, options)
	h.logger.Info("Installing package", "package", packageName, "version", chrt.Metadata.Version, "service", serviceName)
	if _, err := install.RunWithContext(ctx, chrt, values); err != nil {
		return common.NewExternalServiceError("install", serviceName, err)
	}
	return nil
}

// Uninstall removes release serviceName. It returns ErrNotFound when the
// release does not exist.
func (h *Helm) Uninstall(_ context.Context, packageName, serviceName string) error {
	config, err := h.actionConfig()
	if err != nil {
		return common.NewExternalServiceError("uninstall", serviceName, err)
	}

	uninstall := action.NewUninstall(config)
	h.logger.Info("Uninstalling package", "package", packageName, "service", serviceName)
	if _, err := uninstall.Run(serviceName); err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) {
			return ErrNotFound
		}
		return common.NewExternalServiceError("uninstall", serviceName, err)
	}
	return nil
}

func (h *Helm) actionConfig() (*action.Configuration, error) {
	if h.config != nil {
		return h.config, nil
	}
	config := &action.Configuration{}
	logger := h.logger.WithName("helm")
	if err := config.Init(h.settings.RESTClientGetter(), h.namespace, os.Getenv("HELM_DRIVER"), func(format string, v ...interface{}) {
		logger.V(1).Info(fmt.Sprintf(format, v...))
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm: %v", err)
	}
	h.config = config
	return config, nil
}

func locateChart(settings *cli.EnvSettings) ChartLoader {
	return func(options *action.ChartPathOptions, packageName string) (*chart.Chart, error) {
		path, err := options.LocateChart(packageName, settings)
		if err != nil {
			return nil, err
		}
		return loader.Load(path)
	}
}

// MergeOptions deep-merges overlay over defaults: overlay values win and
// nested maps are merged key by key. Neither argument is modified.
func MergeOptions(defaults, overlay map[string]any) map[string]any {
	return chartutil.CoalesceTables(copyOptions(overlay), copyOptions(defaults))
}

func copyOptions(options map[string]any) map[string]any {
	out := make(map[string]any, len(options))
	for key, value := range options {
		if nested, ok := value.(map[string]any); ok {
			out[key] = copyOptions(nested)
			continue
		}
		out[key] = value
	}
	return out
}
