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

package install

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/internal/lifecycle"
)

var (
	packageVersion string
	taskCount      int
	timeout        time.Duration
	valuesFile     string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <package> <service>",
		Short: "Reinstall a service and wait until its tasks are running",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := loadValues(valuesFile)
			if err != nil {
				return err
			}

			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			defer env.PushMetrics(cmd.Context())

			return env.Orchestrator().EnsureRunning(cmd.Context(), lifecycle.ServiceInstallRequest{
				PackageName:    args[0],
				PackageVersion: packageVersion,
				ServiceName:    args[1],
				TaskCount:      taskCount,
				Options:        options,
				Timeout:        timeout,
			})
		},
	}

	cmd.Flags().StringVar(&packageVersion, "package-version", "", "Version of the package. The latest version is installed if unset.")
	cmd.Flags().IntVar(&taskCount, "task-count", 1, "Number of running tasks the service must reach.")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "How long to wait for the service to reach its task count.")
	cmd.Flags().StringVarP(&valuesFile, "values", "f", "", "YAML file with options overriding the package defaults.")
	return cmd
}

// loadValues reads the option overlay in path. An empty path yields an empty overlay.
func loadValues(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file %s: %v", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %v", path, err)
	}
	return values, nil
}
