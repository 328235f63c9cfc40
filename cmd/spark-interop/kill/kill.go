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

package kill

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/internal/job"
)

var appName string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill <job-id>",
		Short: "Kill a submitted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			platform, err := env.Platform()
			if err != nil {
				return err
			}

			if appName == "" {
				appName = env.Config.Spark.AppName
			}
			h := job.Handle{ID: args[0], AppName: appName}
			if err := platform.Kill(cmd.Context(), h); err != nil {
				if errors.Is(err, job.ErrNotFound) {
					return fmt.Errorf("job %s not found in namespace %s", h.ID, env.Config.Namespace)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s killed\n", h.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&appName, "app-name", "", "Application the job was submitted under. Defaults to spark.app_name.")
	return cmd
}
