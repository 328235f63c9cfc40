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

package submit

import (
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/internal/job"
)

var (
	appName        string
	submitArgs     string
	expectedOutput string
	wait           bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <app-url> [app-args...]",
		Short: "Submit a Spark job and wait until it is running",
		Long: `Submit a Spark job and wait until it is running.
With --wait the job is followed until it produces the expected output, or
until it finishes when no output is expected, and is killed afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			defer env.PushMetrics(cmd.Context())

			if appName == "" {
				appName = env.Config.Spark.AppName
			}
			spec, err := buildSpec(appName, args, submitArgs)
			if err != nil {
				return err
			}
			runner, err := env.Runner()
			if err != nil {
				return err
			}

			cfg := env.Config
			if wait {
				result, err := runner.Run(cmd.Context(), spec, expectedOutput, job.RunTimeouts{
					Launch:     cfg.Jobs.LaunchTimeout,
					Start:      cfg.Jobs.StartTimeout,
					Completion: cfg.Jobs.CompletionTimeout,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s reached phase %s after %s\n", spec.AppName, result.Phase, result.Elapsed)
				return nil
			}

			h, err := runner.SubmitAndAwait(cmd.Context(), spec, cfg.Jobs.LaunchTimeout, cfg.Jobs.StartTimeout)
			if err != nil {
				if !h.IsZero() {
					return fmt.Errorf("job %s: %w", h.ID, err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.ID)
			return nil
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&appName, "app-name", "", "Application the job is submitted under. Defaults to spark.app_name.")
	cmd.Flags().StringVar(&submitArgs, "submit-args", "", `spark-submit arguments, e.g. "--class Foo --conf spark.cores.max=2".`)
	cmd.Flags().StringVar(&expectedOutput, "expected-output", "", "Output the job must produce. Requires --wait.")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to complete and kill it afterwards.")
	return cmd
}

// buildSpec builds the job from the positional arguments and the
// shell-quoted spark-submit arguments.
func buildSpec(appName string, args []string, rawSubmitArgs string) (job.Spec, error) {
	parsed, err := shlex.Split(rawSubmitArgs)
	if err != nil {
		return job.Spec{}, fmt.Errorf("failed to split submit arguments: %v", err)
	}
	return job.Spec{
		AppName:    appName,
		AppURL:     args[0],
		AppArgs:    args[1:],
		SubmitArgs: parsed,
	}, nil
}
