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
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/internal/status"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <service>",
		Short: "Print the task counts of an installed service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			svc, err := status.NewKubernetes(env.Client, env.Config.Namespace).GetService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if svc == nil {
				return fmt.Errorf("service %s not found in namespace %s", args[0], env.Config.Namespace)
			}
			printStatus(cmd.OutOrStdout(), svc)
			return nil
		},
	}
}

func printStatus(out io.Writer, svc *status.ServiceStatus) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Service", "Tasks", "Running Tasks"})
	table.Append([]string{svc.Name, strconv.Itoa(svc.TaskCount), strconv.Itoa(svc.RunningTaskCount)})
	table.Render()
}
