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

package uninstall

import (
	"github.com/spf13/cobra"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <package> <service>",
		Short: "Uninstall a service. A missing service is not an error",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			env.Orchestrator().Uninstall(cmd.Context(), args[0], args[1])
			return nil
		},
	}
}
