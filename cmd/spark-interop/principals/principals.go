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

package principals

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/internal/scenario"
	"github.com/kubeflow/spark-interop/pkg/config"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "principals <hdfs|kafka>",
		Short:     "Print the Kerberos principals a service is provisioned with",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"hdfs", "kafka"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			principals, err := servicePrincipals(cfg, args[0])
			if err != nil {
				return err
			}
			printPrincipals(cmd.OutOrStdout(), principals)
			return nil
		},
	}
}

func servicePrincipals(cfg *config.Config, service string) ([]string, error) {
	switch service {
	case "hdfs":
		return scenario.HDFSPrincipals(cfg)
	case "kafka":
		return scenario.KafkaPrincipals(cfg, scenario.KafkaServiceName(cfg, scenario.KafkaOptions{Kerberized: true}))
	}
	return nil, fmt.Errorf("unknown service %q", service)
}

func printPrincipals(out io.Writer, principals []string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Principal"})
	for _, principal := range principals {
		table.Append([]string{principal})
	}
	table.Render()
}
