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

package run

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/scenario"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interoperability suite end to end",
	}
	cmd.AddCommand(newHDFSCommand())
	cmd.AddCommand(newKafkaCommand())
	return cmd
}

func newHDFSCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hdfs",
		Short: "Install a Kerberized HDFS and run TeraGen, TeraSort and TeraValidate against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			defer env.PushMetrics(cmd.Context())
			deps, err := env.ScenarioDeps()
			if err != nil {
				return err
			}

			return scenario.WithHDFS(cmd.Context(), deps, env.Config, func(ctx context.Context, krb *kerberos.Environment) error {
				return scenario.RunTerasort(ctx, deps, env.Config, krb)
			})
		},
	}
}

func newKafkaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kafka",
		Short: "Install Kafka and stream words through it with a producer and a consumer job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := app.NewEnv()
			if err != nil {
				return err
			}
			defer env.PushMetrics(cmd.Context())
			deps, err := env.ScenarioDeps()
			if err != nil {
				return err
			}

			opts := scenario.KafkaOptionsFor(env.Config)
			return scenario.WithKafka(cmd.Context(), deps, env.Config, opts, func(ctx context.Context, krb *kerberos.Environment) error {
				return scenario.RunKafka(ctx, deps, env.Config, opts, krb)
			})
		},
	}
	cmd.Flags().Bool("kerberized", false, "Secure Kafka with Kerberos.")
	app.BindFlag(cmd, "kafka.kerberized", "kerberized")
	return cmd
}
