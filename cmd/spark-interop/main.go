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

package main

import (
	"fmt"
	"os"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that commands can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubeflow/spark-interop/cmd/spark-interop/app"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/install"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/kill"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/principals"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/run"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/submit"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/uninstall"
	"github.com/kubeflow/spark-interop/cmd/spark-interop/version"
)

func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "spark-interop",
		Short: "spark-interop runs Spark against Kerberized HDFS and Kafka",
		Long: `spark-interop is the command-line tool for Spark interoperability testing.
It installs HDFS and Kafka, secured by a throwaway Kerberos realm, and runs Spark jobs against them.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			app.SetupLog()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	app.AddPersistentFlags(command)

	command.AddCommand(install.NewCommand())
	command.AddCommand(install.NewStatusCommand())
	command.AddCommand(uninstall.NewCommand())
	command.AddCommand(submit.NewCommand())
	command.AddCommand(kill.NewCommand())
	command.AddCommand(principals.NewCommand())
	command.AddCommand(run.NewCommand())
	command.AddCommand(version.NewCommand())
	return command
}

func main() {
	if err := NewCommand().ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
