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

package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/kubeflow/spark-interop/internal/job"
	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/lifecycle"
	"github.com/kubeflow/spark-interop/pkg/common"
	"github.com/kubeflow/spark-interop/pkg/config"
)

// HDFS Kerberos primaries.
const (
	HDFSPrimary     = "hdfs"
	HDFSPrimaryHTTP = "HTTP"
)

// Terasort main classes.
const (
	TeraGenClass      = "com.github.ehiggs.spark.terasort.TeraGen"
	TeraSortClass     = "com.github.ehiggs.spark.terasort.TeraSort"
	TeraValidateClass = "com.github.ehiggs.spark.terasort.TeraValidate"
)

// HDFSPrincipals returns the principals of every HDFS task followed by the
// generic HDFS user principal.
func HDFSPrincipals(cfg *config.Config) ([]string, error) {
	realm := cfg.Kerberos.Realm
	domain := kerberos.ServiceDomain(cfg.HDFS.ServiceName, cfg.Kerberos.HostSuffix)
	return kerberos.HDFSTopology().Principals(domain, realm, kerberos.UserPrincipal(cfg.HDFS.UserPrincipal, realm))
}

// HDFSWithKerberos provisions a Kerberos environment for HDFS and installs
// HDFS against it. On failure everything created so far is removed; on
// success the caller owns the returned environment and must pass it to
// TeardownHDFS.
func HDFSWithKerberos(ctx context.Context, deps Deps, cfg *config.Config) (*kerberos.Environment, error) {
	env, err := newHDFSEnvironment(deps, cfg)
	if err != nil {
		return nil, err
	}
	if err := env.Finalize(ctx); err != nil {
		return nil, err
	}
	if err := installHDFS(ctx, deps, cfg, env); err != nil {
		TeardownHDFS(ctx, deps, cfg, env)
		return nil, err
	}
	return env, nil
}

func newHDFSEnvironment(deps Deps, cfg *config.Config) (*kerberos.Environment, error) {
	principals, err := HDFSPrincipals(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.logger().WithValues("service", cfg.HDFS.ServiceName)
	env := kerberos.NewEnvironment(cfg.Kerberos.Realm, deps.Provisioner).WithLogger(logger)
	if err := env.AddPrincipals(principals...); err != nil {
		return nil, err
	}
	return env, nil
}

func installHDFS(ctx context.Context, deps Deps, cfg *config.Config, env *kerberos.Environment) error {
	options, err := kerberos.HDFSServiceOptions(env, HDFSPrimary, HDFSPrimaryHTTP)
	if err != nil {
		return err
	}
	return deps.Installer.EnsureRunning(ctx, lifecycle.ServiceInstallRequest{
		PackageName:    cfg.HDFS.Package,
		PackageVersion: cfg.HDFS.Version,
		ServiceName:    cfg.HDFS.ServiceName,
		TaskCount:      cfg.HDFS.TaskCount,
		Options:        options,
		Timeout:        cfg.HDFS.Timeout,
	})
}

// TeardownHDFS uninstalls HDFS and cleans env up, logging failures.
func TeardownHDFS(ctx context.Context, deps Deps, cfg *config.Config, env *kerberos.Environment) {
	deps.Installer.Uninstall(context.WithoutCancel(ctx), cfg.HDFS.Package, cfg.HDFS.ServiceName)
	cleanupEnvironment(ctx, deps.logger(), env)
}

// WithHDFS runs fn against a Kerberized HDFS and always tears it down.
func WithHDFS(ctx context.Context, deps Deps, cfg *config.Config, fn func(ctx context.Context, env *kerberos.Environment) error) error {
	env, err := newHDFSEnvironment(deps, cfg)
	if err != nil {
		return err
	}
	install := func(ctx context.Context, env *kerberos.Environment) error {
		return installHDFS(ctx, deps, cfg, env)
	}
	return withKerberizedService(ctx, deps, env, cfg.HDFS.Package, cfg.HDFS.ServiceName, install, fn)
}

// Case is a job with the output marker it must produce. An empty
// ExpectedOutput only requires the job to finish.
type Case struct {
	Name           string
	Spec           job.Spec
	ExpectedOutput string
}

// TerasortJobs returns the TeraGen, TeraSort and TeraValidate jobs, run in
// that order, authenticating to HDFS as the first name node.
func TerasortJobs(cfg *config.Config, env *kerberos.Environment) ([]Case, error) {
	kerberosArgs, err := hdfsKerberosArgs(cfg, env)
	if err != nil {
		return nil, err
	}

	newSpec := func(class string, appArgs ...string) job.Spec {
		return job.Spec{
			AppName:    cfg.Spark.AppName,
			AppURL:     cfg.HDFS.TerasortJar,
			AppArgs:    appArgs,
			SubmitArgs: append([]string{"--class", class}, kerberosArgs...),
		}
	}
	return []Case{
		{
			Name:           "teragen",
			Spec:           newSpec(TeraGenClass, cfg.HDFS.TerasortSize, "hdfs:///terasort_in"),
			ExpectedOutput: "Number of records written",
		},
		{
			Name: "terasort",
			Spec: newSpec(TeraSortClass, "hdfs:///terasort_in", "hdfs:///terasort_out"),
		},
		{
			Name:           "teravalidate",
			Spec:           newSpec(TeraValidateClass, "hdfs:///terasort_out", "hdfs:///terasort_validate"),
			ExpectedOutput: "partitions are properly sorted",
		},
	}, nil
}

func hdfsKerberosArgs(cfg *config.Config, env *kerberos.Environment) ([]string, error) {
	keytab, err := env.KeytabPath()
	if err != nil {
		return nil, err
	}
	krb5, err := krb5ConfBase64(env)
	if err != nil {
		return nil, err
	}
	domain := kerberos.ServiceDomain(cfg.HDFS.ServiceName, cfg.Kerberos.HostSuffix)
	principal := fmt.Sprintf("%s/%s.%s@%s", HDFSPrimary, kerberos.HDFSTopology().Instances[0], domain, env.Realm())
	return []string{
		"--kerberos-principal", principal,
		"--keytab-secret-path", "/" + strings.TrimPrefix(keytab, "/"),
		"--conf", common.SparkExecutorEnvKrb5ConfigBase64 + "=" + krb5,
		"--conf", common.SparkKubernetesDriverEnvKrb5ConfigBase64 + "=" + krb5,
	}, nil
}

// RunTerasort runs the terasort jobs in order and stops at the first failure.
func RunTerasort(ctx context.Context, deps Deps, cfg *config.Config, env *kerberos.Environment) error {
	cases, err := TerasortJobs(cfg, env)
	if err != nil {
		return err
	}
	for _, c := range cases {
		deps.logger().Info("Running job", "case", c.Name)
		if _, err := deps.Jobs.Run(ctx, c.Spec, c.ExpectedOutput, runTimeouts(cfg)); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}

func krb5ConfBase64(env *kerberos.Environment) (string, error) {
	host, err := env.Host()
	if err != nil {
		return "", err
	}
	port, err := env.Port()
	if err != nil {
		return "", err
	}
	return kerberos.Krb5ConfBase64(env.Realm(), host, port)
}
