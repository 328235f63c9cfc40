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
	"path"
	"strconv"
	"strings"

	"github.com/kubeflow/spark-interop/internal/job"
	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/lifecycle"
	"github.com/kubeflow/spark-interop/pkg/common"
	"github.com/kubeflow/spark-interop/pkg/config"
)

// DefaultKafkaPort is the port brokers listen on for clients.
const DefaultKafkaPort = 9092

// Kafka test application main classes.
const (
	KafkaProducerClass = "KafkaProducer"
	KafkaConsumerClass = "KafkaConsumer"
)

// KafkaOptions selects how Kafka is installed.
type KafkaOptions struct {
	Kerberized bool
}

// KafkaPrincipals returns the principals of every broker followed by the
// client principal.
func KafkaPrincipals(cfg *config.Config, serviceName string) ([]string, error) {
	realm := cfg.Kerberos.Realm
	domain := kerberos.ServiceDomain(serviceName, cfg.Kerberos.HostSuffix)
	return kerberos.KafkaTopology(cfg.Kafka.Brokers).Principals(domain, realm, kerberos.UserPrincipal(cfg.Kafka.ClientPrincipal, realm))
}

// KafkaOptionsFor returns the options configured in cfg.
func KafkaOptionsFor(cfg *config.Config) KafkaOptions {
	return KafkaOptions{Kerberized: cfg.Kafka.Kerberized}
}

// KafkaServiceName returns the service Kafka is installed as.
func KafkaServiceName(cfg *config.Config, opts KafkaOptions) string {
	kafka := cfg.Kafka
	kafka.Kerberized = opts.Kerberized
	return kafka.EffectiveServiceName()
}

// InstallKafka installs Kafka, Kerberized against a fresh environment when
// opts.Kerberized is set. The returned environment is nil for an insecure
// Kafka; otherwise the caller owns it and must pass it to TeardownKafka.
func InstallKafka(ctx context.Context, deps Deps, cfg *config.Config, opts KafkaOptions) (*kerberos.Environment, error) {
	if !opts.Kerberized {
		if err := installKafka(ctx, deps, cfg, opts, nil); err != nil {
			TeardownKafka(ctx, deps, cfg, opts, nil)
			return nil, err
		}
		return nil, nil
	}

	env, err := newKafkaEnvironment(deps, cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := env.Finalize(ctx); err != nil {
		return nil, err
	}
	if err := installKafka(ctx, deps, cfg, opts, env); err != nil {
		TeardownKafka(ctx, deps, cfg, opts, env)
		return nil, err
	}
	return env, nil
}

func newKafkaEnvironment(deps Deps, cfg *config.Config, opts KafkaOptions) (*kerberos.Environment, error) {
	serviceName := KafkaServiceName(cfg, opts)
	principals, err := KafkaPrincipals(cfg, serviceName)
	if err != nil {
		return nil, err
	}
	logger := deps.logger().WithValues("service", serviceName)
	env := kerberos.NewEnvironment(cfg.Kerberos.Realm, deps.Provisioner).WithLogger(logger)
	if err := env.AddPrincipals(principals...); err != nil {
		return nil, err
	}
	return env, nil
}

// installKafka installs Kafka, Kerberized against env unless env is nil.
func installKafka(ctx context.Context, deps Deps, cfg *config.Config, opts KafkaOptions, env *kerberos.Environment) error {
	serviceName := KafkaServiceName(cfg, opts)
	logger := deps.logger().WithValues("service", serviceName, "kerberized", env != nil)

	req := lifecycle.ServiceInstallRequest{
		PackageName:    cfg.Kafka.Package,
		PackageVersion: cfg.Kafka.Version,
		ServiceName:    serviceName,
		TaskCount:      cfg.Kafka.TaskCount,
		Options:        map[string]any{"service": map[string]any{}},
		Timeout:        cfg.Kafka.Timeout,
	}
	if env == nil {
		logger.Info("Using insecure Kafka cluster")
		return deps.Installer.EnsureRunning(ctx, req)
	}

	logger.Info("Using secure Kerberized Kafka cluster")
	options, err := kerberos.KafkaServiceOptions(env, serviceName)
	if err != nil {
		return err
	}
	req.Options = options
	return deps.Installer.EnsureRunning(ctx, req)
}

// TeardownKafka uninstalls Kafka and cleans env up, logging failures.
func TeardownKafka(ctx context.Context, deps Deps, cfg *config.Config, opts KafkaOptions, env *kerberos.Environment) {
	deps.Installer.Uninstall(context.WithoutCancel(ctx), cfg.Kafka.Package, KafkaServiceName(cfg, opts))
	cleanupEnvironment(ctx, deps.logger(), env)
}

// WithKafka runs fn against Kafka and always tears it down. env is nil for an
// insecure Kafka.
func WithKafka(ctx context.Context, deps Deps, cfg *config.Config, opts KafkaOptions, fn func(ctx context.Context, env *kerberos.Environment) error) error {
	if !opts.Kerberized {
		if _, err := InstallKafka(ctx, deps, cfg, opts); err != nil {
			return err
		}
		defer TeardownKafka(ctx, deps, cfg, opts, nil)
		return fn(ctx, nil)
	}

	env, err := newKafkaEnvironment(deps, cfg, opts)
	if err != nil {
		return err
	}
	install := func(ctx context.Context, env *kerberos.Environment) error {
		return installKafka(ctx, deps, cfg, opts, env)
	}
	return withKerberizedService(ctx, deps, env, cfg.Kafka.Package, KafkaServiceName(cfg, opts), install, fn)
}

// KafkaBootstrapServers returns the broker address clients connect to.
func KafkaBootstrapServers(cfg *config.Config, opts KafkaOptions) string {
	if cfg.Kafka.BootstrapServers != "" {
		return cfg.Kafka.BootstrapServers
	}
	return fmt.Sprintf("%s.%s.svc:%d", KafkaServiceName(cfg, opts), cfg.Namespace, DefaultKafkaPort)
}

// KafkaProducer returns the streaming job writing the words of the input
// file to the topic. env is nil for an insecure Kafka.
func KafkaProducer(cfg *config.Config, opts KafkaOptions, env *kerberos.Environment) (job.Spec, error) {
	submitArgs, err := kafkaSubmitArgs(cfg, env, KafkaProducerClass, "spark.cores.max=2", "spark.executor.cores=2")
	if err != nil {
		return job.Spec{}, err
	}
	return job.Spec{
		AppName: cfg.Spark.AppName,
		AppURL:  cfg.Spark.TestJar,
		AppArgs: []string{
			KafkaBootstrapServers(cfg, opts),
			path.Base(cfg.Kafka.InputFile),
			cfg.Kafka.Topic,
			strconv.FormatBool(env != nil),
		},
		SubmitArgs: submitArgs,
	}, nil
}

// KafkaConsumer returns the job reading StopCount words from the topic, and
// the output it prints once done.
func KafkaConsumer(cfg *config.Config, opts KafkaOptions, env *kerberos.Environment) (job.Spec, string, error) {
	submitArgs, err := kafkaSubmitArgs(cfg, env, KafkaConsumerClass, "spark.cores.max=4")
	if err != nil {
		return job.Spec{}, "", err
	}
	stopCount := strconv.Itoa(cfg.Kafka.StopCount)
	return job.Spec{
		AppName: cfg.Spark.AppName,
		AppURL:  cfg.Spark.TestJar,
		AppArgs: []string{
			KafkaBootstrapServers(cfg, opts),
			cfg.Kafka.Topic,
			stopCount,
			strconv.FormatBool(env != nil),
		},
		SubmitArgs: submitArgs,
	}, fmt.Sprintf("Read %s words", stopCount), nil
}

func kafkaSubmitArgs(cfg *config.Config, env *kerberos.Environment, class string, confs ...string) ([]string, error) {
	args := []string{"--class", class}
	for _, conf := range confs {
		args = append(args, "--conf", conf)
	}
	args = append(args,
		"--conf", "spark.scheduler.maxRegisteredResourcesWaitingTime=2400s",
		"--conf", "spark.scheduler.minRegisteredResourcesRatio=1.0",
		"--conf", "spark.files="+cfg.Kafka.InputFile,
	)
	if env == nil {
		return args, nil
	}

	keytab, err := env.KeytabPath()
	if err != nil {
		return nil, err
	}
	krb5, err := krb5ConfBase64(env)
	if err != nil {
		return nil, err
	}
	jaas := "-Djava.security.auth.login.config=" + cfg.Kafka.JAASConfig
	return append(args,
		"--kerberos-principal", kerberos.UserPrincipal(cfg.Kafka.ClientPrincipal, env.Realm()),
		"--keytab-secret-path", "/"+strings.TrimPrefix(keytab, "/"),
		"--conf", common.SparkExecutorEnvKrb5ConfigBase64+"="+krb5,
		"--conf", common.SparkKubernetesDriverEnvKrb5ConfigBase64+"="+krb5,
		"--conf", common.SparkDriverExtraJavaOptions+"="+jaas,
		"--conf", common.SparkExecutorExtraJavaOptions+"="+jaas,
	), nil
}

// RunKafka runs the producer, waits until it streams, then runs the consumer
// until it has read StopCount words. The producer is always killed.
func RunKafka(ctx context.Context, deps Deps, cfg *config.Config, opts KafkaOptions, env *kerberos.Environment) error {
	producer, err := KafkaProducer(cfg, opts, env)
	if err != nil {
		return err
	}
	consumer, expected, err := KafkaConsumer(cfg, opts, env)
	if err != nil {
		return err
	}

	return deps.Jobs.WithJob(ctx, producer, cfg.Jobs.LaunchTimeout, cfg.Jobs.StartTimeout, func(ctx context.Context, _ job.Handle) error {
		if _, err := deps.Jobs.Run(ctx, consumer, expected, runTimeouts(cfg)); err != nil {
			return fmt.Errorf("consumer: %w", err)
		}
		return nil
	})
}
