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

// Package app holds the flags, logging and wiring shared by every
// spark-interop command.
package app

import (
	"context"
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"helm.sh/helm/v3/pkg/cli"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/kubeflow/spark-interop/internal/job"
	"github.com/kubeflow/spark-interop/internal/kdc"
	"github.com/kubeflow/spark-interop/internal/lifecycle"
	"github.com/kubeflow/spark-interop/internal/metrics"
	"github.com/kubeflow/spark-interop/internal/pkgmgr"
	"github.com/kubeflow/spark-interop/internal/scenario"
	"github.com/kubeflow/spark-interop/internal/status"
	"github.com/kubeflow/spark-interop/pkg/config"
	"github.com/kubeflow/spark-interop/pkg/util"
)

var logger = ctrl.Log.WithName("")

var (
	configFile  string
	development bool
	zapOptions  = logzap.Options{}

	installDurationBuckets  = util.HistogramBuckets(util.DefaultInstallDurationBuckets)
	jobStageDurationBuckets = util.HistogramBuckets(util.DefaultJobStageDurationBuckets)
)

// AddPersistentFlags registers the flags shared by every command and binds
// them to their configuration keys.
func AddPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file.")
	flags.BoolVar(&development, "development", false, "Enable development logging.")
	flags.StringP("namespace", "n", "", "The namespace services and jobs run in.")
	flags.Duration("poll-interval", 0, "Interval between two status checks.")
	flags.String("metrics-prefix", "", "Prefix for the metrics.")
	flags.String("metrics-pushgateway-url", "", "Pushgateway metrics are pushed to once the command finishes. Pushing is disabled if unset.")
	flags.Var(&installDurationBuckets, "metrics-install-duration-buckets", "Buckets for the service install duration histogram.")
	flags.Var(&jobStageDurationBuckets, "metrics-job-stage-duration-buckets", "Buckets for the job stage duration histogram.")

	BindFlag(cmd, "namespace", "namespace")
	BindFlag(cmd, "poll_interval", "poll-interval")
	BindFlag(cmd, "metrics.prefix", "metrics-prefix")
	BindFlag(cmd, "metrics.pushgateway_url", "metrics-pushgateway-url")

	flagSet := flag.NewFlagSet("spark-interop", flag.ExitOnError)
	ctrl.RegisterFlags(flagSet)
	zapOptions.BindFlags(flagSet)
	flags.AddGoFlagSet(flagSet)
}

// BindFlag binds the flag of cmd named name to the configuration key.
func BindFlag(cmd *cobra.Command, key, name string) {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(name)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
	}
}

// SetupLog configures the logging system. client-go logs go to the same sink.
func SetupLog() {
	ctrl.SetLogger(logzap.New(
		logzap.UseFlagOptions(&zapOptions),
		func(o *logzap.Options) {
			o.Development = development
		}, func(o *logzap.Options) {
			o.ZapOpts = append(o.ZapOpts, zap.AddCaller())
		}, func(o *logzap.Options) {
			var config zapcore.EncoderConfig
			if !development {
				config = zap.NewProductionEncoderConfig()
			} else {
				config = zap.NewDevelopmentEncoderConfig()
				config.EncodeLevel = zapcore.CapitalColorLevelEncoder
			}
			config.EncodeTime = zapcore.ISO8601TimeEncoder
			config.EncodeCaller = zapcore.ShortCallerEncoder
			if !development {
				o.Encoder = zapcore.NewJSONEncoder(config)
			} else {
				o.Encoder = zapcore.NewConsoleEncoder(config)
			}
		}),
	)
	klog.SetLogger(ctrl.Log.WithName("client-go"))
}

// LoadConfig loads the configuration from the config file, environment and
// bound flags.
func LoadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), configFile)
}

// Env is everything a command needs to talk to the cluster.
type Env struct {
	Config    *config.Config
	Client    client.Client
	Clientset kubernetes.Interface
	Metrics   *Metrics
}

// NewEnv loads the configuration and creates the Kubernetes clients.
func NewEnv() (*Env, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	c, err := util.GetK8sClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %v", err)
	}
	clientset, err := util.GetClientset()
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %v", err)
	}
	return &Env{
		Config:    cfg,
		Client:    c,
		Clientset: clientset,
		Metrics:   NewMetrics(cfg),
	}, nil
}

// Orchestrator returns the service lifecycle orchestrator backed by Helm.
func (e *Env) Orchestrator() *lifecycle.Orchestrator {
	return lifecycle.NewOrchestrator(
		pkgmgr.NewHelm(e.Config.Namespace, cli.New()),
		status.NewKubernetes(e.Client, e.Config.Namespace),
	).WithPollInterval(e.Config.PollInterval).WithMetrics(e.Metrics.Service)
}

// Provisioner returns the in-cluster KDC provisioner.
func (e *Env) Provisioner() *kdc.Provisioner {
	kdcConfig := e.Config.Kerberos.KDC
	return kdc.NewProvisioner(e.Client, kdc.Options{
		Name:             kdcConfig.Name,
		Namespace:        e.Config.Namespace,
		Image:            kdcConfig.Image,
		Port:             kdcConfig.Port,
		KeytabSecretName: kdcConfig.KeytabSecret,
		ClusterDomain:    kdcConfig.ClusterDomain,
		PollInterval:     e.Config.PollInterval,
		ReadyTimeout:     kdcConfig.ReadyTimeout,
	})
}

// Platform returns the job platform submitting SparkApplications.
func (e *Env) Platform() (*job.SparkApplicationPlatform, error) {
	conf, err := e.Config.Spark.ConfMap()
	if err != nil {
		return nil, err
	}
	spark := e.Config.Spark
	return job.NewSparkApplicationPlatform(e.Client, e.Clientset, e.Config.Namespace, job.SparkApplicationOptions{
		Image:             spark.Image,
		SparkVersion:      spark.Version,
		ServiceAccount:    spark.ServiceAccount,
		DriverCores:       spark.DriverCores,
		DriverMemory:      spark.DriverMemory,
		ExecutorInstances: spark.ExecutorInstances,
		ExecutorCores:     spark.ExecutorCores,
		ExecutorMemory:    spark.ExecutorMemory,
		SparkConf:         conf,
	}), nil
}

// Runner returns the job runner on top of the SparkApplication platform.
func (e *Env) Runner() (*job.Runner, error) {
	platform, err := e.Platform()
	if err != nil {
		return nil, err
	}
	return job.NewRunner(platform).WithPollInterval(e.Config.PollInterval).WithMetrics(e.Metrics.Job), nil
}

// ScenarioDeps returns the collaborators of the HDFS and Kafka suites.
func (e *Env) ScenarioDeps() (scenario.Deps, error) {
	runner, err := e.Runner()
	if err != nil {
		return scenario.Deps{}, err
	}
	return scenario.Deps{
		Installer:   e.Orchestrator(),
		Provisioner: e.Provisioner(),
		Jobs:        runner,
		Logger:      ctrl.Log.WithName("scenario"),
	}, nil
}

// Metrics are the metrics recorded by a command.
type Metrics struct {
	Service *metrics.ServiceMetrics
	Job     *metrics.JobMetrics
}

// NewMetrics creates and registers the metrics of a command.
func NewMetrics(cfg *config.Config) *Metrics {
	jobMetrics := metrics.NewJobMetrics(cfg.Metrics.Prefix, jobStageDurationBuckets)
	m := &Metrics{
		Service: metrics.NewServiceMetrics(cfg.Metrics.Prefix, installDurationBuckets).WithPollTimeouts(jobMetrics.PollTimeouts()),
		Job:     jobMetrics,
	}
	m.Service.Register()
	m.Job.Register()
	return m
}

// PushMetrics pushes the recorded metrics when a Pushgateway is configured.
// Failures are logged only.
func (e *Env) PushMetrics(ctx context.Context) {
	url := e.Config.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	if err := metrics.Push(context.WithoutCancel(ctx), url, e.Config.Metrics.JobName, ctrlmetrics.Registry); err != nil {
		logger.Error(err, "Failed to push metrics")
	}
}
