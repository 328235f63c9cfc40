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

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// SPARK_INTEROP_KAFKA_KERBERIZED=true.
const EnvPrefix = "SPARK_INTEROP"

var defaults = map[string]any{
	"namespace":     "spark-interop",
	"poll_interval": 5 * time.Second,

	"kerberos.realm":              "LOCAL",
	"kerberos.host_suffix":        "autoip.dcos.thisdcos.directory",
	"kerberos.kdc.name":           "kdc",
	"kerberos.kdc.image":          "docker.io/gcavalcante8808/krb5-server:latest",
	"kerberos.kdc.port":           2500,
	"kerberos.kdc.keytab_secret":  "kerberos-keytab",
	"kerberos.kdc.cluster_domain": "cluster.local",
	"kerberos.kdc.ready_timeout":  5 * time.Minute,

	"hdfs.package":        "beta-hdfs",
	"hdfs.version":        "",
	"hdfs.service_name":   "hdfs",
	"hdfs.task_count":     10,
	"hdfs.timeout":        30 * time.Minute,
	"hdfs.user_principal": "hdfs",
	"hdfs.terasort_jar":   "https://downloads.mesosphere.io/spark/examples/spark-terasort-1.1-jar-with-dependencies_2.11.jar",
	"hdfs.terasort_size":  "1g",

	"kafka.package":             "beta-kafka",
	"kafka.version":             "",
	"kafka.service_name":        "kafka",
	"kafka.secure_service_name": "secure-kafka",
	"kafka.task_count":          3,
	"kafka.timeout":             30 * time.Minute,
	"kafka.kerberized":          false,
	"kafka.brokers":             3,
	"kafka.client_principal":    "client",
	"kafka.bootstrap_servers":   "",
	"kafka.topic":               "top1",
	"kafka.stop_count":          48,
	"kafka.input_file":          "http://norvig.com/big.txt",
	"kafka.jaas_config":         "/etc/kafka/client-jaas.conf",

	"spark.app_name":           "spark",
	"spark.image":              "docker.io/library/spark:3.5.5",
	"spark.version":            "3.5.5",
	"spark.service_account":    "spark-operator-spark",
	"spark.test_jar":           "",
	"spark.driver_cores":       1,
	"spark.driver_memory":      "512m",
	"spark.executor_instances": 1,
	"spark.executor_cores":     1,
	"spark.executor_memory":    "512m",

	"jobs.launch_timeout":     10 * time.Minute,
	"jobs.start_timeout":      10 * time.Minute,
	"jobs.completion_timeout": 30 * time.Minute,

	"metrics.prefix":          "spark_interop_",
	"metrics.pushgateway_url": "",
	"metrics.job_name":        "spark-interop",
}

// SetDefaults registers every default on v. Registered keys are also the keys
// looked up in the environment.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads the configuration. Precedence, highest first: flags bound to v,
// SPARK_INTEROP_* environment variables, the config file, defaults. An empty
// configFile skips reading a file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", configFile)
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace must not be empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.Kerberos.Realm == "" {
		errs = append(errs, errors.New("kerberos.realm must not be empty"))
	}
	if c.Kerberos.KDC.Port <= 0 {
		errs = append(errs, fmt.Errorf("kerberos.kdc.port must be positive, got %d", c.Kerberos.KDC.Port))
	}
	if _, err := c.Spark.ConfMap(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.HDFS.validate("hdfs")...)
	errs = append(errs, c.Kafka.validate("kafka")...)
	if c.Kafka.Brokers <= 0 {
		errs = append(errs, fmt.Errorf("kafka.brokers must be positive, got %d", c.Kafka.Brokers))
	}
	for name, timeout := range map[string]time.Duration{
		"jobs.launch_timeout":     c.Jobs.LaunchTimeout,
		"jobs.start_timeout":      c.Jobs.StartTimeout,
		"jobs.completion_timeout": c.Jobs.CompletionTimeout,
	} {
		if timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, timeout))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c ServiceConfig) validate(prefix string) []error {
	var errs []error
	if c.Package == "" {
		errs = append(errs, fmt.Errorf("%s.package must not be empty", prefix))
	}
	if c.ServiceName == "" {
		errs = append(errs, fmt.Errorf("%s.service_name must not be empty", prefix))
	}
	if c.TaskCount <= 0 {
		errs = append(errs, fmt.Errorf("%s.task_count must be positive, got %d", prefix, c.TaskCount))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive, got %s", prefix, c.Timeout))
	}
	return errs
}
