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
	"fmt"
	"strings"
	"time"
)

// Config is the complete harness configuration.
type Config struct {
	// Namespace holds services, the KDC and jobs.
	Namespace    string        `mapstructure:"namespace"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	Kerberos KerberosConfig `mapstructure:"kerberos"`
	HDFS     HDFSConfig     `mapstructure:"hdfs"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Spark    SparkConfig    `mapstructure:"spark"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type KerberosConfig struct {
	Realm string `mapstructure:"realm"`
	// HostSuffix is appended to service names to build the domain of their tasks.
	HostSuffix string    `mapstructure:"host_suffix"`
	KDC        KDCConfig `mapstructure:"kdc"`
}

type KDCConfig struct {
	Name          string        `mapstructure:"name"`
	Image         string        `mapstructure:"image"`
	Port          int32         `mapstructure:"port"`
	KeytabSecret  string        `mapstructure:"keytab_secret"`
	ClusterDomain string        `mapstructure:"cluster_domain"`
	ReadyTimeout  time.Duration `mapstructure:"ready_timeout"`
}

// ServiceConfig describes how a service package is installed.
type ServiceConfig struct {
	Package     string        `mapstructure:"package"`
	Version     string        `mapstructure:"version"`
	ServiceName string        `mapstructure:"service_name"`
	TaskCount   int           `mapstructure:"task_count"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type HDFSConfig struct {
	ServiceConfig `mapstructure:",squash"`

	// UserPrincipal is the primary of the generic HDFS user principal.
	UserPrincipal string `mapstructure:"user_principal"`
	TerasortJar   string `mapstructure:"terasort_jar"`
	TerasortSize  string `mapstructure:"terasort_size"`
}

type KafkaConfig struct {
	ServiceConfig `mapstructure:",squash"`

	Kerberized bool `mapstructure:"kerberized"`
	// SecureServiceName replaces ServiceName when Kerberized is set.
	SecureServiceName string `mapstructure:"secure_service_name"`
	Brokers           int    `mapstructure:"brokers"`
	ClientPrincipal   string `mapstructure:"client_principal"`
	// BootstrapServers overrides the broker address derived from the service name.
	BootstrapServers string `mapstructure:"bootstrap_servers"`
	Topic            string `mapstructure:"topic"`
	StopCount        int    `mapstructure:"stop_count"`
	InputFile        string `mapstructure:"input_file"`
	JAASConfig       string `mapstructure:"jaas_config"`
}

// EffectiveServiceName returns the service Kafka is installed as.
func (c KafkaConfig) EffectiveServiceName() string {
	if c.Kerberized && c.SecureServiceName != "" {
		return c.SecureServiceName
	}
	return c.ServiceName
}

type SparkConfig struct {
	// AppName is the application jobs are submitted under.
	AppName           string `mapstructure:"app_name"`
	Image             string `mapstructure:"image"`
	Version           string `mapstructure:"version"`
	ServiceAccount    string `mapstructure:"service_account"`
	TestJar           string `mapstructure:"test_jar"`
	DriverCores       int32  `mapstructure:"driver_cores"`
	DriverMemory      string `mapstructure:"driver_memory"`
	ExecutorInstances int32  `mapstructure:"executor_instances"`
	ExecutorCores     int32  `mapstructure:"executor_cores"`
	ExecutorMemory    string `mapstructure:"executor_memory"`
	// Conf holds extra Spark properties as "key=value" entries.
	Conf []string `mapstructure:"conf"`
}

// ConfMap returns Conf as a property map.
func (c SparkConfig) ConfMap() (map[string]string, error) {
	conf := make(map[string]string, len(c.Conf))
	for _, entry := range c.Conf {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid spark.conf entry %q, expected key=value", entry)
		}
		conf[strings.TrimSpace(key)] = value
	}
	return conf, nil
}

type JobsConfig struct {
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout"`
	StartTimeout      time.Duration `mapstructure:"start_timeout"`
	CompletionTimeout time.Duration `mapstructure:"completion_timeout"`
}

type MetricsConfig struct {
	Prefix         string `mapstructure:"prefix"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}
