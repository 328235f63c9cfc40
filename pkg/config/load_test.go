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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "spark-interop", cfg.Namespace)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "LOCAL", cfg.Kerberos.Realm)
	assert.Equal(t, int32(2500), cfg.Kerberos.KDC.Port)
	assert.Equal(t, "beta-hdfs", cfg.HDFS.Package)
	assert.Equal(t, "hdfs", cfg.HDFS.ServiceName)
	assert.Equal(t, 10, cfg.HDFS.TaskCount)
	assert.Equal(t, 30*time.Minute, cfg.HDFS.Timeout)
	assert.Equal(t, 3, cfg.Kafka.TaskCount)
	assert.False(t, cfg.Kafka.Kerberized)
	assert.Equal(t, "kafka", cfg.Kafka.EffectiveServiceName())
	assert.Equal(t, 48, cfg.Kafka.StopCount)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.LaunchTimeout)
	assert.Equal(t, "spark", cfg.Spark.AppName)
}

func TestLoadFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
namespace: interop
kafka:
  kerberized: true
  timeout: 10m
spark:
  conf:
    - spark.scheduler.minRegisteredResourcesRatio=1.0
jobs:
  completion_timeout: 45m
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	cfg, err := Load(viper.New(), configFile)
	require.NoError(t, err)

	assert.Equal(t, "interop", cfg.Namespace)
	assert.True(t, cfg.Kafka.Kerberized)
	assert.Equal(t, "secure-kafka", cfg.Kafka.EffectiveServiceName())
	assert.Equal(t, 10*time.Minute, cfg.Kafka.Timeout)
	assert.Equal(t, 3, cfg.Kafka.TaskCount)
	assert.Equal(t, 45*time.Minute, cfg.Jobs.CompletionTimeout)
	conf, err := cfg.Spark.ConfMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"spark.scheduler.minRegisteredResourcesRatio": "1.0"}, conf)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("namespace: from-file\n"), 0o644))
	t.Setenv("SPARK_INTEROP_NAMESPACE", "from-env")
	t.Setenv("SPARK_INTEROP_KAFKA_KERBERIZED", "true")
	t.Setenv("SPARK_INTEROP_JOBS_LAUNCH_TIMEOUT", "90s")

	cfg, err := Load(viper.New(), configFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Namespace)
	assert.True(t, cfg.Kafka.Kerberized)
	assert.Equal(t, 90*time.Second, cfg.Jobs.LaunchTimeout)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("SPARK_INTEROP_NAMESPACE", "from-env")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("namespace", "", "")
	require.NoError(t, flags.Parse([]string{"--namespace", "from-flag"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("namespace", flags.Lookup("namespace")))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Namespace)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("SPARK_INTEROP_HDFS_TASK_COUNT", "0")
	t.Setenv("SPARK_INTEROP_KERBEROS_KDC_PORT", "0")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hdfs.task_count must be positive")
	assert.Contains(t, err.Error(), "kerberos.kdc.port must be positive")
}
