/*
Copyright 2017 Google LLC

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

package common

// Spark properties set from spark-submit style arguments.
const (
	// SparkAppName is the configuration property for application name.
	SparkAppName = "spark.app.name"

	SparkDriverCores = "spark.driver.cores"

	SparkDriverMemory = "spark.driver.memory"

	SparkExecutorInstances = "spark.executor.instances"

	SparkExecutorCores = "spark.executor.cores"

	SparkExecutorMemory = "spark.executor.memory"

	SparkCoresMax = "spark.cores.max"

	SparkDriverExtraJavaOptions = "spark.driver.extraJavaOptions"

	SparkExecutorExtraJavaOptions = "spark.executor.extraJavaOptions"
)

// Spark Kerberos properties.
const (
	SparkKerberosPrincipal = "spark.kerberos.principal"

	SparkKerberosKeytab = "spark.kerberos.keytab"

	SparkKerberosRenewalCredentials = "spark.kerberos.renewal.credentials"

	SparkHadoopSecurityAuthentication = "spark.hadoop.hadoop.security.authentication"

	SparkHadoopSecurityAuthorization = "spark.hadoop.hadoop.security.authorization"

	SparkHadoopKrb5Conf = "spark.hadoop.java.security.krb5.conf"

	SparkExecutorEnvKrb5ConfigBase64 = "spark.executorEnv.KRB5_CONFIG_BASE64"

	SparkKubernetesDriverEnvKrb5ConfigBase64 = "spark.kubernetes.driverEnv.KRB5_CONFIG_BASE64"
)

const (
	// DefaultKerberosKeytabMountPath is where the keytab secret is mounted in driver and executor pods.
	DefaultKerberosKeytabMountPath = "/etc/kerberos/keytab"

	// KerberosKeytabFileName is the key of the keytab in the keytab secret.
	KerberosKeytabFileName = "krb5.keytab"

	// DefaultKerberosConfigMountPath is where krb5.conf is mounted in driver and executor pods.
	DefaultKerberosConfigMountPath = "/etc/krb5"

	// KerberosConfigFileName is the name of the Kerberos configuration file.
	KerberosConfigFileName = "krb5.conf"
)

// Spark application defaults used when a job does not specify them.
const (
	DefaultSparkVersion = "3.5.5"

	DefaultSparkImage = "docker.io/library/spark:3.5.5"

	DefaultSparkServiceAccount = "spark-operator-spark"

	DefaultDriverCores = 1

	DefaultDriverMemory = "512m"

	DefaultExecutorInstances = 1

	DefaultExecutorCores = 1

	DefaultExecutorMemory = "512m"
)
