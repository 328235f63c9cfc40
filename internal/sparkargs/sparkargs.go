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

// Package sparkargs translates spark-submit style arguments into a
// SparkApplication.
package sparkargs

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"

	"github.com/kubeflow/spark-operator/v2/api/v1beta2"

	"github.com/kubeflow/spark-interop/pkg/common"
)

const (
	flagClass             = "class"
	flagConf              = "conf"
	flagDriverCores       = "driver-cores"
	flagDriverMemory      = "driver-memory"
	flagDriverJavaOptions = "driver-java-options"
	flagExecutorCores     = "executor-cores"
	flagExecutorMemory    = "executor-memory"
	flagNumExecutors      = "num-executors"
	flagKerberosPrincipal = "kerberos-principal"
	flagKeytabSecretPath  = "keytab-secret-path"
)

// Submit holds the parsed submission arguments. Pointer fields are nil when
// the argument was not given.
type Submit struct {
	MainClass         string
	Conf              map[string]string
	DriverCores       *int32
	DriverMemory      *string
	DriverJavaOptions *string
	ExecutorCores     *int32
	ExecutorMemory    *string
	NumExecutors      *int32
	KerberosPrincipal string
	// KeytabSecretPath names the secret holding the keytab, with or without a leading '/'.
	KeytabSecretPath string
}

// Parse parses spark-submit arguments. Both "--flag value" and "--flag=value"
// are accepted; unknown flags and positional arguments are errors.
func Parse(args []string) (*Submit, error) {
	fs := pflag.NewFlagSet("spark-submit", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(true)

	class := fs.String(flagClass, "", "Main class of the application.")
	confs := fs.StringArray(flagConf, nil, "Spark configuration property in key=value format.")
	driverCores := fs.Int32(flagDriverCores, 0, "Number of cores used by the driver.")
	driverMemory := fs.String(flagDriverMemory, "", "Memory for the driver.")
	driverJavaOptions := fs.String(flagDriverJavaOptions, "", "Extra Java options for the driver.")
	executorCores := fs.Int32(flagExecutorCores, 0, "Number of cores per executor.")
	executorMemory := fs.String(flagExecutorMemory, "", "Memory per executor.")
	numExecutors := fs.Int32(flagNumExecutors, 0, "Number of executors.")
	principal := fs.String(flagKerberosPrincipal, "", "Kerberos principal used to log in.")
	keytab := fs.String(flagKeytabSecretPath, "", "Secret holding the keytab of the principal.")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse submit arguments: %v", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected positional submit arguments: %v", fs.Args())
	}

	submit := &Submit{
		MainClass:         *class,
		Conf:              map[string]string{},
		KerberosPrincipal: *principal,
		KeytabSecretPath:  *keytab,
	}
	for _, conf := range *confs {
		key, value, err := splitConf(conf)
		if err != nil {
			return nil, err
		}
		submit.Conf[key] = value
	}

	var err error
	if submit.DriverCores, err = positiveFlag(fs, flagDriverCores, *driverCores); err != nil {
		return nil, err
	}
	if submit.ExecutorCores, err = positiveFlag(fs, flagExecutorCores, *executorCores); err != nil {
		return nil, err
	}
	if submit.NumExecutors, err = positiveFlag(fs, flagNumExecutors, *numExecutors); err != nil {
		return nil, err
	}
	if fs.Changed(flagDriverMemory) {
		submit.DriverMemory = driverMemory
	}
	if fs.Changed(flagDriverJavaOptions) {
		submit.DriverJavaOptions = driverJavaOptions
	}
	if fs.Changed(flagExecutorMemory) {
		submit.ExecutorMemory = executorMemory
	}

	if (submit.KerberosPrincipal == "") != (submit.KeytabSecretPath == "") {
		return nil, fmt.Errorf("--%s and --%s must be given together", flagKerberosPrincipal, flagKeytabSecretPath)
	}
	return submit, nil
}

func positiveFlag(fs *pflag.FlagSet, name string, value int32) (*int32, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	if value <= 0 {
		return nil, fmt.Errorf("--%s must be positive, got %d", name, value)
	}
	return ptr.To(value), nil
}

func splitConf(conf string) (string, string, error) {
	key, value, ok := strings.Cut(conf, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid --conf %q, expected key=value", conf)
	}
	return key, value, nil
}

// KeytabSecretName returns the name of the secret referenced by the keytab secret path.
func (s *Submit) KeytabSecretName() string {
	return strings.TrimPrefix(s.KeytabSecretPath, "/")
}

// Args renders the submission back into canonical "--flag=value" arguments,
// with --conf properties sorted by key.
func (s *Submit) Args() []string {
	var args []string
	if s.MainClass != "" {
		args = append(args, fmt.Sprintf("--%s=%s", flagClass, s.MainClass))
	}
	keys := make([]string, 0, len(s.Conf))
	for key := range s.Conf {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, fmt.Sprintf("--%s=%s=%s", flagConf, key, s.Conf[key]))
	}
	if s.DriverCores != nil {
		args = append(args, fmt.Sprintf("--%s=%d", flagDriverCores, *s.DriverCores))
	}
	if s.DriverMemory != nil {
		args = append(args, fmt.Sprintf("--%s=%s", flagDriverMemory, *s.DriverMemory))
	}
	if s.DriverJavaOptions != nil {
		args = append(args, fmt.Sprintf("--%s=%s", flagDriverJavaOptions, *s.DriverJavaOptions))
	}
	if s.ExecutorCores != nil {
		args = append(args, fmt.Sprintf("--%s=%d", flagExecutorCores, *s.ExecutorCores))
	}
	if s.ExecutorMemory != nil {
		args = append(args, fmt.Sprintf("--%s=%s", flagExecutorMemory, *s.ExecutorMemory))
	}
	if s.NumExecutors != nil {
		args = append(args, fmt.Sprintf("--%s=%d", flagNumExecutors, *s.NumExecutors))
	}
	if s.KerberosPrincipal != "" {
		args = append(args,
			fmt.Sprintf("--%s=%s", flagKerberosPrincipal, s.KerberosPrincipal),
			fmt.Sprintf("--%s=%s", flagKeytabSecretPath, s.KeytabSecretPath),
		)
	}
	return args
}

// KerberosConf returns the Spark properties that make the driver log in as
// principal with the keytab at keytabPath.
func KerberosConf(principal, keytabPath string) map[string]string {
	return map[string]string{
		common.SparkKerberosPrincipal:            principal,
		common.SparkKerberosKeytab:               keytabPath,
		common.SparkKerberosRenewalCredentials:   "keytab",
		common.SparkHadoopSecurityAuthentication: "kerberos",
		common.SparkHadoopSecurityAuthorization:  "true",
	}
}

// Apply sets the submission on app. Resource properties given with --conf
// are moved to the driver and executor specs; explicit flags take precedence
// over them.
func Apply(s *Submit, app *v1beta2.SparkApplication) error {
	spec := &app.Spec
	if s.MainClass != "" {
		spec.MainClass = ptr.To(s.MainClass)
	}

	for key, value := range s.Conf {
		handled, err := applyResourceConf(spec, key, value)
		if err != nil {
			return err
		}
		if handled {
			continue
		}
		if spec.SparkConf == nil {
			spec.SparkConf = map[string]string{}
		}
		spec.SparkConf[key] = value
	}

	if s.DriverCores != nil {
		spec.Driver.Cores = ptr.To(*s.DriverCores)
	}
	if s.DriverMemory != nil {
		spec.Driver.Memory = ptr.To(*s.DriverMemory)
	}
	if s.DriverJavaOptions != nil {
		spec.Driver.JavaOptions = ptr.To(*s.DriverJavaOptions)
	}
	if s.ExecutorCores != nil {
		spec.Executor.Cores = ptr.To(*s.ExecutorCores)
	}
	if s.ExecutorMemory != nil {
		spec.Executor.Memory = ptr.To(*s.ExecutorMemory)
	}
	if s.NumExecutors != nil {
		spec.Executor.Instances = ptr.To(*s.NumExecutors)
	}

	if s.KerberosPrincipal != "" {
		secret := v1beta2.SecretInfo{
			Name: s.KeytabSecretName(),
			Path: common.DefaultKerberosKeytabMountPath,
			Type: v1beta2.SecretTypeGeneric,
		}
		spec.Driver.Secrets = appendSecret(spec.Driver.Secrets, secret)
		spec.Executor.Secrets = appendSecret(spec.Executor.Secrets, secret)

		keytabPath := common.DefaultKerberosKeytabMountPath + "/" + common.KerberosKeytabFileName
		if spec.SparkConf == nil {
			spec.SparkConf = map[string]string{}
		}
		for key, value := range KerberosConf(s.KerberosPrincipal, keytabPath) {
			spec.SparkConf[key] = value
		}
	}
	return nil
}

func applyResourceConf(spec *v1beta2.SparkApplicationSpec, key, value string) (bool, error) {
	switch key {
	case common.SparkDriverCores:
		cores, err := parseCores(key, value)
		if err != nil {
			return false, err
		}
		spec.Driver.Cores = cores
	case common.SparkDriverMemory:
		spec.Driver.Memory = ptr.To(value)
	case common.SparkDriverExtraJavaOptions:
		spec.Driver.JavaOptions = ptr.To(value)
	case common.SparkExecutorCores:
		cores, err := parseCores(key, value)
		if err != nil {
			return false, err
		}
		spec.Executor.Cores = cores
	case common.SparkExecutorMemory:
		spec.Executor.Memory = ptr.To(value)
	case common.SparkExecutorExtraJavaOptions:
		spec.Executor.JavaOptions = ptr.To(value)
	case common.SparkExecutorInstances:
		instances, err := parseCores(key, value)
		if err != nil {
			return false, err
		}
		spec.Executor.Instances = instances
	default:
		return false, nil
	}
	return true, nil
}

func parseCores(key, value string) (*int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid value %q for %s, expected a positive integer", value, key)
	}
	return ptr.To(int32(n)), nil
}

func appendSecret(secrets []v1beta2.SecretInfo, secret v1beta2.SecretInfo) []v1beta2.SecretInfo {
	for _, s := range secrets {
		if s.Name == secret.Name && s.Path == secret.Path {
			return secrets
		}
	}
	return append(secrets, secret)
}
