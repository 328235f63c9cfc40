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

package kerberos

// HDFSServiceOptions returns the configuration overlay enabling Kerberos on
// an HDFS service, nested under service.kerberos.
func HDFSServiceOptions(env *Environment, primary, primaryHTTP string) (map[string]any, error) {
	kerberos, err := connectionOptions(env)
	if err != nil {
		return nil, err
	}
	kerberos["primary"] = primary
	kerberos["primary_http"] = primaryHTTP
	kerberos["realm"] = env.Realm()

	return map[string]any{
		"service": map[string]any{
			"kerberos": kerberos,
		},
	}, nil
}

// KafkaServiceOptions returns the configuration overlay enabling Kerberos on
// a Kafka service, nested under service.security.kerberos.
func KafkaServiceOptions(env *Environment, serviceName string) (map[string]any, error) {
	kerberos, err := connectionOptions(env)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"service": map[string]any{
			"name": serviceName,
			"security": map[string]any{
				"kerberos": kerberos,
			},
		},
	}, nil
}

func connectionOptions(env *Environment) (map[string]any, error) {
	host, err := env.Host()
	if err != nil {
		return nil, err
	}
	port, err := env.Port()
	if err != nil {
		return nil, err
	}
	keytab, err := env.KeytabPath()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"enabled":       true,
		"kdc_host_name": host,
		"kdc_host_port": port,
		"keytab_secret": keytab,
	}, nil
}
