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

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"

	"github.com/jcmturner/gokrb5/v8/config"
)

const krb5ConfTemplate = `[libdefaults]
default_realm = %s

[realms]
  %s = {
    kdc = %s
  }
`

// Krb5Conf renders a minimal krb5.conf pointing clients of realm at the KDC.
func Krb5Conf(realm, host string, port int) (string, error) {
	if err := validateComponent("realm", realm); err != nil {
		return "", err
	}
	if host == "" || port <= 0 {
		return "", fmt.Errorf("invalid KDC address %s:%d", host, port)
	}

	kdc := net.JoinHostPort(host, strconv.Itoa(port))
	conf := fmt.Sprintf(krb5ConfTemplate, realm, realm, kdc)

	parsed, err := config.NewFromString(conf)
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered krb5.conf: %w", err)
	}
	if parsed.LibDefaults.DefaultRealm != realm {
		return "", fmt.Errorf("rendered krb5.conf has default realm %q, want %q", parsed.LibDefaults.DefaultRealm, realm)
	}
	return conf, nil
}

// Krb5ConfBase64 renders krb5.conf and encodes it for the KRB5_CONFIG_BASE64
// environment variable understood by the Spark images.
func Krb5ConfBase64(realm, host string, port int) (string, error) {
	conf, err := Krb5Conf(realm, host, port)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(conf)), nil
}

// Krb5ConfFor renders krb5.conf for a finalized environment.
func Krb5ConfFor(env *Environment) (string, error) {
	host, err := env.Host()
	if err != nil {
		return "", err
	}
	port, err := env.Port()
	if err != nil {
		return "", err
	}
	return Krb5Conf(env.Realm(), host, port)
}
