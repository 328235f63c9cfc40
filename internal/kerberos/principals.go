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
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/types"
)

const (
	// DefaultRealm is the realm provisioned for test clusters.
	DefaultRealm = "LOCAL"

	// DefaultHostSuffix is appended to a service name to form the domain of its tasks.
	DefaultHostSuffix = "autoip.dcos.thisdcos.directory"
)

// ServiceTopology describes the task instances of a service and the
// protocol roles (Kerberos primaries) each instance needs a principal for.
type ServiceTopology struct {
	Instances []string
	Roles     []string
}

// Principals derives the principal set of the topology.
func (t ServiceTopology) Principals(domainSuffix, realm string, extra ...string) ([]string, error) {
	return BuildPrincipals(t.Instances, t.Roles, domainSuffix, realm, extra...)
}

// HDFSTopology returns the topology of a default HA HDFS deployment: two
// name nodes with their failover controllers, three journal nodes and three
// data nodes, each needing an "hdfs" and an "HTTP" principal.
func HDFSTopology() ServiceTopology {
	return ServiceTopology{
		Instances: []string{
			"name-0-node",
			"name-0-zkfc",
			"name-1-node",
			"name-1-zkfc",
			"journal-0-node",
			"journal-1-node",
			"journal-2-node",
			"data-0-node",
			"data-1-node",
			"data-2-node",
		},
		Roles: []string{"hdfs", "HTTP"},
	}
}

// KafkaTopology returns the topology of a Kafka deployment with the given
// number of brokers.
func KafkaTopology(brokers int) ServiceTopology {
	instances := make([]string, 0, brokers)
	for i := 0; i < brokers; i++ {
		instances = append(instances, fmt.Sprintf("kafka-%d-broker", i))
	}
	return ServiceTopology{Instances: instances, Roles: []string{"kafka"}}
}

// ServiceDomain returns the domain under which the tasks of a service resolve.
func ServiceDomain(serviceName, hostSuffix string) string {
	return serviceName + "." + hostSuffix
}

// UserPrincipal returns a principal without an instance component, e.g. "client@LOCAL".
func UserPrincipal(name, realm string) string {
	return name + "@" + realm
}

// BuildPrincipals emits "{role}/{instance}.{domainSuffix}@{realm}" for every
// instance and, within an instance, every role in order, followed by each of
// extra verbatim. Duplicate outputs are reported as an error.
func BuildPrincipals(instances, roles []string, domainSuffix, realm string, extra ...string) ([]string, error) {
	if err := validateComponent("realm", realm); err != nil {
		return nil, err
	}
	if domainSuffix == "" || strings.ContainsAny(domainSuffix, "/@") {
		return nil, fmt.Errorf("invalid domain suffix %q", domainSuffix)
	}

	principals := make([]string, 0, len(instances)*len(roles)+len(extra))
	seen := make(map[string]struct{}, cap(principals))
	add := func(principal string) error {
		if _, ok := seen[principal]; ok {
			return fmt.Errorf("duplicate principal %q", principal)
		}
		seen[principal] = struct{}{}
		principals = append(principals, principal)
		return nil
	}

	for _, instance := range instances {
		if err := validateComponent("instance", instance); err != nil {
			return nil, err
		}
		for _, role := range roles {
			if err := validateComponent("role", role); err != nil {
				return nil, err
			}
			principal := fmt.Sprintf("%s/%s.%s@%s", role, instance, domainSuffix, realm)
			if err := ValidatePrincipal(principal); err != nil {
				return nil, err
			}
			if err := add(principal); err != nil {
				return nil, err
			}
		}
	}

	for _, principal := range extra {
		if err := ValidatePrincipal(principal); err != nil {
			return nil, err
		}
		if err := add(principal); err != nil {
			return nil, err
		}
	}
	return principals, nil
}

// ValidatePrincipal checks that principal has the form "primary[/instance]@REALM".
func ValidatePrincipal(principal string) error {
	if strings.Count(principal, "@") != 1 {
		return fmt.Errorf("principal %q must contain exactly one '@'", principal)
	}
	name, realm := types.ParseSPNString(principal)
	if realm == "" {
		return fmt.Errorf("principal %q has no realm", principal)
	}
	for _, component := range name.NameString {
		if component == "" {
			return fmt.Errorf("principal %q has an empty name component", principal)
		}
	}
	if len(name.NameString) == 0 || len(name.NameString) > 2 {
		return fmt.Errorf("principal %q must have one or two name components", principal)
	}
	if name.PrincipalNameString()+"@"+realm != principal {
		return fmt.Errorf("malformed principal %q", principal)
	}
	return nil
}

func validateComponent(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if strings.ContainsAny(value, "/@") {
		return fmt.Errorf("%s %q must not contain '/' or '@'", kind, value)
	}
	return nil
}
