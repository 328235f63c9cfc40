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
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubeflow/spark-interop/pkg/common"
)

// State is the lifecycle state of an Environment.
type State int

const (
	StateEmpty State = iota
	StatePrincipalsAdded
	StateFinalized
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StatePrincipalsAdded:
		return "PRINCIPALS_ADDED"
	case StateFinalized:
		return "FINALIZED"
	case StateTornDown:
		return "TORN_DOWN"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// InvalidStateError reports an operation that is not allowed in the current
// state of the Environment.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("kerberos environment: %s not allowed in state %s", e.Op, e.State)
}

// IsInvalidState returns whether err is, or wraps, an *InvalidStateError.
func IsInvalidState(err error) bool {
	var stateErr *InvalidStateError
	return errors.As(err, &stateErr)
}

// Endpoint is the network address of a KDC.
type Endpoint struct {
	Host string
	Port int
}

// Provisioner is the identity provisioning service backing an Environment.
type Provisioner interface {
	// CreateRealm provisions the KDC for realm and returns its address.
	CreateRealm(ctx context.Context, realm string) (Endpoint, error)
	// RegisterPrincipal adds a principal to the realm.
	RegisterPrincipal(ctx context.Context, principal string) error
	// IssueKeytab materializes a keytab for every registered principal and
	// returns the path services use to reference it.
	IssueKeytab(ctx context.Context) (string, error)
	// Teardown removes every resource created for the realm.
	Teardown(ctx context.Context) error
}

// Environment is a Kerberos realm provisioned for the duration of a test
// module. It moves through EMPTY -> PRINCIPALS_ADDED -> FINALIZED ->
// TORN_DOWN and is owned by a single goroutine.
type Environment struct {
	realm       string
	provisioner Provisioner
	logger      logr.Logger

	state      State
	principals []string
	seen       map[string]struct{}
	endpoint   Endpoint
	keytabPath string
}

// NewEnvironment returns an empty Environment for realm.
func NewEnvironment(realm string, provisioner Provisioner) *Environment {
	return &Environment{
		realm:       realm,
		provisioner: provisioner,
		logger:      ctrl.Log.WithName("kerberos").WithValues("realm", realm),
		seen:        map[string]struct{}{},
	}
}

// WithLogger replaces the logger of the Environment.
func (e *Environment) WithLogger(logger logr.Logger) *Environment {
	e.logger = logger
	return e
}

// Realm returns the realm name.
func (e *Environment) Realm() string {
	return e.realm
}

// State returns the current lifecycle state.
func (e *Environment) State() State {
	return e.state
}

// Principals returns a copy of the registered principals in insertion order.
func (e *Environment) Principals() []string {
	return append([]string(nil), e.principals...)
}

// AddPrincipals adds principals to the set registered on Finalize. Adding a
// principal that is already present is a no-op. Once the environment is
// finalized the set is frozen.
func (e *Environment) AddPrincipals(principals ...string) error {
	if e.state != StateEmpty && e.state != StatePrincipalsAdded {
		return &InvalidStateError{Op: "add principals", State: e.state}
	}
	for _, principal := range principals {
		if err := ValidatePrincipal(principal); err != nil {
			return err
		}
	}
	for _, principal := range principals {
		if _, ok := e.seen[principal]; ok {
			continue
		}
		e.seen[principal] = struct{}{}
		e.principals = append(e.principals, principal)
	}
	if len(e.principals) > 0 {
		e.state = StatePrincipalsAdded
	}
	return nil
}

// Finalize provisions the KDC, registers every principal and issues the
// keytab. It is a no-op once finalized. When provisioning fails the partial
// KDC is torn down and the environment keeps its previous state.
func (e *Environment) Finalize(ctx context.Context) error {
	switch e.state {
	case StateFinalized:
		return nil
	case StateEmpty, StateTornDown:
		return &InvalidStateError{Op: "finalize", State: e.state}
	}

	e.logger.Info("Provisioning KDC", "principals", len(e.principals))
	endpoint, keytabPath, err := e.provision(ctx)
	if err != nil {
		if tdErr := e.provisioner.Teardown(context.WithoutCancel(ctx)); tdErr != nil {
			e.logger.Error(tdErr, "Failed to tear down partially provisioned KDC")
		}
		return err
	}

	e.endpoint = endpoint
	e.keytabPath = keytabPath
	e.state = StateFinalized
	e.logger.Info("KDC ready", "host", endpoint.Host, "port", endpoint.Port, "keytab", keytabPath)
	return nil
}

func (e *Environment) provision(ctx context.Context) (Endpoint, string, error) {
	endpoint, err := e.provisioner.CreateRealm(ctx, e.realm)
	if err != nil {
		return Endpoint{}, "", common.NewExternalServiceError("create realm", e.realm, err)
	}
	for _, principal := range e.principals {
		if err := e.provisioner.RegisterPrincipal(ctx, principal); err != nil {
			return Endpoint{}, "", common.NewExternalServiceError("register principal", principal, err)
		}
	}
	keytabPath, err := e.provisioner.IssueKeytab(ctx)
	if err != nil {
		return Endpoint{}, "", common.NewExternalServiceError("issue keytab", e.realm, err)
	}
	return endpoint, keytabPath, nil
}

// Host returns the KDC host name.
func (e *Environment) Host() (string, error) {
	if e.state != StateFinalized {
		return "", &InvalidStateError{Op: "get host", State: e.state}
	}
	return e.endpoint.Host, nil
}

// Port returns the KDC port.
func (e *Environment) Port() (int, error) {
	if e.state != StateFinalized {
		return 0, &InvalidStateError{Op: "get port", State: e.state}
	}
	return e.endpoint.Port, nil
}

// KeytabPath returns the reference to the issued keytab.
func (e *Environment) KeytabPath() (string, error) {
	if e.state != StateFinalized {
		return "", &InvalidStateError{Op: "get keytab path", State: e.state}
	}
	return e.keytabPath, nil
}

// Cleanup tears the KDC down. Calling it again after a successful teardown
// is a no-op. If teardown fails the environment stays finalized so Cleanup
// can be retried.
func (e *Environment) Cleanup(ctx context.Context) error {
	switch e.state {
	case StateTornDown:
		return nil
	case StateEmpty, StatePrincipalsAdded:
		return &InvalidStateError{Op: "cleanup", State: e.state}
	}

	e.logger.Info("Tearing down KDC")
	if err := e.provisioner.Teardown(ctx); err != nil {
		return common.NewExternalServiceError("teardown", e.realm, err)
	}
	e.state = StateTornDown
	return nil
}

// WithEnvironment finalizes env, runs fn and always cleans the environment up
// afterwards, even when ctx has been cancelled. A cleanup failure is logged
// and never replaces fn's result.
func WithEnvironment(ctx context.Context, env *Environment, fn func(ctx context.Context, env *Environment) error) error {
	if err := env.Finalize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := env.Cleanup(context.WithoutCancel(ctx)); err != nil {
			env.logger.Error(err, "Failed to clean up kerberos environment")
		}
	}()
	return fn(ctx, env)
}
