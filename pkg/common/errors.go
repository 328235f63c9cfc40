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

package common

import "fmt"

// ExternalServiceError wraps an opaque failure returned by a collaborator
// (package manager, cluster status, job platform or KDC) with the operation
// and target it was issued against.
type ExternalServiceError struct {
	Op     string
	Target string
	Err    error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError returns nil when err is nil.
func NewExternalServiceError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Op: op, Target: target, Err: err}
}
