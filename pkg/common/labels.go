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

const (
	// LabelAppInstance selects the tasks that belong to an installed service.
	LabelAppInstance = "app.kubernetes.io/instance"

	// LabelAppName is the standard Kubernetes application name label.
	LabelAppName = "app.kubernetes.io/name"

	// LabelManagedBy marks objects created by this harness.
	LabelManagedBy = "app.kubernetes.io/managed-by"

	// LabelJobAppName records the application (dispatcher) name a job was submitted under.
	LabelJobAppName = "spark-interop.kubeflow.org/app-name"

	// ManagedByValue is the value of LabelManagedBy.
	ManagedByValue = "spark-interop"
)
