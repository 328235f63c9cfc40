/*
Copyright 2024 The Kubeflow authors.

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

// Orchestration metric names.
const (
	MetricServiceInstallCount = "service_install_count"

	MetricServiceInstallFailureCount = "service_install_failure_count"

	MetricServiceInstallDurationSeconds = "service_install_duration_seconds"

	MetricJobSubmitCount = "job_submit_count"

	MetricJobFailedCount = "job_failed_count"

	MetricJobStageDurationSeconds = "job_stage_duration_seconds"

	MetricPollTimeoutCount = "poll_timeout_count"
)

// Metric label names.
const (
	MetricLabelPackage = "package"

	MetricLabelService = "service"

	MetricLabelStage = "stage"

	MetricLabelOperation = "operation"
)
