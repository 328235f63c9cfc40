/*
Copyright 2018 Google LLC

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

package util

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultInstallDurationBuckets covers service installs from a few seconds up to the default ready timeout.
var DefaultInstallDurationBuckets = []float64{5, 15, 30, 60, 120, 180, 300, 450, 600, 900}

// DefaultJobStageDurationBuckets covers the launch, start and completion stages of test jobs.
var DefaultJobStageDurationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600}

// HistogramBuckets is a flag value holding comma separated bucket boundaries.
type HistogramBuckets []float64

func (hb *HistogramBuckets) String() string {
	return fmt.Sprint(*hb)
}

func (hb *HistogramBuckets) Set(value string) error {
	var buckets []float64
	for _, boundaryStr := range strings.Split(value, ",") {
		boundary, err := strconv.ParseFloat(strings.TrimSpace(boundaryStr), 64)
		if err != nil {
			return fmt.Errorf("invalid bucket boundary %q: %v", boundaryStr, err)
		}
		if len(buckets) > 0 && boundary <= buckets[len(buckets)-1] {
			return fmt.Errorf("bucket boundaries must be increasing, got %v after %v", boundary, buckets[len(buckets)-1])
		}
		buckets = append(buckets, boundary)
	}
	*hb = buckets
	return nil
}

func (hb *HistogramBuckets) Type() string {
	return "floatSlice"
}
