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

package pkgmgr

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	kubefake "helm.sh/helm/v3/pkg/kube/fake"
	"helm.sh/helm/v3/pkg/storage"
	"helm.sh/helm/v3/pkg/storage/driver"

	"github.com/kubeflow/spark-interop/pkg/common"
)

const configMapTemplate = `apiVersion: v1
kind: ConfigMap
metadata:
  name: {{ .Release.Name }}
data:
  kerberos: {{ .Values.service.kerberos.enabled | quote }}
`

func newTestChart() *chart.Chart {
	return &chart.Chart{
		Metadata: &chart.Metadata{
			APIVersion: chart.APIVersionV2,
			Name:       "kafka",
			Version:    "1.2.3",
		},
		Values: map[string]any{
			"service": map[string]any{
				"name": "kafka",
				"kerberos": map[string]any{
					"enabled": false,
					"realm":   "EXAMPLE.COM",
				},
			},
			"brokers": map[string]any{"count": 3},
		},
		Templates: []*chart.File{
			{Name: "templates/configmap.yaml", Data: []byte(configMapTemplate)},
		},
	}
}

func newTestHelm(t *testing.T) (*Helm, *action.Configuration) {
	t.Helper()
	config := &action.Configuration{
		Releases:     storage.Init(driver.NewMemory()),
		KubeClient:   &kubefake.PrintingKubeClient{Out: io.Discard},
		Capabilities: chartutil.DefaultCapabilities,
		Log:          func(string, ...interface{}) {},
	}
	h := NewHelm("spark-interop", nil).
		WithActionConfig(config).
		WithLogger(logr.Discard()).
		WithChartLoader(func(options *action.ChartPathOptions, packageName string) (*chart.Chart, error) {
			if packageName != "kafka" {
				return nil, errors.New("chart not found")
			}
			return newTestChart(), nil
		})
	return h, config
}

func TestHelmInstallAndUninstall(t *testing.T) {
	ctx := context.Background()
	h, config := newTestHelm(t)

	overlay := map[string]any{
		"service": map[string]any{
			"kerberos": map[string]any{"enabled": true},
		},
	}
	require.NoError(t, h.Install(ctx, "kafka", "", "secure-kafka", overlay))

	rel, err := config.Releases.Last("secure-kafka")
	require.NoError(t, err)
	assert.Equal(t, "spark-interop", rel.Namespace)
	assert.Contains(t, rel.Manifest, `kerberos: "true"`)
	assert.Equal(t, "EXAMPLE.COM", rel.Config["service"].(map[string]any)["kerberos"].(map[string]any)["realm"])

	require.NoError(t, h.Uninstall(ctx, "kafka", "secure-kafka"))
	_, err = config.Releases.Last("secure-kafka")
	assert.Error(t, err)
}

func TestHelmUninstallMissingRelease(t *testing.T) {
	h, _ := newTestHelm(t)

	err := h.Uninstall(context.Background(), "kafka", "kafka")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHelmInstallUnknownPackage(t *testing.T) {
	h, _ := newTestHelm(t)

	err := h.Install(context.Background(), "zookeeper", "", "zk", nil)
	require.Error(t, err)
	var extErr *common.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "load package", extErr.Op)
	assert.Equal(t, "zookeeper", extErr.Target)
}

func TestHelmInstallExistingRelease(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHelm(t)

	require.NoError(t, h.Install(ctx, "kafka", "", "kafka", nil))
	err := h.Install(ctx, "kafka", "", "kafka", nil)
	require.Error(t, err)
	var extErr *common.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "install", extErr.Op)
}

func TestMergeOptions(t *testing.T) {
	defaults := map[string]any{
		"service": map[string]any{
			"name":  "hdfs",
			"count": 3,
			"kerberos": map[string]any{
				"enabled": false,
				"realm":   "EXAMPLE.COM",
			},
		},
		"data": map[string]any{"cpus": 1},
	}
	overlay := map[string]any{
		"service": map[string]any{
			"kerberos": map[string]any{
				"enabled":       true,
				"kdc_host_port": 2500,
			},
		},
	}

	merged := MergeOptions(defaults, overlay)
	assert.Equal(t, map[string]any{
		"service": map[string]any{
			"name":  "hdfs",
			"count": 3,
			"kerberos": map[string]any{
				"enabled":       true,
				"realm":         "EXAMPLE.COM",
				"kdc_host_port": 2500,
			},
		},
		"data": map[string]any{"cpus": 1},
	}, merged)

	assert.Equal(t, false, defaults["service"].(map[string]any)["kerberos"].(map[string]any)["enabled"])
	_, ok := overlay["service"].(map[string]any)["name"]
	assert.False(t, ok)
}

func TestMergeOptionsEmpty(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1}, MergeOptions(map[string]any{"a": 1}, nil))
	assert.Equal(t, map[string]any{"a": 2}, MergeOptions(nil, map[string]any{"a": 2}))
	assert.Empty(t, MergeOptions(nil, nil))
}
