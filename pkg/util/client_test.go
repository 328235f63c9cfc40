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

package util_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeflow/spark-operator/v2/api/v1beta2"

	"github.com/kubeflow/spark-interop/pkg/util"
)

var _ = Describe("Scheme", func() {
	It("Should recognize core types", func() {
		gvks, _, err := util.Scheme().ObjectKinds(&corev1.Pod{})
		Expect(err).NotTo(HaveOccurred())
		Expect(gvks).To(HaveLen(1))
		Expect(gvks[0].Kind).To(Equal("Pod"))
	})

	It("Should recognize SparkApplications", func() {
		gvks, _, err := util.Scheme().ObjectKinds(&v1beta2.SparkApplication{})
		Expect(err).NotTo(HaveOccurred())
		Expect(gvks).To(HaveLen(1))
		Expect(gvks[0].Group).To(Equal("sparkoperator.k8s.io"))
		Expect(gvks[0].Kind).To(Equal("SparkApplication"))
	})
})

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: interop
  cluster:
    server: https://interop.example.com:6443
contexts:
- name: interop
  context:
    cluster: interop
    user: interop
current-context: interop
users:
- name: interop
  user:
    token: secret
`

var _ = Describe("Clients", func() {
	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "kubeconfig")
		Expect(os.WriteFile(path, []byte(testKubeconfig), 0o600)).To(Succeed())

		previous, set := os.LookupEnv("KUBECONFIG")
		Expect(os.Setenv("KUBECONFIG", path)).To(Succeed())
		DeferCleanup(func() {
			if set {
				_ = os.Setenv("KUBECONFIG", previous)
			} else {
				_ = os.Unsetenv("KUBECONFIG")
			}
		})
	})

	It("Should resolve the rest config from $KUBECONFIG", func() {
		cfg, err := util.GetRestConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Host).To(Equal("https://interop.example.com:6443"))
		Expect(cfg.BearerToken).To(Equal("secret"))
	})

	It("Should build a clientset from the same config", func() {
		clientset, err := util.GetClientset()
		Expect(err).NotTo(HaveOccurred())
		Expect(clientset).NotTo(BeNil())
	})
})
