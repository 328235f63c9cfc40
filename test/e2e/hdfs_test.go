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

package e2e_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jcmturner/gokrb5/v8/keytab"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/scenario"
	"github.com/kubeflow/spark-interop/pkg/common"
)

var _ = Describe("Kerberized HDFS", Ordered, Label("hdfs"), func() {
	ctx := context.Background()
	var env *kerberos.Environment

	BeforeAll(func() {
		By("Provisioning Kerberos and installing HDFS")
		var err error
		env, err = scenario.HDFSWithKerberos(ctx, deps, cfg)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			By("Uninstalling HDFS and tearing down Kerberos")
			scenario.TeardownHDFS(ctx, deps, cfg, env)
			Expect(env.State()).To(Equal(kerberos.StateTornDown))
		})
	})

	It("should issue a keytab holding every HDFS principal", func() {
		secret := &corev1.Secret{}
		key := types.NamespacedName{Namespace: cfg.Namespace, Name: cfg.Kerberos.KDC.KeytabSecret}
		Expect(k8sClient.Get(ctx, key, secret)).To(Succeed())

		kt := keytab.New()
		Expect(kt.Unmarshal(secret.Data[common.KerberosKeytabFileName])).To(Succeed())
		var issued []string
		for _, entry := range kt.Entries {
			issued = append(issued, strings.Join(entry.Principal.Components, "/")+"@"+entry.Principal.Realm)
		}
		principals, err := scenario.HDFSPrincipals(cfg)
		Expect(err).NotTo(HaveOccurred())
		for _, principal := range principals {
			Expect(issued).To(ContainElement(principal))
		}
	})

	It("should run teragen, terasort and teravalidate", func() {
		cases, err := scenario.TerasortJobs(cfg, env)
		Expect(err).NotTo(HaveOccurred())

		for _, c := range cases {
			By("Running " + c.Name)
			result, err := deps.Jobs.Run(ctx, c.Spec, c.ExpectedOutput, runTimeouts())
			Expect(err).NotTo(HaveOccurred())
			if c.ExpectedOutput != "" {
				Expect(result.Output).To(ContainSubstring(c.ExpectedOutput))
			}
		}
	})
})
