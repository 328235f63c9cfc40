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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubeflow/spark-interop/internal/job"
	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/scenario"
)

var _ = Describe("Kafka", Ordered, Label("kafka"), func() {
	ctx := context.Background()
	var (
		opts scenario.KafkaOptions
		env  *kerberos.Environment
	)

	BeforeAll(func() {
		opts = scenario.KafkaOptionsFor(cfg)

		By("Installing Kafka")
		var err error
		env, err = scenario.InstallKafka(ctx, deps, cfg, opts)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			By("Uninstalling Kafka")
			scenario.TeardownKafka(ctx, deps, cfg, opts, env)
		})
	})

	It("should stream words from the producer to the consumer", func() {
		producer, err := scenario.KafkaProducer(cfg, opts, env)
		Expect(err).NotTo(HaveOccurred())
		consumer, expected, err := scenario.KafkaConsumer(cfg, opts, env)
		Expect(err).NotTo(HaveOccurred())

		By("Starting the producer")
		Expect(deps.Jobs.WithJob(ctx, producer, cfg.Jobs.LaunchTimeout, cfg.Jobs.StartTimeout, func(ctx context.Context, _ job.Handle) error {
			By("Running the consumer")
			result, err := deps.Jobs.Run(ctx, consumer, expected, runTimeouts())
			if err != nil {
				return err
			}
			Expect(result.Output).To(ContainSubstring(expected))
			return nil
		})).To(Succeed())
	})
})
