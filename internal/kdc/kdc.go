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

// Package kdc provisions a throwaway Kerberos KDC inside a Kubernetes
// namespace and issues keytabs for the principals registered with it.
package kdc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kubeflow/spark-interop/internal/kerberos"
	"github.com/kubeflow/spark-interop/internal/wait"
	"github.com/kubeflow/spark-interop/pkg/common"
)

const (
	DefaultName             = "kdc"
	DefaultImage            = "docker.io/gcavalcante8808/krb5-server:latest"
	DefaultPort             = 2500
	DefaultKeytabSecretName = "kerberos-keytab"
	DefaultClusterDomain    = "cluster.local"
	DefaultPollInterval     = 2 * time.Second
	DefaultReadyTimeout     = 5 * time.Minute

	principalsKey       = "principals"
	principalsMountPath = "/etc/kdc"
)

// Options configures the Kubernetes KDC.
type Options struct {
	Name             string
	Namespace        string
	Image            string
	Port             int32
	KeytabSecretName string
	ClusterDomain    string
	PollInterval     time.Duration
	ReadyTimeout     time.Duration
}

func (o *Options) setDefaults() {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Namespace == "" {
		o.Namespace = corev1.NamespaceDefault
	}
	if o.Image == "" {
		o.Image = DefaultImage
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.KeytabSecretName == "" {
		o.KeytabSecretName = DefaultKeytabSecretName
	}
	if o.ClusterDomain == "" {
		o.ClusterDomain = DefaultClusterDomain
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
}

// Provisioner runs a KDC as a Deployment behind a Service. Principals are
// bootstrapped into the KDC from a Secret holding "principal password"
// lines; the matching keytab is stored in a second Secret that services and
// Spark jobs mount.
type Provisioner struct {
	client  client.Client
	options Options
	logger  logr.Logger

	realm      string
	principals []string
	keys       *KeySet
}

var _ kerberos.Provisioner = &Provisioner{}

// NewProvisioner returns a Provisioner operating through c.
func NewProvisioner(c client.Client, options Options) *Provisioner {
	options.setDefaults()
	return &Provisioner{
		client:  c,
		options: options,
		logger:  ctrl.Log.WithName("kdc").WithValues("namespace", options.Namespace, "name", options.Name),
	}
}

// WithLogger replaces the logger of the Provisioner.
func (p *Provisioner) WithLogger(logger logr.Logger) *Provisioner {
	p.logger = logger
	return p
}

// CreateRealm creates the KDC Service and returns its cluster DNS address.
func (p *Provisioner) CreateRealm(ctx context.Context, realm string) (kerberos.Endpoint, error) {
	p.realm = realm
	svc := &corev1.Service{
		ObjectMeta: p.objectMeta(p.options.Name),
		Spec: corev1.ServiceSpec{
			Selector: p.selector(),
			Ports: []corev1.ServicePort{
				{
					Name:       "kdc-tcp",
					Protocol:   corev1.ProtocolTCP,
					Port:       p.options.Port,
					TargetPort: intstr.FromInt32(p.options.Port),
				},
				{
					Name:       "kdc-udp",
					Protocol:   corev1.ProtocolUDP,
					Port:       p.options.Port,
					TargetPort: intstr.FromInt32(p.options.Port),
				},
			},
		},
	}
	if err := p.client.Create(ctx, svc); err != nil {
		return kerberos.Endpoint{}, fmt.Errorf("failed to create KDC service: %v", err)
	}
	p.logger.Info("Created KDC service", "realm", realm)

	return kerberos.Endpoint{
		Host: fmt.Sprintf("%s.%s.svc.%s", p.options.Name, p.options.Namespace, p.options.ClusterDomain),
		Port: int(p.options.Port),
	}, nil
}

// RegisterPrincipal records principal for the keytab issued by IssueKeytab.
func (p *Provisioner) RegisterPrincipal(_ context.Context, principal string) error {
	if err := kerberos.ValidatePrincipal(principal); err != nil {
		return err
	}
	p.principals = append(p.principals, principal)
	return nil
}

// IssueKeytab generates credentials for every registered principal, stores
// them in Secrets, starts the KDC and waits for it to become available. It
// returns the name of the keytab Secret.
func (p *Provisioner) IssueKeytab(ctx context.Context) (string, error) {
	if p.realm == "" {
		return "", fmt.Errorf("realm has not been created")
	}

	keys, err := GenerateKeySet(p.principals)
	if err != nil {
		return "", err
	}
	keytab, err := keys.Keytab(time.Now())
	if err != nil {
		return "", err
	}
	p.keys = keys

	principalsSecret := &corev1.Secret{
		ObjectMeta: p.objectMeta(p.principalsSecretName()),
		Data:       map[string][]byte{principalsKey: keys.Bootstrap()},
	}
	if err := p.client.Create(ctx, principalsSecret); err != nil {
		return "", fmt.Errorf("failed to create KDC principals secret: %v", err)
	}

	keytabSecret := &corev1.Secret{
		ObjectMeta: p.objectMeta(p.options.KeytabSecretName),
		Data:       map[string][]byte{common.KerberosKeytabFileName: keytab},
	}
	if err := p.client.Create(ctx, keytabSecret); err != nil {
		return "", fmt.Errorf("failed to create keytab secret: %v", err)
	}

	if err := p.client.Create(ctx, p.deployment()); err != nil {
		return "", fmt.Errorf("failed to create KDC deployment: %v", err)
	}

	p.logger.Info("Waiting for KDC to become available", "principals", len(p.principals))
	if err := p.waitForAvailable(ctx); err != nil {
		return "", err
	}
	return p.options.KeytabSecretName, nil
}

// Teardown deletes every object created for the realm. Objects that do not
// exist are ignored.
func (p *Provisioner) Teardown(ctx context.Context) error {
	objects := []client.Object{
		&appsv1.Deployment{ObjectMeta: p.objectMeta(p.options.Name)},
		&corev1.Service{ObjectMeta: p.objectMeta(p.options.Name)},
		&corev1.Secret{ObjectMeta: p.objectMeta(p.principalsSecretName())},
		&corev1.Secret{ObjectMeta: p.objectMeta(p.options.KeytabSecretName)},
	}
	for _, obj := range objects {
		if err := p.client.Delete(ctx, obj); client.IgnoreNotFound(err) != nil {
			return fmt.Errorf("failed to delete %T %s: %v", obj, obj.GetName(), err)
		}
	}
	p.principals = nil
	p.keys = nil
	p.logger.Info("Deleted KDC resources")
	return nil
}

// Keys returns the credentials issued by the last IssueKeytab call.
func (p *Provisioner) Keys() *KeySet {
	return p.keys
}

func (p *Provisioner) waitForAvailable(ctx context.Context) error {
	key := types.NamespacedName{Namespace: p.options.Namespace, Name: p.options.Name}
	err := wait.Poll(ctx, p.options.PollInterval, p.options.ReadyTimeout, func(ctx context.Context) (bool, error) {
		deployment := &appsv1.Deployment{}
		if err := p.client.Get(ctx, key, deployment); err != nil {
			return false, client.IgnoreNotFound(err)
		}
		return deployment.Status.AvailableReplicas >= 1, nil
	})
	if err != nil {
		return fmt.Errorf("KDC deployment %s did not become available: %w", key, err)
	}
	return nil
}

func (p *Provisioner) deployment() *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: p.objectMeta(p.options.Name),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{MatchLabels: p.selector()},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: p.selector()},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "kdc",
							Image: p.options.Image,
							Env: []corev1.EnvVar{
								{Name: "KRB5_REALM", Value: p.realm},
								{Name: "KRB5_KDC_PORT", Value: fmt.Sprintf("%d", p.options.Port)},
								{Name: "KRB5_PRINCIPALS_FILE", Value: principalsMountPath + "/" + principalsKey},
							},
							Ports: []corev1.ContainerPort{
								{Name: "kdc-tcp", ContainerPort: p.options.Port, Protocol: corev1.ProtocolTCP},
								{Name: "kdc-udp", ContainerPort: p.options.Port, Protocol: corev1.ProtocolUDP},
							},
							ReadinessProbe: &corev1.Probe{
								ProbeHandler: corev1.ProbeHandler{
									TCPSocket: &corev1.TCPSocketAction{Port: intstr.FromInt32(p.options.Port)},
								},
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: "principals", MountPath: principalsMountPath, ReadOnly: true},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "principals",
							VolumeSource: corev1.VolumeSource{
								Secret: &corev1.SecretVolumeSource{SecretName: p.principalsSecretName()},
							},
						},
					},
				},
			},
		},
	}
}

func (p *Provisioner) principalsSecretName() string {
	return p.options.Name + "-principals"
}

func (p *Provisioner) selector() map[string]string {
	return map[string]string{
		common.LabelAppName:     "kdc",
		common.LabelAppInstance: p.options.Name,
	}
}

func (p *Provisioner) objectMeta(name string) metav1.ObjectMeta {
	labels := p.selector()
	labels[common.LabelManagedBy] = common.ManagedByValue
	return metav1.ObjectMeta{
		Name:      name,
		Namespace: p.options.Namespace,
		Labels:    labels,
	}
}
