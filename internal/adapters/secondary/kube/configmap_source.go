package kube

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"prediction-service/internal/config"
	ports "prediction-service/internal/core/ports/output"
)

const configMapScheme = "configmap://"

var configMapGVR = schema.GroupVersionResource{
	Group:    "",
	Version:  "v1",
	Resource: "configmaps",
}

type configMapSource struct {
	client    dynamic.Interface
	defaultNS string
}

// NewConfigMapSource creates an artifact source reading refs of the form
// configmap://[namespace/]name/key from Kubernetes.
func NewConfigMapSource(cfg *config.KubernetesConfig) (ports.ArtifactSource, error) {
	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	return NewConfigMapSourceWithClient(client, cfg.DefaultNS), nil
}

func NewConfigMapSourceWithClient(client dynamic.Interface, defaultNS string) ports.ArtifactSource {
	if defaultNS == "" {
		defaultNS = "model-serving"
	}
	return &configMapSource{client: client, defaultNS: defaultNS}
}

func (s *configMapSource) Name() string { return "configmap" }

func (s *configMapSource) Supports(ref string) bool {
	return strings.HasPrefix(ref, configMapScheme)
}

func (s *configMapSource) Fetch(ctx context.Context, ref string) (*ports.ArtifactBlob, error) {
	namespace, name, key, err := s.parseRef(ref)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.Resource(configMapGVR).
		Namespace(namespace).
		Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get configmap %s/%s: %w", namespace, name, err)
	}

	data, err := extractKey(obj, key)
	if err != nil {
		return nil, fmt.Errorf("configmap %s/%s: %w", namespace, name, err)
	}

	return &ports.ArtifactBlob{Ref: ref, Data: data, FetchedAt: time.Now()}, nil
}

func (s *configMapSource) parseRef(ref string) (namespace, name, key string, err error) {
	parts := strings.Split(strings.TrimPrefix(ref, configMapScheme), "/")
	for _, p := range parts {
		if p == "" {
			return "", "", "", fmt.Errorf("invalid configmap ref %q", ref)
		}
	}
	switch len(parts) {
	case 2:
		return s.defaultNS, parts[0], parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	}
	return "", "", "", fmt.Errorf("invalid configmap ref %q, expected configmap://[namespace/]name/key", ref)
}

// extractKey reads key from data, falling back to base64 binaryData.
func extractKey(obj *unstructured.Unstructured, key string) ([]byte, error) {
	if value, found, _ := unstructured.NestedString(obj.Object, "data", key); found {
		return []byte(value), nil
	}
	if encoded, found, _ := unstructured.NestedString(obj.Object, "binaryData", key); found {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode binaryData %q: %w", key, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("key %q not found", key)
}

// Ensure interface compliance
var _ ports.ArtifactSource = (*configMapSource)(nil)
