package service

import (
	"context"
	"fmt"

	"app/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretService fetches runtime secrets (the JWT signing secret in
// production) from GCP Secret Manager.
type SecretService interface {
	AccessSecret(ctx context.Context, name string) (string, error)
}

type secretService struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretService creates a Secret Manager-backed SecretService.
func NewSecretService(ctx context.Context, cfg *config.Config) (SecretService, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	var opts []option.ClientOption
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretService{client: client, projectID: cfg.GCPProjectID}, nil
}

// AccessSecret returns the latest version of the named secret.
func (s *secretService) AccessSecret(ctx context.Context, name string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	return string(result.Payload.Data), nil
}
