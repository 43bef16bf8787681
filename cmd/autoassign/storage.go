package main

import (
	"context"
	"fmt"

	"github.com/sedeops/autoassign/internal/config"
	"github.com/sedeops/autoassign/internal/store"
	"github.com/sedeops/autoassign/internal/store/postgres"
	"github.com/sedeops/autoassign/pkg/storage"
)

func openRepositories(ctx context.Context, env *config.StorageEnv) (*store.Repositories, error) {
	switch env.Type {
	case "postgres":
		repos, err := postgres.Open(ctx, env.DatabaseURL, env.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return repos, nil
	case "s3":
		s, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return store.NewYAMLRepositories(s), nil
	default:
		s, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return store.NewYAMLRepositories(s), nil
	}
}
