package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/api-client/net-store/internal/logger"
	"github.com/api-client/net-store/pkg/backup"
	"github.com/api-client/net-store/pkg/kv"
	badgerKV "github.com/api-client/net-store/pkg/kv/badger"
	memoryKV "github.com/api-client/net-store/pkg/kv/memory"
)

// CreateKVStore creates a key-value store based on configuration.
//
// This factory uses the Type field to determine which implementation to
// create, then decodes the type-specific options from the corresponding map
// and passes them to the store's constructor.
//
// Supported types:
//   - "memory": in-memory ordered store, ephemeral
//   - "badger": BadgerDB-backed persistent store
func CreateKVStore(ctx context.Context, cfg *StoreConfig) (kv.Store, error) {
	switch cfg.Type {
	case "memory":
		return memoryKV.New(), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(ctx context.Context, options map[string]any) (kv.Store, error) {
	var storeCfg badgerKV.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store options: %w", err)
	}
	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}

	store, err := badgerKV.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return store, nil
}

// CreateBackupTarget creates a snapshot target based on configuration.
//
// Supported types:
//   - "filesystem": snapshots as files in a local directory
//   - "s3": snapshots as objects in an S3 (or compatible) bucket
func CreateBackupTarget(ctx context.Context, cfg *BackupConfig) (backup.Target, error) {
	switch cfg.Type {
	case "filesystem":
		return createFSBackupTarget(cfg.Filesystem)
	case "s3":
		return createS3BackupTarget(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown backup target type: %q (supported: filesystem, s3)", cfg.Type)
	}
}

// createFSBackupTarget creates a local directory target.
func createFSBackupTarget(options map[string]any) (backup.Target, error) {
	type FSBackupConfig struct {
		Path string `mapstructure:"path"`
	}

	var targetCfg FSBackupConfig
	if err := mapstructure.Decode(options, &targetCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem backup options: %w", err)
	}
	if targetCfg.Path == "" {
		return nil, fmt.Errorf("filesystem backup target: path is required")
	}

	target, err := backup.NewFSTarget(targetCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem backup target: %w", err)
	}
	return target, nil
}

// createS3BackupTarget creates an S3 target.
func createS3BackupTarget(ctx context.Context, options map[string]any) (backup.Target, error) {
	type S3BackupConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var targetCfg S3BackupConfig
	if err := mapstructure.Decode(options, &targetCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backup options: %w", err)
	}
	if targetCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 backup target: bucket is required")
	}
	if targetCfg.Region == "" {
		return nil, fmt.Errorf("S3 backup target: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(targetCfg.Region))

	// Custom endpoint supports MinIO, Localstack, and similar
	if targetCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               targetCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if targetCfg.AccessKeyID != "" && targetCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			targetCfg.AccessKeyID,
			targetCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := targetCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility
		if targetCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 backup target initialized: bucket=%s, region=%s, prefix=%s",
		targetCfg.Bucket, targetCfg.Region, targetCfg.KeyPrefix)

	return backup.NewS3Target(client, targetCfg.Bucket, targetCfg.KeyPrefix), nil
}
