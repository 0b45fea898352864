package service

import (
	"bytes"
	"context"
	"fmt"
	"microcourse_backend/internal/config"
	"microcourse_backend/pkg/logger"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore 归档 SOP 原文的对象存储
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// LocalObjectStore 写入本地目录，由 /uploads 静态路由对外提供
type LocalObjectStore struct {
	Root string
}

func (p *LocalObjectStore) path(key string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(key))
	rel, err := filepath.Rel(p.Root, dst)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return dst, nil
}

func (p *LocalObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (p *LocalObjectStore) URL(key string) string {
	return "/uploads/" + strings.TrimPrefix(key, "/")
}

// MinioObjectStore MinIO 实现，启动时确保 bucket 存在
type MinioObjectStore struct {
	Bucket string
	Client *minio.Client
}

func NewMinioObjectStore(ctx context.Context, cfg *config.StorageConfig) (*MinioObjectStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Log.Info("Created MinIO bucket", zap.String("bucket", cfg.MinioBucket))
	}
	return &MinioObjectStore{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioObjectStore) URL(key string) string {
	return "/" + p.Bucket + "/" + key
}

// StorageService 归档上传的 SOP 文件，失败不影响课程生成
type StorageService struct {
	Store ObjectStore
}

func NewStorageService(cfg *config.StorageConfig) *StorageService {
	var store ObjectStore
	if cfg.Type == "minio" {
		s, err := NewMinioObjectStore(context.Background(), cfg)
		if err != nil {
			logger.Log.Warn("MinIO unavailable, falling back to local storage", zap.Error(err))
		} else {
			store = s
		}
	}

	if store == nil {
		store = &LocalObjectStore{Root: cfg.LocalPath}
	}

	return &StorageService{Store: store}
}

// Archive 保存原文并返回可访问的 URL
func (s *StorageService) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.Store.Put(ctx, key, data, contentType); err != nil {
		return "", err
	}
	return s.Store.URL(key), nil
}
