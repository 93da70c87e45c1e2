package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"Melodix/config"
	"Melodix/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 封装了 MinIO 客户端，绑定到单个存储桶
type MinioClient struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewMinioClient 根据配置创建 MinIO 客户端
func NewMinioClient(cfg *config.Config) (*MinioClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioClient{
		client:     client,
		bucketName: cfg.MinioBucket,
		region:     cfg.MinioRegion,
	}, nil
}

// Bucket returns the bucket this client is bound to.
func (m *MinioClient) Bucket() string {
	return m.bucketName
}

// EnsureBucket 检查存储桶是否存在，不存在则创建
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucketName, err)
	}
	if exists {
		logger.Debug("[MinIO] 存储桶已存在", logger.String("bucket", m.bucketName))
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.bucketName, err)
	}
	logger.Info("[MinIO] 成功创建存储桶", logger.String("bucket", m.bucketName))
	return nil
}

// GetObjectBytes 读取整个对象内容
func (m *MinioClient) GetObjectBytes(ctx context.Context, objectName string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	// GetObject 是惰性的，对象不存在的错误在读取时才出现
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// PutBytes 上传内存中的数据
func (m *MinioClient) PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// PutFile 上传本地文件
func (m *MinioClient) PutFile(ctx context.Context, objectName, path, contentType string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return m.PutBytes(ctx, objectName, data, contentType)
}

// IsNotFound 判断错误是否为对象或存储桶不存在
func IsNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
