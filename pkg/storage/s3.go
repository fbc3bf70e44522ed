// Package storage keeps event cover images in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// MaxCoverFileSize is the maximum allowed size for a cover image (10MB).
	MaxCoverFileSize = 10 * 1024 * 1024
	// FolderCovers is the S3 prefix for cover image objects.
	FolderCovers = "covers"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	CoversBucket    string
	DefaultCoverKey string
}

// S3 stores and serves cover images.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger

	mu            sync.Mutex
	cachedDefault []byte
}

// NewS3 creates an S3 client using credentials from config or .env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		if logger != nil {
			logger.Info("S3 client using credentials from .env/config",
				zap.String("region", cfg.Region), zap.String("covers_bucket", cfg.CoversBucket))
		}
	} else if logger != nil {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// CoverKey returns the S3 object key for a channel's cover image.
func CoverKey(channelID int64) string {
	return path.Join(FolderCovers, strconv.FormatInt(channelID, 10)+".png")
}

// PutCover uploads a cover image for an event channel.
func (s *S3) PutCover(ctx context.Context, channelID int64, contentType string, data []byte) (string, error) {
	if len(data) > MaxCoverFileSize {
		return "", fmt.Errorf("cover image exceeds %d bytes", MaxCoverFileSize)
	}
	key := CoverKey(channelID)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.CoversBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.CoversBucket, s.cfg.Region, key), nil
}

// GetCover fetches a channel's cover image, or nil when none is stored.
func (s *S3) GetCover(ctx context.Context, channelID int64) ([]byte, error) {
	return s.getObject(ctx, CoverKey(channelID))
}

// DeleteCover removes a channel's cover image.
func (s *S3) DeleteCover(ctx context.Context, channelID int64) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.CoversBucket),
		Key:    aws.String(CoverKey(channelID)),
	})
	if err != nil {
		return fmt.Errorf("delete cover: %w", err)
	}
	return nil
}

// Default returns the fallback cover image used when an event has none.
// The object is fetched once and cached for the process lifetime.
func (s *S3) Default(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cachedDefault != nil {
		return s.cachedDefault, nil
	}
	data, err := s.getObject(ctx, s.cfg.DefaultCoverKey)
	if err != nil {
		return nil, err
	}
	s.cachedDefault = data
	return data, nil
}

func (s *S3) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.CoversBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}
