/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 layout: the whole library is one object s3://<bucket>/<key>.
// Keys ending in .lz4 or .xz are compressed like files.

type S3Config struct {
	AccessKeyID     string `yaml:"access_key_id"`     // AWS or S3-compatible access key
	SecretAccessKey string `yaml:"secret_access_key"` // AWS or S3-compatible secret key
	Region          string `yaml:"region"`            // AWS region (e.g., "us-east-1")
	Endpoint        string `yaml:"endpoint"`          // Custom endpoint for S3-compatible storage (MinIO, etc.)
	ForcePathStyle  bool   `yaml:"force_path_style"`  // Use path-style URLs (required for MinIO)
}

type S3Storage struct {
	cfg    S3Config
	bucket string
	key    string
	codec  Codec

	mu     sync.Mutex
	client *s3.Client
}

func NewS3Storage(cfg S3Config, bucket, key string) *S3Storage {
	return &S3Storage{cfg: cfg, bucket: bucket, key: key, codec: CodecFor(key)}
}

func (s *S3Storage) ensureOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s.cfg.AccessKeyID,
				s.cfg.SecretAccessKey,
				"", // session token
			),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		})
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	s.client = s3.NewFromConfig(cfg, s3Opts...)
	return nil
}

func (s *S3Storage) Load(ctx context.Context) ([]byte, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%s: %w", s, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	return decode(s.codec, raw)
}

func (s *S3Storage) Store(ctx context.Context, data []byte) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	raw, err := encode(s.codec, data)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(raw),
	})
	if err != nil {
		return fmt.Errorf("%s: failed to write: %w", s, err)
	}
	return nil
}

func (s *S3Storage) Close() error {
	return nil
}

func (s *S3Storage) String() string {
	return "s3://" + s.bucket + "/" + s.key
}

func init() {
	BackendRegistry["s3"] = func(target, rest string) (Backend, error) {
		bucket, key, err := bucketAndKey(rest)
		if err != nil {
			return nil, err
		}
		return NewS3Storage(Settings.S3, bucket, key), nil
	}
}
