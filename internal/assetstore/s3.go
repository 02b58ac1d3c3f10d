// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// s3.go wraps the AWS SDK v2 for layer assets and rendered outputs,
// configured for path-style access (required by CEPH/Hetzner). Layer
// sources live in one bucket, finished renders in another.
package assetstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store serves layer rasters from the layers bucket and writes finished
// renders to the renders bucket.
type S3Store struct {
	s3            *s3.Client
	layersBucket  string
	rendersBucket string
	endpoint      string
}

// NewS3Store creates an S3 asset store with static credentials and
// path-style addressing. Returns (nil, nil) if endpoint or credentials are
// empty, allowing the engine to run without object storage.
func NewS3Store(endpoint, region, accessKey, secretKey, layersBucket, rendersBucket string) (*S3Store, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	endpoint = strings.TrimRight(endpoint, "/")

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &S3Store{
		s3:            client,
		layersBucket:  layersBucket,
		rendersBucket: rendersBucket,
		endpoint:      endpoint,
	}, nil
}

// FetchRaster downloads a layer asset. A missing object maps to
// *NotFoundError so callers can treat it as a per-token render failure
// rather than an infrastructure error.
func (s *S3Store) FetchRaster(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.layersBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("s3 fetch %s/%s: %w", s.layersBucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", s.layersBucket, key, err)
	}
	return data, nil
}

// PutRender uploads a finished token image to the renders bucket.
func (s *S3Store) PutRender(ctx context.Context, key string, data []byte) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.rendersBucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/png"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", s.rendersBucket, key, err)
	}
	return nil
}

// RenderURL returns the path-style URL of a stored render.
func (s *S3Store) RenderURL(key string) string {
	return s.endpoint + "/" + s.rendersBucket + "/" + key
}
