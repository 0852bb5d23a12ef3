// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3Uploader.
type S3Options struct {
	Bucket string
	Region string

	// Prefix is prepended to every object key
	Prefix string

	// PublicBaseURL, when set, is used to build object URLs instead of the
	// virtual-hosted S3 URL (e.g. a CDN in front of the bucket)
	PublicBaseURL string

	// Endpoint overrides the S3 endpoint (S3-compatible stores)
	Endpoint string

	// PathStyle forces path-style addressing
	PathStyle bool
}

// S3Uploader stores images in an S3 bucket.
type S3Uploader struct {
	client PutObjectAPI
	opts   S3Options
}

// NewS3Uploader creates an uploader around an existing client.
func NewS3Uploader(client PutObjectAPI, opts S3Options) *S3Uploader {
	return &S3Uploader{client: client, opts: opts}
}

// NewS3UploaderFromEnv creates an uploader using the default AWS credential chain.
func NewS3UploaderFromEnv(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if opts.Region == "" {
		opts.Region = awsCfg.Region
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewS3Uploader(client, opts), nil
}

// Upload implements Uploader with a single PutObject call.
func (u *S3Uploader) Upload(ctx context.Context, up Upload) (string, error) {
	if u.opts.Bucket == "" {
		return "", fmt.Errorf("%w: no bucket configured", ErrUploadFailed)
	}

	key := u.objectKey(up.Name, up.Unique)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(up.Data),
		ContentType:   aws.String(up.MIMEType),
		ContentLength: aws.Int64(int64(len(up.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put s3://%s/%s: %v", ErrUploadFailed, u.opts.Bucket, key, err)
	}
	return u.objectURL(key), nil
}

func (u *S3Uploader) objectKey(name string, unique bool) string {
	name = strings.ReplaceAll(path.Base(strings.TrimSpace(name)), " ", "-")
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	if unique {
		name = uuid.NewString() + "-" + name
	}
	return strings.TrimPrefix(path.Join(u.opts.Prefix, name), "/")
}

func (u *S3Uploader) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	escaped := strings.Join(segments, "/")

	if u.opts.PublicBaseURL != "" {
		return strings.TrimSuffix(u.opts.PublicBaseURL, "/") + "/" + escaped
	}
	region := u.opts.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.opts.Bucket, region, escaped)
}
