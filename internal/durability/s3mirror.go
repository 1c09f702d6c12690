// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package durability

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/zedis/zedis/pkg/log"
)

// S3Mirror uploads the snapshot file to a bucket after every successful
// SAVE, an optional remote-durability bolt-on: write locally first,
// mirror best-effort.
type S3Mirror struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Mirror loads the default AWS credential chain (environment,
// shared config, EC2/ECS role) via config.LoadDefaultConfig.
func NewS3Mirror(ctx context.Context, bucket, key string) (*S3Mirror, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("durability: load AWS config: %w", err)
	}
	return &S3Mirror{client: s3.NewFromConfig(cfg), bucket: bucket, key: key}, nil
}

// Mirror uploads the snapshot at localPath, logging (never failing the
// caller's SAVE) on error — remote mirroring is best-effort.
func (m *S3Mirror) Mirror(ctx context.Context, localPath string) {
	f, err := os.Open(localPath)
	if err != nil {
		log.Warnf("durability: s3mirror: open %s: %s", localPath, err)
		return
	}
	defer f.Close()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key),
		Body:   f,
	})
	if err != nil {
		log.Warnf("durability: s3mirror: upload to s3://%s/%s failed: %s", m.bucket, m.key, err)
		return
	}
	log.Infof("durability: mirrored snapshot to s3://%s/%s", m.bucket, m.key)
}
