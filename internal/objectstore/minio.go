// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioClient struct {
	client *minio.Client
}

func newMinioClient(cfg Config) (*minioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, dfc.Errorf(dfc.ErrorConfiguration, "%s", err)
	}
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, dfc.Errorf(dfc.ErrorObjectStore, "create s3 client: %s", err)
	}
	return &minioClient{client: c}, nil
}

// parseEndpoint accepts a bare host:port or a URL; an https URL forces
// TLS on.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("endpoint is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Host == "" {
		return "", false, errors.New("endpoint host is required")
	}
	return parsed.Host, parsed.Scheme == "https", nil
}

func (m *minioClient) Download(ctx context.Context, bucket, key, filePath string) error {
	return mapMinioErr(m.client.FGetObject(ctx, bucket, key, filePath, minio.GetObjectOptions{}), bucket, key)
}

func (m *minioClient) Upload(ctx context.Context, bucket, key, filePath, contentType string) error {
	_, err := m.client.FPutObject(ctx, bucket, key, filePath, minio.PutObjectOptions{ContentType: contentType})
	return mapMinioErr(err, bucket, key)
}

func (m *minioClient) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, mapMinioErr(obj.Err, bucket, prefix)
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size, ETag: obj.ETag})
	}
	return out, nil
}

func mapMinioErr(err error, bucket, key string) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NotFound":
			return dfc.Errorf(dfc.ErrorObjectStore, "object s3://%s/%s not found", bucket, key)
		case "NoSuchBucket":
			return dfc.Errorf(dfc.ErrorObjectStore, "bucket %q not found", bucket)
		case "AccessDenied":
			return dfc.Errorf(dfc.ErrorObjectStore, "access denied to s3://%s/%s", bucket, key)
		}
	}
	return err
}
