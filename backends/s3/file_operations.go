package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/backends"
	"github.com/ebogdum/filesmanager/internal/pathutil"
	"github.com/ebogdum/filesmanager/metadata"
)

// Open opens a blob for reading
func (a *S3Adapter) Open(ctx context.Context, key string) (*backends.Blob, error) {
	if err := pathutil.ValidateKey(key); err != nil {
		return nil, err
	}

	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, metadata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	a.logger.Debug("Blob opened from S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))

	size := int64(-1)
	if result.ContentLength != nil {
		size = aws.Int64Value(result.ContentLength)
	}
	return &backends.Blob{ReadCloser: result.Body, Size: size}, nil
}

// Create uploads a new blob
func (a *S3Adapter) Create(ctx context.Context, key string, reader io.Reader, size int64) error {
	if err := pathutil.ValidateKey(key); err != nil {
		return err
	}

	body, ok := reader.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("failed to read data: %w", err)
		}
		body = bytes.NewReader(data)
	}

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(a.objectKey(key)),
		Body:        body,
		ContentType: aws.String("application/octet-stream"),
	}

	if a.serverSideEncryption != "" {
		putInput.ServerSideEncryption = aws.String(a.serverSideEncryption)
		if a.serverSideEncryption == "aws:kms" && a.kmsKeyID != "" {
			putInput.SSEKMSKeyId = aws.String(a.kmsKeyID)
		}
	}

	if a.acl != "" {
		putInput.ACL = aws.String(a.acl)
	}

	if _, err := a.client.PutObjectWithContext(ctx, putInput); err != nil {
		return fmt.Errorf("failed to put object to S3: %w", err)
	}

	a.logger.Debug("Blob created in S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key),
		zap.Int64("size", size))

	return nil
}

// Delete removes a blob
func (a *S3Adapter) Delete(ctx context.Context, key string) error {
	if err := pathutil.ValidateKey(key); err != nil {
		return err
	}

	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	a.logger.Debug("Blob deleted from S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))

	return nil
}
