// Package storage writes finalized call recordings to their configured
// destination, dispatching on the output URI's scheme.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Writer persists a finalized recording's bytes to outputURI.
type Writer interface {
	Write(ctx context.Context, outputURI string, data []byte) error
}

// Config carries the object-store connection details needed by the s3://
// scheme; file:// needs none.
type Config struct {
	S3Endpoint  string
	S3Region    string
	UsePathStyle bool
}

// dispatcher routes a write to the file or S3 writer based on URI scheme.
type dispatcher struct {
	file *fileWriter
	s3   *s3Writer
}

// New builds a Writer that understands file:// and s3:// output URIs. The
// S3 client is constructed lazily on first use of an s3:// URI so a
// deployment with only local recordings never needs AWS credentials.
func New(cfg Config) Writer {
	return &dispatcher{
		file: &fileWriter{},
		s3:   &s3Writer{cfg: cfg},
	}
}

func (d *dispatcher) Write(ctx context.Context, outputURI string, data []byte) error {
	switch {
	case strings.HasPrefix(outputURI, "file://"):
		return d.file.Write(ctx, outputURI, data)
	case strings.HasPrefix(outputURI, "s3://"):
		return d.s3.Write(ctx, outputURI, data)
	default:
		return fmt.Errorf("storage: unsupported recording URI scheme: %s", outputURI)
	}
}

type fileWriter struct{}

func (fileWriter) Write(_ context.Context, outputURI string, data []byte) error {
	path := strings.TrimPrefix(outputURI, "file://")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

type s3Writer struct {
	cfg    Config
	client *s3.Client
}

// s3URI is bucket/key split from an "s3://bucket/key" URI.
type s3URI struct {
	bucket string
	key    string
}

func parseS3URI(uri string) (s3URI, error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return s3URI{}, fmt.Errorf("storage: malformed s3 URI: %s", uri)
	}
	return s3URI{bucket: parts[0], key: parts[1]}, nil
}

func (w *s3Writer) Write(ctx context.Context, outputURI string, data []byte) error {
	loc, err := parseS3URI(outputURI)
	if err != nil {
		return err
	}
	client, err := w.ensureClient(ctx)
	if err != nil {
		return fmt.Errorf("storage: building s3 client: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(loc.bucket),
		Key:    aws.String(loc.key),
		Body:   bytesReader(data),
	})
	if err != nil {
		return classifyS3Error(loc.bucket, err)
	}
	return nil
}

func (w *s3Writer) ensureClient(ctx context.Context) (*s3.Client, error) {
	if w.client != nil {
		return w.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(w.cfg.S3Region))
	if err != nil {
		return nil, err
	}
	w.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if w.cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(w.cfg.S3Endpoint)
		}
		o.UsePathStyle = w.cfg.UsePathStyle
	})
	return w.client, nil
}
