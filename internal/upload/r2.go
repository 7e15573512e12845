// Package upload mirrors downloaded PDFs to Cloudflare R2 so notifications
// can link a stable copy instead of the origin site.
package upload

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// contentTypes maps file extensions to the Content-Type stored with the
// object; unknown extensions fall back to octet-stream.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain; charset=utf-8",
}

// Credentials holds the R2 account settings. All fields are required for the
// uploader to be enabled.
type Credentials struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Domain is the public hostname objects are served from.
	Domain string
}

func (c Credentials) complete() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" &&
		c.Bucket != "" && c.Domain != ""
}

// objectPutter is the slice of the S3 API the uploader needs; tests provide
// a fake.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Uploader uploads files to a Cloudflare R2 bucket through its S3 API.
// A zero-credential uploader is disabled and silently skips uploads: R2 is
// an optional mirror, not a required step.
type R2Uploader struct {
	client  objectPutter
	bucket  string
	domain  string
	enabled bool
	log     *zap.Logger
}

// NewR2Uploader creates the uploader. Incomplete credentials produce a
// disabled uploader and a warning, not an error.
func NewR2Uploader(ctx context.Context, creds Credentials, log *zap.Logger) (*R2Uploader, error) {
	if !creds.complete() {
		log.Warn("r2 upload disabled: credentials not configured")
		return &R2Uploader{log: log}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build r2 client config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", creds.AccountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	log.Info("r2 uploader initialized",
		zap.String("bucket", creds.Bucket),
		zap.String("domain", creds.Domain))
	return &R2Uploader{
		client:  client,
		bucket:  creds.Bucket,
		domain:  strings.TrimSuffix(creds.Domain, "/"),
		enabled: true,
		log:     log,
	}, nil
}

// Enabled reports whether uploads will actually happen.
func (u *R2Uploader) Enabled() bool {
	return u.enabled
}

// UploadFile stores localPath under key and returns the public URL.
// Returns "" with no error when the uploader is disabled.
func (u *R2Uploader) UploadFile(ctx context.Context, localPath, key string) (string, error) {
	if !u.enabled {
		return "", nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeFor(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to r2: %w", key, err)
	}

	publicURL := u.PublicURL(key)
	u.log.Info("uploaded to r2", zap.String("key", key), zap.String("url", publicURL))
	return publicURL, nil
}

// PublicURL returns the serving URL for an object key.
func (u *R2Uploader) PublicURL(key string) string {
	escaped := url.PathEscape(key)
	// Keep path separators readable.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return fmt.Sprintf("https://%s/%s", u.domain, escaped)
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
