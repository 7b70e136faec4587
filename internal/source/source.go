// Package source loads pricing tables from HTTP endpoints, S3 objects or
// local files, and publishes collected tables back to files or S3.
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ppiankov/regioncost/internal/pricing"
)

// DefaultTimeout bounds a single HTTP fetch when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxPayload caps how much of a pricing document is read into memory.
const maxPayload = 32 << 20

// ObjectAPI is the subset of the S3 client used for pricing documents.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures how a location is read or written.
type Options struct {
	Timeout time.Duration
	Retries int
	// S3 is required for s3:// locations.
	S3 ObjectAPI
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// Source fetches a pricing table.
type Source interface {
	Fetch(ctx context.Context) (*pricing.Table, error)
	Location() string
}

// New returns a Source for the given location: http(s):// URLs, s3:// URIs,
// or a local file path.
func New(location string, opts Options) (Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, errors.New("pricing source is empty")
	case isHTTP(location):
		return newHTTPSource(location, opts), nil
	case IsS3(location):
		bucket, key, err := ParseS3URI(location)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("invalid S3 URI %s: missing object key", location)
		}
		if opts.S3 == nil {
			return nil, fmt.Errorf("source %s: S3 client not configured", location)
		}
		return &s3Source{api: opts.S3, bucket: bucket, key: key}, nil
	default:
		return &fileSource{path: location}, nil
	}
}

// IsS3 reports whether location is an s3:// URI.
func IsS3(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

func isHTTP(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(uri string) (string, string, error) {
	if !IsS3(uri) {
		return "", "", fmt.Errorf("invalid S3 URI: must start with 's3://'")
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "s3://"), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URI: missing bucket name")
	}

	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}
	return parts[0], key, nil
}

type httpSource struct {
	url    string
	client *retryablehttp.Client
}

func newHTTPSource(url string, opts Options) *httpSource {
	client := retryablehttp.NewClient()
	client.RetryMax = max(opts.Retries, 0)
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = slog.Default()
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.HTTPClient.Timeout = timeout

	return &httpSource{url: url, client: client}
}

func (s *httpSource) Location() string { return s.url }

func (s *httpSource) Fetch(ctx context.Context) (*pricing.Table, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", s.url, resp.StatusCode)
	}

	data, err := readPayload(resp.Body, strings.HasSuffix(s.url, ".gz"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.url, err)
	}
	slog.Debug("Fetched pricing document", "url", s.url, "bytes", len(data))
	return pricing.Parse(data)
}

type s3Source struct {
	api    ObjectAPI
	bucket string
	key    string
}

func (s *s3Source) Location() string { return "s3://" + s.bucket + "/" + s.key }

func (s *s3Source) Fetch(ctx context.Context) (*pricing.Table, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Location(), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := readPayload(out.Body, strings.HasSuffix(s.key, ".gz"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Location(), err)
	}
	slog.Debug("Fetched pricing object", "bucket", s.bucket, "key", s.key, "bytes", len(data))
	return pricing.Parse(data)
}

type fileSource struct {
	path string
}

func (s *fileSource) Location() string { return s.path }

func (s *fileSource) Fetch(_ context.Context) (*pricing.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open pricing file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := readPayload(f, strings.HasSuffix(s.path, ".gz"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return pricing.Parse(data)
}

func readPayload(r io.Reader, gzipped bool) ([]byte, error) {
	if gzipped {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	data, err := io.ReadAll(io.LimitReader(r, maxPayload+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPayload {
		return nil, fmt.Errorf("pricing document exceeds %d bytes", maxPayload)
	}
	return data, nil
}

// Publish writes a table to a local file or an s3:// URI.
func Publish(ctx context.Context, location string, table *pricing.Table, opts Options) error {
	data, err := table.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode pricing table: %w", err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("encode pricing table: %w", err)
	}
	indented.WriteByte('\n')

	switch {
	case isHTTP(location):
		return fmt.Errorf("publish %s: HTTP destinations are read-only", location)
	case IsS3(location):
		if opts.S3 == nil {
			return fmt.Errorf("publish %s: S3 client not configured", location)
		}
		bucket, key, err := ParseS3URI(location)
		if err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("invalid S3 URI %s: missing object key", location)
		}
		_, err = opts.S3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(indented.Bytes()),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", location, err)
		}
		return nil
	default:
		return writeFileAtomic(location, indented.Bytes())
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".pricing-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
