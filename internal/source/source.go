// Package source opens parser inputs. Inputs are local paths or
// s3://bucket/key objects, and are always decoded from Windows-1252, the
// encoding the game writes.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/text/encoding/charmap"
)

var ErrUnsupportedScheme = errors.New("unsupported input scheme")

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Enabled reports whether enough is configured to reach an object store.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != ""
}

// Opener opens inputs by name. The S3 client is created on first use.
type Opener struct {
	S3 S3Config

	clientOnce sync.Once
	client     *minio.Client
	clientErr  error
}

// Open returns the raw bytes of name. The caller closes the reader.
func (o *Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("input name is required")
	}
	scheme, rest, ok := strings.Cut(name, "://")
	if !ok {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return f, nil
	}
	switch strings.ToLower(scheme) {
	case "file":
		return o.Open(ctx, rest)
	case "s3":
		return o.openS3(ctx, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// OpenDecoded is Open followed by Decode.
func (o *Opener) OpenDecoded(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := o.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return decodedReader{Reader: Decode(rc), Closer: rc}, nil
}

type decodedReader struct {
	io.Reader
	io.Closer
}

// Decode converts a Windows-1252 stream to UTF-8.
func Decode(r io.Reader) io.Reader {
	return charmap.Windows1252.NewDecoder().Reader(r)
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", raw, err)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimLeft(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url %s needs a bucket and a key", raw)
	}
	return bucket, key, nil
}

func (o *Opener) s3Client() (*minio.Client, error) {
	o.clientOnce.Do(func() {
		endpoint := strings.TrimSpace(o.S3.Endpoint)
		if endpoint == "" {
			o.clientErr = fmt.Errorf("s3 endpoint is required")
			return
		}
		access := strings.TrimSpace(o.S3.AccessKey)
		secret := strings.TrimSpace(o.S3.SecretKey)
		if access == "" || secret == "" {
			o.clientErr = fmt.Errorf("s3 access key and secret key are required")
			return
		}
		region := strings.TrimSpace(o.S3.Region)
		if region == "" {
			region = "us-east-1"
		}
		o.client, o.clientErr = minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(access, secret, ""),
			Secure: o.S3.UseSSL,
			Region: region,
		})
		if o.clientErr != nil {
			o.clientErr = fmt.Errorf("init s3 client: %w", o.clientErr)
		}
	})
	return o.client, o.clientErr
}

func (o *Opener) openS3(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(name)
	if err != nil {
		return nil, err
	}
	client, err := o.s3Client()
	if err != nil {
		return nil, err
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing object here instead of on
	// the first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return obj, nil
}
