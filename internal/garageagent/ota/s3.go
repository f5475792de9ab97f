package ota

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/options"
)

var errNoObject = errors.New("object not found")

type objectInfo struct {
	ETag   string
	Size   int64
	SHA256 string
}

type objectStore interface {
	Stat(ctx context.Context) (objectInfo, error)
	Open(ctx context.Context, etag string) (io.ReadCloser, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
	key    string
}

func (m *minioStore) Stat(ctx context.Context) (objectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucket, m.key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return objectInfo{}, errNoObject
		}
		return objectInfo{}, err
	}
	return objectInfo{
		ETag:   info.ETag,
		Size:   info.Size,
		SHA256: info.UserMetadata["Sha256"],
	}, nil
}

func (m *minioStore) Open(ctx context.Context, etag string) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetMatchETag(etag); err != nil {
		return nil, err
	}
	return m.client.GetObject(ctx, m.bucket, m.key, opts)
}

// S3 offers the firmware object of a bucket when it differs from the image
// already installed. The object is checked once every `every` polls.
//
// The installed image is recognised by its digests: an object whose
// x-amz-meta-sha256 matches its SHA-256, or whose ETag matches its MD5 (true
// for single part uploads), is not offered again.
//
// Each metadata request is bounded by timeout. Object bodies are read under
// the context the Channel passes to Offer.Open.
type S3 struct {
	store       objectStore
	every       int
	timeout     time.Duration
	installPath string
	logger      log.Logger

	polls        int
	installedMD5 string
	installedSHA string
	installed    string
	rejected     string
}

var _ Source = (*S3)(nil)

// NewS3 connects lazily; no request is made until the first check.
func NewS3(opts *options.S3Options, every int, timeout time.Duration, installPath string, logger log.Logger) (*S3, error) {
	transport, err := minio.DefaultTransport(opts.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio transport: %w", err)
	}
	transport.ResponseHeaderTimeout = timeout

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	store := &minioStore{client: client, bucket: opts.BucketName, key: opts.ObjectKey}
	return newS3(store, every, timeout, installPath, logger), nil
}

func newS3(store objectStore, every int, timeout time.Duration, installPath string, logger log.Logger) *S3 {
	if every < 1 {
		every = 1
	}
	return &S3{store: store, every: every, timeout: timeout, installPath: installPath, logger: logger}
}

func (s *S3) Name() string { return "s3" }

// Begin fingerprints the installed image, if any.
func (s *S3) Begin(ctx context.Context) error {
	f, err := os.Open(s.installPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	m, h := md5.New(), sha256.New()
	if _, err := io.Copy(io.MultiWriter(m, h), f); err != nil {
		return err
	}
	s.installedMD5 = hex.EncodeToString(m.Sum(nil))
	s.installedSHA = hex.EncodeToString(h.Sum(nil))
	return nil
}

func (s *S3) isInstalled(info objectInfo) bool {
	if info.ETag == s.installed {
		return true
	}
	if info.SHA256 != "" {
		return strings.EqualFold(info.SHA256, s.installedSHA)
	}
	return info.ETag == s.installedMD5
}

func (s *S3) Next(ctx context.Context) (*Offer, error) {
	s.polls++
	if (s.polls-1)%s.every != 0 {
		return nil, nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	info, err := s.store.Stat(sctx)
	if errors.Is(err, errNoObject) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.ETag = strings.Trim(info.ETag, `"`)
	if info.ETag == "" || info.ETag == s.rejected || s.isInstalled(info) {
		return nil, nil
	}

	etag := info.ETag
	return &Offer{
		Source: s.Name(),
		Name:   etag,
		Size:   info.Size,
		SHA256: info.SHA256,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return s.store.Open(ctx, etag)
		},
		Finish: func(installed bool) {
			if installed {
				s.installed = etag
				return
			}
			s.logger.Info("Object rejected, waiting for a new version", "etag", etag)
			s.rejected = etag
		},
	}, nil
}

func (s *S3) Close() error { return nil }
