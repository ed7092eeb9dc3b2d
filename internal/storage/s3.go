package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures NewS3FromConfig.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
	MaxSize  int64
	CacheDir string
}

// S3Store stores uploads in an S3 bucket under a key prefix.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := storage.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "uploads/", 100<<20)
type S3Store struct {
	client   S3API
	bucket   string
	prefix   string
	maxSize  int64
	cacheDir string
}

// NewS3Store creates a new S3 upload store.
//
// Parameters:
//   - client: S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: Key prefix for uploads (e.g., "uploads/")
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewS3Store(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		maxSize:  maxSize,
		cacheDir: filepath.Join(os.TempDir(), "printdesk-s3"),
	}
}

// NewS3FromConfig builds an S3Store using the default AWS credential chain.
// A custom endpoint switches the client to path-style addressing, which is
// what MinIO and most S3-compatible servers expect.
func NewS3FromConfig(ctx context.Context, opts S3Options) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := NewS3Store(client, opts.Bucket, opts.Prefix, opts.MaxSize)
	if opts.CacheDir != "" {
		store.cacheDir = opts.CacheDir
	}
	return store, nil
}

// WithCacheDir sets where LocalPath writes downloaded copies.
func (s *S3Store) WithCacheDir(dir string) *S3Store {
	s.cacheDir = dir
	return s
}

func (s *S3Store) key(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return s.prefix + clean, nil
}

// List implements Store. Keys below a nested prefix are skipped.
func (s *S3Store) List(ctx context.Context) ([]FileInfo, error) {
	files := []FileInfo{}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			files = append(files, FileInfo{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Save implements Store. The body is buffered so the SDK can sign and
// retry the request.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) (FileInfo, error) {
	key, err := s.key(name)
	if err != nil {
		return FileInfo{}, err
	}

	var buf bytes.Buffer
	n, err := limitedCopy(&buf, r, s.maxSize)
	if err != nil {
		return FileInfo{}, err
	}

	now := time.Now()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
		Metadata: map[string]string{
			"upload-time": now.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("s3 upload failed: %w", err)
	}
	clean, _ := CleanName(name)
	return FileInfo{Name: clean, Size: n, ModTime: now}, nil
}

// Stat implements Store.
func (s *S3Store) Stat(ctx context.Context, name string) (FileInfo, error) {
	key, err := s.key(name)
	if err != nil {
		return FileInfo{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return FileInfo{}, s3Error(err)
	}
	return FileInfo{
		Name:    strings.TrimPrefix(key, s.prefix),
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

// Open implements Store.
func (s *S3Store) Open(ctx context.Context, name string) (*File, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3Error(err)
	}
	return &File{
		FileInfo: FileInfo{
			Name:    strings.TrimPrefix(key, s.prefix),
			Size:    aws.ToInt64(out.ContentLength),
			ModTime: aws.ToTime(out.LastModified),
		},
		Reader: out.Body,
	}, nil
}

// Delete implements Store. S3 deletes are idempotent, so the object is
// checked first to report ErrNotFound.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}
	key, _ := s.key(name)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// LocalPath implements Store by downloading the object into the cache
// directory. The copy is overwritten on the next call for the same name.
func (s *S3Store) LocalPath(ctx context.Context, name string) (string, error) {
	f, err := s.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.cacheDir, f.Name)
	tmp, err := os.CreateTemp(s.cacheDir, tempPrefix+"*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, f.Reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}

func s3Error(err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}
	return fmt.Errorf("s3 request failed: %w", err)
}
