package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"autosaver/internal/saver"
)

// S3Options configures an S3Mirror.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the service endpoint for S3-compatible stores; it
	// also switches to path-style addressing.
	Endpoint string
	// AccessKeyID and SecretAccessKey, when both set, replace the default
	// credential chain.
	AccessKeyID     string
	SecretAccessKey string
	// Timeout bounds each request. Defaults to one minute.
	Timeout time.Duration
}

type s3Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Mirror stores snapshots as objects under Prefix in Bucket.
type S3Mirror struct {
	name     string
	bucket   string
	prefix   string
	timeout  time.Duration
	client   s3Client
	uploader s3Uploader
}

var _ saver.Mirror = (*S3Mirror)(nil)

// NewS3Mirror loads the AWS configuration and builds the client.
func NewS3Mirror(ctx context.Context, name string, opts S3Options) (*S3Mirror, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 mirror requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Mirror(name, opts, client, manager.NewUploader(client)), nil
}

func newS3Mirror(name string, opts S3Options, client s3Client, uploader s3Uploader) *S3Mirror {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	return &S3Mirror{
		name:     name,
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		timeout:  opts.Timeout,
		client:   client,
		uploader: uploader,
	}
}

func (m *S3Mirror) Name() string { return m.name }

func (m *S3Mirror) Put(name string, r io.Reader, size int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	_, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(m.prefix + name),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading %s to s3://%s: %w", name, m.bucket, err)
	}
	return nil
}

func (m *S3Mirror) Get(name string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.prefix + name),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("downloading %s from s3://%s: %w", name, m.bucket, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	return nil
}

func (m *S3Mirror) List() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var names []string
	p := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(m.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", m.bucket, m.prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), m.prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
