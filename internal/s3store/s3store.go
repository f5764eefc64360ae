// Package s3store implements the remote storage provider interface on an
// S3-compatible object store. Folders are modeled as key prefixes and the
// backup metadata description travels in object user metadata.
package s3store

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/abrahampo1/savecloud/internal/remote"
)

// Ensure Client implements remote.Client at compile time.
var _ remote.Client = (*Client)(nil)

// metadataKey is the object user-metadata key carrying the backup
// description. The value is base64-encoded because S3 metadata values must
// be header-safe ASCII and the description is arbitrary JSON.
const metadataKey = "backup-description"

// Config holds the configuration for an S3-compatible backend.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for MinIO/R2/B2/Wasabi
	AccessKeyID     string // optional — falls back to the AWS credential chain
	SecretAccessKey string
	ForcePathStyle  bool // required for MinIO and some S3-compatible stores
}

// Client stores backup artifacts in an S3-compatible object store.
type Client struct {
	s3     *s3.Client
	bucket string
	logger *slog.Logger
}

// New creates an S3 backend from the given config.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)

	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// ListFiles lists objects matching the query. Folder queries report the
// prefix as a folder when any object exists under it; file queries list
// objects under ParentID and filter by name. Descriptions require a head
// request per object.
func (c *Client) ListFiles(ctx context.Context, q remote.ListQuery) ([]remote.File, error) {
	if q.OnlyFolders {
		return c.listFolders(ctx, q)
	}

	prefix := folderPrefix(q.ParentID)

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	var out []remote.File

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3store: listing objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, prefix)

			if name == "" || strings.Contains(name, "/") {
				continue
			}

			if q.Name != "" && name != q.Name {
				continue
			}

			if q.NameContains != "" && !strings.Contains(name, q.NameContains) {
				continue
			}

			f := remote.File{
				ID:   key,
				Name: name,
				Size: aws.ToInt64(obj.Size),
			}

			if obj.LastModified != nil {
				f.CreatedAt = *obj.LastModified
				f.ModifiedAt = *obj.LastModified
			}

			out = append(out, f)
		}
	}

	// Attach descriptions; object metadata is only visible on head/get.
	for i := range out {
		desc, err := c.headDescription(ctx, out[i].ID)
		if err != nil {
			c.logger.Warn("reading object metadata failed",
				slog.String("key", out[i].ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		out[i].Description = desc
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

// listFolders reports a synthetic folder entry when any object exists under
// the named prefix.
func (c *Client) listFolders(ctx context.Context, q remote.ListQuery) ([]remote.File, error) {
	prefix := folderPrefix(q.Name)

	resp, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: probing folder %s: %w", q.Name, err)
	}

	if len(resp.Contents) == 0 {
		return nil, nil
	}

	return []remote.File{{ID: prefix, Name: q.Name, IsFolder: true}}, nil
}

// CreateFolder writes a zero-byte marker object so the prefix is listable.
func (c *Client) CreateFolder(ctx context.Context, name string) (*remote.File, error) {
	prefix := folderPrefix(name)

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(prefix),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: creating folder marker %s: %w", name, err)
	}

	return &remote.File{ID: prefix, Name: name, IsFolder: true}, nil
}

// CreateFile uploads content under the parent prefix with the description in
// object user metadata.
func (c *Client) CreateFile(
	ctx context.Context, name, parentID, description string, content io.Reader,
) (*remote.File, error) {
	key := folderPrefix(parentID) + name

	c.logger.Info("uploading object", slog.String("key", key))

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   content,
	}

	if description != "" {
		input.Metadata = map[string]string{
			metadataKey: base64.StdEncoding.EncodeToString([]byte(description)),
		}
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("s3store: uploading %s: %w", key, err)
	}

	return &remote.File{ID: key, Name: name, Description: description}, nil
}

// GetFile heads the object and returns its metadata.
func (c *Client) GetFile(ctx context.Context, id string) (*remote.File, error) {
	head, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: heading %s: %w", id, err)
	}

	f := &remote.File{
		ID:          id,
		Name:        baseName(id),
		Size:        aws.ToInt64(head.ContentLength),
		Description: decodeDescription(head.Metadata, c.logger),
	}

	if head.LastModified != nil {
		f.CreatedAt = *head.LastModified
		f.ModifiedAt = *head.LastModified
	}

	return f, nil
}

// GetFileContent streams the object body to w.
func (c *Client) GetFileContent(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return 0, fmt.Errorf("s3store: getting %s: %w", id, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("s3store: streaming %s: %w", id, err)
	}

	return n, nil
}

// DeleteFile removes the object. S3 deletes are idempotent.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("s3store: deleting %s: %w", id, err)
	}

	return nil
}

func (c *Client) headDescription(ctx context.Context, key string) (string, error) {
	head, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}

	return decodeDescription(head.Metadata, c.logger), nil
}

// decodeDescription extracts and decodes the stored description.
// Undecodable metadata reads as empty, never as an error.
func decodeDescription(meta map[string]string, logger *slog.Logger) string {
	encoded, ok := meta[metadataKey]
	if !ok {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logger.Warn("undecodable object description", slog.String("error", err.Error()))
		return ""
	}

	return string(decoded)
}

// folderPrefix normalizes a folder ID or name to a trailing-slash prefix.
func folderPrefix(id string) string {
	if id == "" {
		return ""
	}

	return strings.TrimSuffix(id, "/") + "/"
}

func baseName(key string) string {
	idx := strings.LastIndex(strings.TrimSuffix(key, "/"), "/")
	if idx < 0 {
		return key
	}

	return key[idx+1:]
}
