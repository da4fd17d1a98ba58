package document

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"crm-backend/internal/apperr"
)

// S3Config holds explicit construction parameters for the S3 backend.
type S3Config struct {
	Region     string
	Bucket     string
	Endpoint   string // optional, enables MinIO-style endpoints
	PathStyle  bool
	RootPrefix string
}

// S3Store keeps documents in a single bucket under
// <root prefix>/<client key>/<file>.
type S3Store struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	rootPrefix string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	prefix := strings.Trim(cfg.RootPrefix, "/")
	if prefix == "" {
		prefix = "crm-docs"
	}
	return &S3Store{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		rootPrefix: prefix,
	}, nil
}

func (s *S3Store) key(ref Ref, filename string) string {
	return s.rootPrefix + "/" + ref.Key() + "/" + filename
}

func (s *S3Store) Save(ctx context.Context, ref Ref, filename, contentType string, r io.Reader) (Document, error) {
	key := s.key(ref, filename)
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Document{}, apperr.RemoteUnavailable(err)
	}
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return Document{}, apperr.RemoteUnavailable(err)
	}
	doc := Document{Name: filename, Category: CategoryOf(filename), ModTime: aws.ToTime(head.LastModified)}
	if head.ContentLength != nil {
		doc.Size = *head.ContentLength
	}
	if link, err := s.link(ctx, key); err == nil {
		doc.Link = link
	}
	return doc, nil
}

func (s *S3Store) List(ctx context.Context, ref Ref) ([]Document, error) {
	prefix := s.rootPrefix + "/" + ref.Key() + "/"
	var docs []Document
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, apperr.RemoteUnavailable(err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			doc := Document{Name: name, Category: CategoryOf(name), ModTime: aws.ToTime(obj.LastModified)}
			if obj.Size != nil {
				doc.Size = *obj.Size
			}
			if link, err := s.link(ctx, key); err == nil {
				doc.Link = link
			}
			docs = append(docs, doc)
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func (s *S3Store) Open(ctx context.Context, ref Ref, filename string) (io.ReadCloser, error) {
	key := s.key(ref, filename)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, apperr.RemoteUnavailable(err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, ref Ref, filename string) error {
	key := s.key(ref, filename)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return apperr.RemoteUnavailable(err)
	}
	return nil
}

func (s *S3Store) DeleteAll(ctx context.Context, ref Ref) error {
	docs, err := s.List(ctx, ref)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.Delete(ctx, ref, doc.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) link(ctx context.Context, key string) (string, error) {
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key},
		func(po *s3.PresignOptions) { po.Expires = 15 * time.Minute })
	if err != nil {
		return "", err
	}
	return out.URL, nil
}
