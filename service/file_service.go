package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"

	"github.com/tieubaoca/research-assistant/config"
	"github.com/tieubaoca/research-assistant/types"
)

// ReportSaver stores a research report and returns where it went.
type ReportSaver interface {
	Save(ctx context.Context, content string) (string, error)
}

// NewReportSaver picks S3 when a bucket is configured, the local directory
// otherwise.
func NewReportSaver(ctx context.Context, cfg config.SaveConfig) (ReportSaver, error) {
	if cfg.S3Bucket != "" {
		return NewS3Saver(ctx, cfg)
	}
	return NewFileService(cfg.Dir), nil
}

func reportName(now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	return "research_" + strings.ToLower(id.String()) + ".txt"
}

func formatReport(now time.Time, content string) string {
	return fmt.Sprintf("--- Research Output ---\nTimestamp: %s\n\n%s\n", now.Format(time.RFC3339), content)
}

// FileService writes reports into a local directory.
type FileService struct {
	dir string
	now func() time.Time
}

func NewFileService(dir string) *FileService {
	return &FileService{dir: dir, now: time.Now}
}

func (s *FileService) Save(_ context.Context, content string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	now := s.now()
	dst := filepath.Join(s.dir, reportName(now))
	if err := os.WriteFile(dst, []byte(formatReport(now, content)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return dst, nil
}

// S3Saver writes reports as objects under a key prefix.
type S3Saver struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3Saver(ctx context.Context, cfg config.SaveConfig) (*S3Saver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Saver{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix, now: time.Now}, nil
}

func (s *S3Saver) Save(ctx context.Context, content string) (string, error) {
	now := s.now()
	key := path.Join(s.prefix, reportName(now))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(formatReport(now, content)),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// SaveTool exposes saver to the agent as save_to_file.
func SaveTool(saver ReportSaver) types.ToolSpec {
	return types.ToolSpec{
		Name:        "save_to_file",
		Description: "Save structured research data to a text file.",
		Params:      map[string]string{"data": "The research text to save"},
		Handler: func(ctx context.Context, args []byte) (any, error) {
			var in struct {
				Data string `json:"data"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid save_to_file arguments: %w", err)
			}
			loc, err := saver.Save(ctx, in.Data)
			if err != nil {
				return nil, err
			}
			return "Data successfully saved to " + loc, nil
		},
	}
}
