package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

const uploadURLTTL = 15 * time.Minute

var uploadContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type MediaConfig struct {
	Region        string
	Bucket        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// Upload is a presigned PUT the client uses to send a file straight to
// the object store, and the URL the object will be readable at.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MediaService struct {
	cfg MediaConfig
	log logging.Logger
	now Clock
}

func NewMediaService(cfg MediaConfig, log logging.Logger) *MediaService {
	return &MediaService{cfg: cfg, log: log.With("component", "media"), now: utcNow}
}

func (s *MediaService) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

// StorageKey lays uploads out by society and day.
func StorageKey(societyID string, at time.Time, ext string) string {
	if societyID == "" {
		societyID = "global"
	}
	return fmt.Sprintf("uploads/%s/%04d/%02d/%02d/%s%s", societyID, at.Year(), at.Month(), at.Day(), uuid.NewString(), ext)
}

// PublicURL is where an uploaded key can be read back.
func (s *MediaService) PublicURL(key string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	case s.cfg.Endpoint != "":
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func (s *MediaService) PresignUpload(ctx context.Context, caller *models.Person, contentType string) (*Upload, error) {
	if caller == nil {
		return nil, apperr.Authentication("not signed in")
	}
	if s.cfg.Bucket == "" {
		return nil, apperr.Upstream("media storage is not configured", nil)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := uploadContentTypes[contentType]
	if !ok {
		return nil, apperr.Validation("contentType must be image/jpeg, image/png or image/webp")
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return nil, apperr.Upstream("could not configure media storage", err)
	}
	now := s.now()
	key := StorageKey(caller.Society(), now, ext)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLTTL))
	if err != nil {
		return nil, apperr.Upstream("could not presign upload", err)
	}
	s.log.Debug(ctx, "upload presigned", "key", key, "person_id", caller.ID)
	return &Upload{Key: key, UploadURL: req.URL, URL: s.PublicURL(key), ExpiresAt: now.Add(uploadURLTTL)}, nil
}
