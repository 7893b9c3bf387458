// Package media stores blog images and avatars in S3-compatible object
// storage (AWS S3, Cloudflare R2, MinIO).
//
// TWO UPLOAD PATHS:
//
//	Featured images: the browser asks for a presigned PUT URL and uploads the
//	bytes straight to the bucket. The API never sees the file, only the
//	public URL the client later sends as the blog's featuredImage.
//
//	Avatars: the browser posts the file to the API, which crops it to a
//	200x200 JPEG before storing it, so every avatar has the same shape.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/sakif/inkwell/internal/apperror"
)

const (
	MaxAvatarSizeBytes        = 5 * 1024 * 1024
	MaxFeaturedImageSizeBytes = 10 * 1024 * 1024

	AvatarSize        = 200
	AvatarFolder      = "avatars"
	FeaturedFolder    = "blogs"
	PresignExpiry     = 15 * time.Minute
	ImageCacheControl = "public, max-age=31536000"

	jpegQuality   = 85
	defaultRegion = "us-east-1"
)

// extensions maps every accepted upload content type to its object key
// suffix.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// decodable are the types an avatar may be uploaded as. WebP is accepted
// for featured images, which are stored as-is, but cannot be decoded for
// cropping.
var decodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Config describes the bucket. Endpoint is empty for AWS itself and set for
// R2 or MinIO. PublicURL is the base under which stored objects are served.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Enabled reports whether enough is configured to store anything.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.PublicURL != ""
}

// PresignResult tells the client where to PUT a file and where it will be
// readable afterwards.
type PresignResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// UploadResult is a stored object.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Store is an S3 bucket client. It is safe for concurrent use.
type Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// New builds the S3 client. Static credentials are used when both keys are
// set; otherwise the SDK's default chain (env, shared config, instance
// role) applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("media: bucket and public URL are required")
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// PresignFeaturedImage returns a short-lived URL the browser can PUT a blog
// image to. fileSize may be zero when the client does not know it yet.
func (s *Store) PresignFeaturedImage(ctx context.Context, contentType string, fileSize int64) (*PresignResult, error) {
	contentType = normalizeContentType(contentType)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, invalidType("contentType")
	}
	if fileSize < 0 || fileSize > MaxFeaturedImageSizeBytes {
		return nil, apperror.Validation("Invalid upload",
			apperror.FieldError{Field: "fileSize", Message: "image must be 10MB or smaller"})
	}

	key := newKey(FeaturedFolder, ext)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(ImageCacheControl),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return nil, fmt.Errorf("media: presigning %s: %w", key, err)
	}

	return &PresignResult{
		UploadURL: req.URL,
		PublicURL: s.objectURL(key),
		Key:       key,
		ExpiresIn: int(PresignExpiry.Seconds()),
	}, nil
}

// UploadAvatar validates an uploaded image, crops it to a square JPEG and
// stores it. contentType may be empty, in which case it is sniffed.
func (s *Store) UploadAvatar(ctx context.Context, r io.Reader, contentType string) (*UploadResult, error) {
	data, err := readImage(r, contentType, MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, AvatarSize, AvatarSize, jpegQuality)
	if err != nil {
		return nil, err
	}

	key := newKey(AvatarFolder, ".jpg")
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(jpegBytes),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String(ImageCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("media: uploading %s: %w", key, err)
	}

	return &UploadResult{URL: s.objectURL(key), Key: key}, nil
}

func (s *Store) objectURL(key string) string {
	return s.publicURL + "/" + key
}

// readImage loads at most maxSize bytes and checks the content type. The
// declared type wins when present; otherwise the bytes are sniffed.
func readImage(r io.Reader, contentType string, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("media: reading upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, apperror.Validation("Invalid upload",
			apperror.FieldError{Field: "avatar", Message: fmt.Sprintf("image must be %dMB or smaller", maxSize>>20)})
	}
	if len(data) == 0 {
		return nil, apperror.Validation("Invalid upload",
			apperror.FieldError{Field: "avatar", Message: "image is empty"})
	}

	contentType = normalizeContentType(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeContentType(http.DetectContentType(data))
	}
	if !decodable[contentType] {
		return nil, apperror.Validation("Invalid upload",
			apperror.FieldError{Field: "avatar", Message: "unsupported image type, allowed: jpeg, png, gif"})
	}
	return data, nil
}

// resizeToJPEG centre-crops to width x height and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Validation("Invalid upload",
			apperror.FieldError{Field: "avatar", Message: "file is not a readable image"})
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("media: encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i != -1 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func newKey(folder, ext string) string {
	return folder + "/" + uuid.NewString() + ext
}

func invalidType(field string) error {
	return apperror.Validation("Invalid upload",
		apperror.FieldError{Field: field, Message: "unsupported image type, allowed: jpeg, png, gif, webp"})
}
