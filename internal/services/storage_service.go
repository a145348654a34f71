// internal/services/storage_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/creatorclaim/backend/internal/config"
	"github.com/creatorclaim/backend/internal/utils"
)

// StorageService stores certificate metadata documents and returns the URI
// and digest the registration instruction commits to. Only the 32-byte hash
// goes on the ledger; the document itself lives in object storage.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type MetadataDocument struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description,omitempty" validate:"max=4096"`
	ContentHash string            `json:"content_hash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type MetadataUploadResult struct {
	Key     string `json:"key"`
	URI     string `json:"uri"`
	URIHash string `json:"uri_hash"`
	Size    int64  `json:"size"`
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.Storage.AccessKeyID == "" {
		// Local development mode: no object store, URIs are synthesized.
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Storage.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// UploadMetadata canonicalizes and stores a metadata document, returning
// its URI and the digest to register on the ledger. The URI is hashed, not
// the document body, because verifiers resolve the URI first and can then
// check content_hash against the asset bytes.
func (s *StorageService) UploadMetadata(doc *MetadataDocument) (*MetadataUploadResult, error) {
	if err := utils.ValidateStruct(doc); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	key := s.generateKey()

	if s.s3Client != nil {
		params := &s3.PutObjectInput{
			Bucket:        aws.String(s.config.Storage.S3Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentType:   aws.String("application/json"),
			ContentLength: aws.Int64(int64(len(body))),
		}
		if _, err := s.s3Client.PutObject(params); err != nil {
			return nil, fmt.Errorf("failed to upload to S3: %w", err)
		}
	}

	uri := s.metadataURI(key)

	return &MetadataUploadResult{
		Key:     key,
		URI:     uri,
		URIHash: utils.HashURIHex(uri),
		Size:    int64(len(body)),
	}, nil
}

// FetchMetadata retrieves a stored metadata document by key.
func (s *StorageService) FetchMetadata(key string) (*MetadataDocument, error) {
	if s.s3Client == nil {
		return nil, fmt.Errorf("object storage not configured")
	}

	out, err := s.s3Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Storage.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	defer out.Body.Close()

	var doc MetadataDocument
	if err := json.NewDecoder(out.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &doc, nil
}

// GeneratePresignedURL grants time-limited read access to a metadata
// document without making the bucket public.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Storage.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

func (s *StorageService) generateKey() string {
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("metadata/%s_%s.json", timestamp, uuid.New().String()[:8])
}

func (s *StorageService) metadataURI(key string) string {
	if s.config.Storage.BaseURL != "" {
		return fmt.Sprintf("%s/%s", s.config.Storage.BaseURL, key)
	}
	if s.s3Client == nil {
		return fmt.Sprintf("http://localhost:%s/%s", s.config.Server.Port, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.Storage.S3Bucket, s.config.Storage.Region, key)
}
