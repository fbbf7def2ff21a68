package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/logging"
	"github.com/rosedal2/condoauth/internal/server/config"
)

// Signature kinds recorded for a visit.
const (
	SignatureEntry = "entry"
	SignatureExit  = "exit"
)

// maxSignatureSize bounds what Open reads back from the bucket.
const maxSignatureSize = 4 << 20

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// ObjectStore is the part of *s3.Client the vault uses.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// NewS3Client builds a path-style client for the configured S3-compatible
// endpoint (MinIO in development).
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// SignatureVault keeps visitor signatures encrypted at rest. Objects hold
// only the encrypted blob, never the plaintext.
type SignatureVault struct {
	store  ObjectStore
	bucket string
	crypto Encrypter
	log    logging.Logger
}

func NewSignatureVault(store ObjectStore, bucket string, crypto Encrypter, log logging.Logger) *SignatureVault {
	if log == nil {
		log = logging.Nop()
	}
	return &SignatureVault{store: store, bucket: bucket, crypto: crypto, log: log.With("module", "signatures")}
}

func signatureKey(visitID, kind string) (string, error) {
	if _, err := uuid.Parse(visitID); err != nil {
		return "", common.Validation("invalid visit id")
	}
	if kind != SignatureEntry && kind != SignatureExit {
		return "", common.Validation("signature kind must be entry or exit")
	}
	return fmt.Sprintf("signatures/%s/%s", visitID, kind), nil
}

// Seal encrypts payload and stores it, replacing any earlier signature of
// the same kind. It returns the object key.
func (v *SignatureVault) Seal(ctx context.Context, visitID, kind, payload string) (string, error) {
	key, err := signatureKey(visitID, kind)
	if err != nil {
		return "", err
	}
	if payload == "" {
		return "", common.Validation("signature is empty")
	}

	blob, err := v.crypto.Encrypt(payload)
	if err != nil {
		v.log.Error(ctx, "signature encryption failed", "visit_id", visitID, "error", err)
		return "", common.ErrInternal
	}

	_, err = v.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(v.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(blob)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		v.log.Error(ctx, "signature upload failed", "key", key, "error", err)
		return "", common.ErrInternal
	}

	return key, nil
}

// Open fetches and decrypts a stored signature.
func (v *SignatureVault) Open(ctx context.Context, visitID, kind string) (string, error) {
	key, err := signatureKey(visitID, kind)
	if err != nil {
		return "", err
	}

	out, err := v.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", common.NotFound("signature not found")
		}
		v.log.Error(ctx, "signature download failed", "key", key, "error", err)
		return "", common.ErrInternal
	}
	defer out.Body.Close()

	blob, err := io.ReadAll(io.LimitReader(out.Body, maxSignatureSize))
	if err != nil {
		v.log.Error(ctx, "signature read failed", "key", key, "error", err)
		return "", common.ErrInternal
	}

	plain, err := v.crypto.Decrypt(string(blob))
	if err != nil {
		v.log.Warn(ctx, "signature failed to decrypt", "key", key)
		return "", common.ErrDecryptionFailed
	}
	return plain, nil
}
