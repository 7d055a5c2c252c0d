package documents

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"somosrentable-backend/internal/pkg/apperr"

	"github.com/google/uuid"
)

// Buckets for the two document kinds the funnel collects.
const (
	BucketKYC          = "kyc-documents"
	BucketPaymentProof = "payment-proofs"
)

var (
	ErrFileNameRequired = apperr.Validation("file_name is required")
	ErrUnsupportedType  = apperr.Validation("Only jpg, jpeg, png, webp and pdf files are allowed")
	ErrForeignReference = apperr.Validation("Document reference is not a valid upload for this document type")
	ErrNotUploaded      = apperr.Validation("Document was not uploaded; upload the file before submitting it")
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	objectShape = regexp.MustCompile(`^\d{4}/\d{2}/[A-Za-z0-9._-]+$`)
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true}

// Service turns uploads into opaque references. The reference is what KYC
// submissions and payment proofs store; the bytes never pass through the API.
type Service struct {
	Store Store
	Now   func() time.Time
}

// Upload is returned to the client: PUT the file to UploadURL, then submit Reference.
type Upload struct {
	UploadURL string `json:"uploadUrl"`
	Reference string `json:"reference"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SignedUpload reserves bucket/yyyy/mm/<uuid>-<file> and signs an upload to it.
func (s *Service) SignedUpload(ctx context.Context, bucket, fileName string) (*Upload, error) {
	name := strings.TrimSpace(path.Base(fileName))
	if name == "" || name == "." || name == "/" {
		return nil, ErrFileNameRequired
	}
	if !allowedExt[strings.ToLower(path.Ext(name))] {
		return nil, ErrUnsupportedType
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	t := s.now().UTC()
	objectPath := fmt.Sprintf("%04d/%02d/%s-%s", t.Year(), int(t.Month()), uuid.NewString(), name)

	signed, err := s.Store.CreateSignedUploadURL(ctx, bucket, objectPath)
	if err != nil {
		return nil, err
	}
	return &Upload{UploadURL: signed, Reference: bucket + "/" + objectPath}, nil
}

// CheckReference reports whether reference has the bucket/yyyy/mm/<file>
// shape SignedUpload hands out, inside bucket. It returns the object path.
func CheckReference(bucket, reference string) (string, error) {
	object, ok := strings.CutPrefix(strings.TrimSpace(reference), bucket+"/")
	if !ok || !objectShape.MatchString(object) || !allowedExt[strings.ToLower(path.Ext(object))] {
		return "", ErrForeignReference
	}
	return object, nil
}

// Verify accepts reference only when it belongs to bucket and the object is
// already stored. Records pointing at a document are written after this.
func (s *Service) Verify(ctx context.Context, bucket, reference string) error {
	object, err := CheckReference(bucket, reference)
	if err != nil {
		return err
	}
	ok, err := s.Store.Exists(ctx, bucket, object)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotUploaded
	}
	return nil
}
