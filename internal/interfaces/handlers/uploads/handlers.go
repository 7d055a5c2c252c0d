package uploads

import (
	"errors"

	docsvc "somosrentable-backend/internal/application/documents"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *docsvc.Service
}

// KYCDocument POST /api/v1/uploads/kyc-document
func (h *Handlers) KYCDocument(c *fiber.Ctx) error { return h.sign(c, docsvc.BucketKYC) }

// PaymentProof POST /api/v1/uploads/payment-proof
func (h *Handlers) PaymentProof(c *fiber.Ctx) error { return h.sign(c, docsvc.BucketPaymentProof) }

// sign hands out a one-shot upload URL. After uploading, the client sends the
// returned reference as document_image (KYC) or proof_image (payments), and
// those endpoints refuse it until the object is stored.
func (h *Handlers) sign(c *fiber.Ctx, bucket string) error {
	var req struct {
		FileName string `json:"file_name"`
	}
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	up, err := h.Service.SignedUpload(c.UserContext(), bucket, req.FileName)
	var ae *apperr.Error
	switch {
	case err == nil:
		return response.Success(c, "Upload URL generated", up, nil)
	case errors.As(err, &ae):
		return response.FromError(c, err)
	case errors.Is(err, docsvc.ErrStoreNotConfigured):
		return response.Error(c, "File uploads are not available", fiber.StatusServiceUnavailable, nil)
	}
	log.Ctx(c.UserContext()).Error().Err(err).Str("bucket", bucket).Msg("signed upload failed")
	return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
}
