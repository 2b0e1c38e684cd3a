package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/models"
	"renthub/internal/services"
	"renthub/internal/storage"
)

// ProofFormField is the multipart field carrying the proof file.
const ProofFormField = "paymentProof"

// multipart framing and the text fields on top of the file itself
const multipartOverhead = 1 << 20

// RestPaymentHandler handles REST requests for escrow payments.
type RestPaymentHandler struct {
	paymentService services.IPaymentService
	maxProofBytes  int64
}

// NewRestPaymentHandler creates a new RestPaymentHandler.
func NewRestPaymentHandler(paymentService services.IPaymentService, maxProofBytes int64) *RestPaymentHandler {
	return &RestPaymentHandler{paymentService: paymentService, maxProofBytes: maxProofBytes}
}

// Submit handles POST /api/payments (multipart or urlencoded form).
func (h *RestPaymentHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxProofBytes+multipartOverhead)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				badRequest(c, "payment proof must be at most %d MB", h.maxProofBytes>>20)
				return
			}
			badRequest(c, "malformed multipart form")
			return
		}
	}

	appID, err := primitive.ObjectIDFromHex(c.PostForm("application_id"))
	if err != nil {
		badRequest(c, "invalid application_id format")
		return
	}
	amount, err := strconv.ParseFloat(c.PostForm("amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		badRequest(c, "amount must be a number")
		return
	}

	in := services.SubmitPaymentInput{
		ApplicationID:    appID,
		Amount:           amount,
		PaymentType:      models.PaymentType(c.PostForm("payment_type")),
		PaymentMethod:    models.PaymentMethod(c.PostForm("payment_method")),
		PaymentReference: c.PostForm("payment_reference"),
		TenantNotes:      c.PostForm("tenant_notes"),
	}

	fh, err := c.FormFile(ProofFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		badRequest(c, "could not read payment proof")
		return
	default:
		if fh.Size > h.maxProofBytes {
			badRequest(c, "payment proof must be at most %d MB", h.maxProofBytes>>20)
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if !storage.IsAllowedProofType(contentType) {
			badRequest(c, "payment proof must be an image (JPG, PNG, GIF, WEBP) or a PDF")
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "could not read payment proof")
			return
		}
		defer f.Close()
		in.Proof = &services.ProofUpload{Filename: fh.Filename, ContentType: contentType, Size: fh.Size, Body: f}
	}

	payment, err := h.paymentService.Submit(c.Request.Context(), principal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

type adminNotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// bindOptionalJSON binds a body that may be absent.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "malformed JSON body")
		return false
	}
	return true
}

type paymentAction func(c *gin.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error)

func (h *RestPaymentHandler) adminAction(c *gin.Context, action paymentAction) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req adminNotesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	payment, err := action(c, principal(c), id, req.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// Verify handles PUT /api/payments/:id/verify
func (h *RestPaymentHandler) Verify(c *gin.Context) {
	h.adminAction(c, func(c *gin.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
		return h.paymentService.Verify(c.Request.Context(), actor, id, notes)
	})
}

// Release handles PUT /api/payments/:id/release
func (h *RestPaymentHandler) Release(c *gin.Context) {
	h.adminAction(c, func(c *gin.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
		return h.paymentService.Release(c.Request.Context(), actor, id, notes)
	})
}

// Reject handles PUT /api/payments/:id/reject
func (h *RestPaymentHandler) Reject(c *gin.Context) {
	h.adminAction(c, func(c *gin.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
		return h.paymentService.Reject(c.Request.Context(), actor, id, notes)
	})
}

// UpdateNotes handles PUT /api/payments/:id/notes
func (h *RestPaymentHandler) UpdateNotes(c *gin.Context) {
	h.adminAction(c, func(c *gin.Context, actor models.Principal, id primitive.ObjectID, notes string) (*models.Payment, error) {
		return h.paymentService.UpdateAdminNotes(c.Request.Context(), actor, id, notes)
	})
}

// Refund handles PUT /api/payments/:id/refund
func (h *RestPaymentHandler) Refund(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req refundRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	payment, err := h.paymentService.Refund(c.Request.Context(), principal(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetByID handles GET /api/payments/:id
func (h *RestPaymentHandler) GetByID(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.paymentService.FindByID(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetProofURL handles GET /api/payments/:id/proof
func (h *RestPaymentHandler) GetProofURL(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	url, err := h.paymentService.ProofURL(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListMine handles GET /api/payments/mine
func (h *RestPaymentHandler) ListMine(c *gin.Context) {
	payments, err := h.paymentService.ListForTenant(c.Request.Context(), principal(c))
	respondList(c, payments, err)
}

// ListLandlord handles GET /api/payments/landlord
func (h *RestPaymentHandler) ListLandlord(c *gin.Context) {
	payments, err := h.paymentService.ListForLandlord(c.Request.Context(), principal(c))
	respondList(c, payments, err)
}

// ListAll handles GET /api/payments
func (h *RestPaymentHandler) ListAll(c *gin.Context) {
	payments, err := h.paymentService.ListAll(c.Request.Context(), principal(c), models.PaymentStatus(c.Query("status")))
	respondList(c, payments, err)
}

// Stats handles GET /api/payments/stats
func (h *RestPaymentHandler) Stats(c *gin.Context) {
	stats, err := h.paymentService.Stats(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
