package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/dto"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/service"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/donation-rush/pkg/middleware"
	"github.com/prohmpiriya/donation-rush/pkg/response"
)

// DonationHandler handles the donor-facing endpoints
type DonationHandler struct {
	donationService service.DonationService
	log             *logger.Logger
}

// NewDonationHandler creates a new DonationHandler
func NewDonationHandler(donationService service.DonationService) *DonationHandler {
	return &DonationHandler{
		donationService: donationService,
		log:             logger.Get(),
	}
}

func scopeOf(c *gin.Context) string {
	return c.GetHeader(pkgmiddleware.ScopeHeader)
}

// CreateDonation handles POST /donations
func (h *DonationHandler) CreateDonation(c *gin.Context) {
	var req dto.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewDonationError(err.Error()))
		return
	}

	result, err := h.donationService.ProcessDonation(c.Request.Context(), scopeOf(c), req.ToIntent())
	if err != nil {
		h.writeError(c, "create donation", err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromDonationResult(result))
}

// GetCurrent handles GET /donations/current
// Refreshes the scope's current donation from the provider
func (h *DonationHandler) GetCurrent(c *gin.Context) {
	result, err := h.donationService.CheckCurrentPaymentStatus(c.Request.Context(), scopeOf(c))
	if err != nil {
		h.writeError(c, "check status", err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStatusResult(result))
}

// ClearCurrent handles DELETE /donations/current
func (h *DonationHandler) ClearCurrent(c *gin.Context) {
	if err := h.donationService.ClearCurrentTransaction(c.Request.Context(), scopeOf(c)); err != nil {
		h.writeError(c, "clear donation", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CancelCurrent handles POST /donations/current/cancel
func (h *DonationHandler) CancelCurrent(c *gin.Context) {
	result, err := h.donationService.CancelCurrentTransaction(c.Request.Context(), scopeOf(c))
	if err != nil {
		h.writeError(c, "cancel donation", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cancellation": result})
}

// CreateCardToken handles POST /card-tokens
func (h *DonationHandler) CreateCardToken(c *gin.Context) {
	var card domain.CardData
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, dto.CardTokenResponse{Error: err.Error()})
		return
	}

	token, err := h.donationService.CreateCardToken(c.Request.Context(), &card)
	if err != nil {
		status, body := h.classify("create card token", err)
		c.JSON(status, dto.CardTokenResponse{Error: body.Error})
		return
	}

	c.JSON(http.StatusCreated, dto.CardTokenResponse{Success: true, Token: token})
}

// GetCampaign handles GET /campaign
func (h *DonationHandler) GetCampaign(c *gin.Context) {
	stats, err := h.donationService.CampaignStats(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to load campaign stats", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.Success(c, dto.FromCampaignStats(stats, h.donationService.Addons()))
}

func (h *DonationHandler) writeError(c *gin.Context, operation string, err error) {
	status, body := h.classify(operation, err)
	c.JSON(status, body)
}

// classify maps a service error onto an HTTP status and the flat error reply.
// The structured error is only logged.
func (h *DonationHandler) classify(operation string, err error) (int, *dto.DonationResponse) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body := dto.NewDonationError(verr.Error())
		body.Reason = string(verr.Reason)
		body.Field = verr.Field
		if verr.Reason == domain.ReasonBelowMinimum {
			shortfall := dto.Amount(verr.ShortfallMinor)
			body.Shortfall = &shortfall
		}
		return http.StatusBadRequest, body
	}

	switch {
	case errors.Is(err, domain.ErrUnknownAddon),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidMethod):
		return http.StatusBadRequest, dto.NewDonationError(err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, dto.NewDonationError(err.Error())
	case errors.Is(err, domain.ErrTerminalStatus):
		return http.StatusConflict, dto.NewDonationError(err.Error())
	case errors.Is(err, gateway.ErrUnsupported):
		return http.StatusNotImplemented, dto.NewDonationError(gateway.UserMessage(err))
	}

	h.log.Error("Donation request failed",
		zap.String("operation", operation),
		zap.String("kind", string(gateway.KindOf(err))),
		zap.Error(err),
	)

	var status int
	switch gateway.KindOf(err) {
	case gateway.KindRejected:
		status = http.StatusUnprocessableEntity
	case gateway.KindTransient:
		status = http.StatusServiceUnavailable
	case gateway.KindNotFound:
		status = http.StatusNotFound
	case gateway.KindUnreachable, gateway.KindAuthInvalid:
		status = http.StatusBadGateway
	default:
		return http.StatusInternalServerError, dto.NewDonationError("internal error")
	}
	return status, dto.NewDonationError(gateway.UserMessage(err))
}
