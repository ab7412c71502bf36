package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/service"
	"github.com/prohmpiriya/donation-rush/pkg/logger"
	"github.com/prohmpiriya/donation-rush/pkg/response"
)

// AdminHandler handles operator endpoints. Routes are mounted behind AdminAuth.
type AdminHandler struct {
	adminService service.AdminService
	log          *logger.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService, log: logger.Get()}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// ListTransactions handles GET /admin/transactions
// Lists transactions as the provider reports them
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	limit, offset := pagination(c)
	filter := &gateway.ListFilter{
		Limit:    limit,
		Offset:   offset,
		Status:   c.Query("status"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	}

	page, err := h.adminService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}

	response.SuccessWithMeta(c, page.Transactions, response.Meta{
		Limit:  page.Limit,
		Offset: page.Offset,
		Total:  page.Total,
	})
}

// ListDonations handles GET /admin/donations
// Lists the local donation ledger
func (h *AdminHandler) ListDonations(c *gin.Context) {
	limit, offset := pagination(c)

	donations, err := h.adminService.ListDonations(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("Failed to list donations", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.SuccessWithMeta(c, donations, response.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  len(donations),
	})
}

// Balance handles GET /admin/balance
func (h *AdminHandler) Balance(c *gin.Context) {
	balance, err := h.adminService.Balance(c.Request.Context())
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}

	response.Success(c, balance)
}

// Probe handles GET /admin/probe
func (h *AdminHandler) Probe(c *gin.Context) {
	response.Success(c, h.adminService.Probe(c.Request.Context()))
}

// CancelTransaction handles DELETE /admin/transactions/:id
func (h *AdminHandler) CancelTransaction(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "transaction id is required")
		return
	}

	result, err := h.adminService.CancelTransaction(c.Request.Context(), id)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *AdminHandler) writeGatewayError(c *gin.Context, err error) {
	if errors.Is(err, gateway.ErrUnsupported) {
		response.Error(c, http.StatusNotImplemented, response.CodeNotSupported, gateway.UserMessage(err))
		return
	}
	if errors.Is(err, domain.ErrTerminalStatus) {
		response.Error(c, http.StatusConflict, response.CodeTerminalStatus, err.Error())
		return
	}

	switch gateway.KindOf(err) {
	case gateway.KindNotFound:
		response.NotFound(c, gateway.UserMessage(err))
	case gateway.KindRejected:
		response.Error(c, http.StatusUnprocessableEntity, response.CodeGatewayRejected, gateway.UserMessage(err))
	case gateway.KindTransient:
		response.Error(c, http.StatusServiceUnavailable, response.CodeGatewayTransient, gateway.UserMessage(err))
	case gateway.KindUnreachable, gateway.KindAuthInvalid:
		h.log.Warn("Admin gateway call failed", zap.Error(err))
		response.Error(c, http.StatusBadGateway, response.CodeGatewayError, gateway.UserMessage(err))
	default:
		h.log.Error("Admin request failed", zap.Error(err))
		response.InternalError(c)
	}
}
