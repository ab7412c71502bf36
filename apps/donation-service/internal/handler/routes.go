package handler

import (
	"github.com/gin-gonic/gin"
)

// Routes groups the handlers and per-route middleware mounted by RegisterRoutes
type Routes struct {
	Health   *HealthHandler
	Donation *DonationHandler
	Admin    *AdminHandler

	// Idempotency guards donation creation; nil disables it
	Idempotency gin.HandlerFunc
	// AdminAuth guards the admin group; nil leaves the admin group unmounted
	AdminAuth gin.HandlerFunc
}

// RegisterRoutes mounts the HTTP surface on router
func RegisterRoutes(router *gin.Engine, r *Routes) {
	if r.Health != nil {
		router.GET("/health", r.Health.Health)
		router.GET("/ready", r.Health.Ready)
	}

	v1 := router.Group("/api/v1")

	if r.Donation != nil {
		create := []gin.HandlerFunc{r.Donation.CreateDonation}
		if r.Idempotency != nil {
			create = append([]gin.HandlerFunc{r.Idempotency}, create...)
		}

		donations := v1.Group("/donations")
		{
			donations.POST("", create...)
			donations.GET("/current", r.Donation.GetCurrent)
			donations.DELETE("/current", r.Donation.ClearCurrent)
			donations.POST("/current/cancel", r.Donation.CancelCurrent)
		}
		v1.POST("/card-tokens", r.Donation.CreateCardToken)
		v1.GET("/campaign", r.Donation.GetCampaign)
	}

	if r.Admin != nil && r.AdminAuth != nil {
		admin := v1.Group("/admin", r.AdminAuth)
		{
			admin.GET("/transactions", r.Admin.ListTransactions)
			admin.DELETE("/transactions/:id", r.Admin.CancelTransaction)
			admin.GET("/donations", r.Admin.ListDonations)
			admin.GET("/balance", r.Admin.Balance)
			admin.GET("/probe", r.Admin.Probe)
		}
	}
}
