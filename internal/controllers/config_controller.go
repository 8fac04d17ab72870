package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/config"
	"github.com/societyhub/society_backend/internal/models"
)

// ConfigController serves what clients need before signing in, and the
// health check.
type ConfigController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Get returns the public client configuration.
func (cc *ConfigController) Get(c *gin.Context) {
	body := gin.H{
		"appBaseUrl":      cc.Cfg.AppBaseURL,
		"paymentsEnabled": cc.Cfg.PaymentsEnabled(),
		"mediaEnabled":    cc.Cfg.MediaEnabled(),
		"currency":        cc.Cfg.PaymentCurrency,
		"facilities": []models.Facility{
			models.FacilityClubhouse,
			models.FacilityGym,
			models.FacilityPool,
			models.FacilityCommunityHall,
			models.FacilityTennisCourt,
		},
	}
	if cc.Cfg.PaymentsEnabled() {
		body["razorpayKeyId"] = cc.Cfg.RazorpayKeyID
	}
	c.JSON(http.StatusOK, body)
}

// Health pings the database.
func (cc *ConfigController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := cc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
