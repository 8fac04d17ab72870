package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/services"
)

type MediaController struct {
	Svc *services.MediaService
	Log logging.Logger
}

type presignRequest struct {
	ContentType string `json:"contentType"`
}

// Presign hands out a short-lived upload URL for a visitor photo.
func (mc *MediaController) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, mc.Log, err)
		return
	}
	upload, err := mc.Svc.PresignUpload(c.Request.Context(), currentPerson(c), req.ContentType)
	if err != nil {
		response.Error(c, mc.Log, err)
		return
	}
	response.Created(c, upload)
}
