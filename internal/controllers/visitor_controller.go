package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/services"
)

type VisitorController struct {
	Svc *services.VisitorService
	Log logging.Logger
}

type preApproveRequest struct {
	VisitorName   string         `json:"visitorName"`
	PhoneNumber   FlexibleString `json:"phoneNumber"`
	VehicleNumber *string        `json:"vehicleNumber"`
	Purpose       string         `json:"purpose"`
	FlatNumber    FlexibleString `json:"flatNumber"`
	FlatID        string         `json:"flatId"`
	ResidentName  string         `json:"residentName"`
	ImageURL      *string        `json:"imageUrl"`
}

type visitorTokenRequest struct {
	Token string `json:"token"`
}

func (vc *VisitorController) PreApprove(c *gin.Context) {
	var req preApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, vc.Log, err)
		return
	}
	visitor, link, err := vc.Svc.PreApprove(c.Request.Context(), currentPerson(c), services.PreApproveInput{
		VisitorName:   req.VisitorName,
		PhoneNumber:   req.PhoneNumber.Phone(),
		Purpose:       req.Purpose,
		FlatNumber:    req.FlatNumber.String(),
		FlatID:        req.FlatID,
		VehicleNumber: req.VehicleNumber,
		ImageURL:      req.ImageURL,
		ResidentName:  req.ResidentName,
	})
	if err != nil {
		response.Error(c, vc.Log, err)
		return
	}
	response.OK(c, gin.H{"visitor": visitor, "qrCodeUrl": link})
}

// token takes the visitor token from the JSON body or the query string.
func (vc *VisitorController) token(c *gin.Context) (string, error) {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t, nil
	}
	var req visitorTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", err
	}
	return req.Token, nil
}

// Preview shows the visitor behind a scanned token without changing it.
func (vc *VisitorController) Preview(c *gin.Context) {
	visitor, err := vc.Svc.Lookup(c.Request.Context(), currentPerson(c), c.Query("token"))
	if err != nil {
		response.Error(c, vc.Log, err)
		return
	}
	response.OK(c, gin.H{"visitor": visitor})
}

func (vc *VisitorController) CheckIn(c *gin.Context) {
	token, err := vc.token(c)
	if err != nil {
		response.BadRequest(c, vc.Log, err)
		return
	}
	visitor, err := vc.Svc.CheckIn(c.Request.Context(), currentPerson(c), token)
	if err != nil {
		response.Error(c, vc.Log, err)
		return
	}
	response.OK(c, gin.H{"visitor": visitor})
}

func (vc *VisitorController) CheckOut(c *gin.Context) {
	token, err := vc.token(c)
	if err != nil {
		response.BadRequest(c, vc.Log, err)
		return
	}
	visitor, err := vc.Svc.CheckOut(c.Request.Context(), currentPerson(c), token)
	if err != nil {
		response.Error(c, vc.Log, err)
		return
	}
	response.OK(c, gin.H{"visitor": visitor})
}

var visitorSorts = map[string]string{
	"created_at":     "visitors.created_at",
	"check_in_time":  "visitors.check_in_time",
	"check_out_time": "visitors.check_out_time",
	"name":           "visitors.name",
}

func (vc *VisitorController) List(c *gin.Context) {
	p := listParams(c, visitorSorts, "visitors.created_at")
	visitors, total, err := vc.Svc.List(c.Request.Context(), currentPerson(c), services.VisitorFilter{Status: c.Query("status")}, p)
	if err != nil {
		response.Error(c, vc.Log, err)
		return
	}
	response.List(c, visitors, p.Meta(total))
}
