package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/utils"
)

type EmergencyContactController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type emergencyContactRequest struct {
	Name        string         `json:"name"`
	PhoneNumber FlexibleString `json:"phoneNumber"`
	Email       string         `json:"email"`
	Designation string         `json:"designation"`
	SocietyID   string         `json:"societyId"`
}

func (ec *EmergencyContactController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, ec.Log, err)
		return
	}
	q := ec.DB.WithContext(c.Request.Context()).Model(&models.EmergencyContact{})
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	var out []models.EmergencyContact
	if err := q.Order("designation ASC, name ASC").Find(&out).Error; err != nil {
		response.Error(c, ec.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"data": out})
}

func (ec *EmergencyContactController) Create(c *gin.Context) {
	var req emergencyContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, ec.Log, err)
		return
	}
	caller := currentPerson(c)
	societyID, err := targetSociety(caller, req.SocietyID)
	if err != nil {
		response.Error(c, ec.Log, err)
		return
	}
	contact := models.EmergencyContact{
		SocietyID:   societyID,
		Name:        utils.NormalizeName(req.Name),
		PhoneNumber: req.PhoneNumber.Phone(),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Designation: utils.NormalizeName(req.Designation),
		CreatedByID: caller.ID,
	}
	if contact.Name == "" || contact.PhoneNumber == "" || contact.Designation == "" {
		response.Error(c, ec.Log, apperr.Validation("name, phoneNumber and designation are required"))
		return
	}
	if err := ec.DB.WithContext(c.Request.Context()).Create(&contact).Error; err != nil {
		response.Error(c, ec.Log, apperr.FromDB(err, ""))
		return
	}
	response.Created(c, contact)
}

func (ec *EmergencyContactController) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, ec.Log, err)
		return
	}
	db := ec.DB.WithContext(c.Request.Context())
	var contact models.EmergencyContact
	if err := db.First(&contact, "id = ?", id).Error; err != nil {
		response.Error(c, ec.Log, apperr.FromDB(err, "emergency contact not found"))
		return
	}
	if !authz.InSociety(currentPerson(c), contact.SocietyID) {
		response.Error(c, ec.Log, apperr.NotFound("emergency contact not found"))
		return
	}
	if err := db.Delete(&contact).Error; err != nil {
		response.Error(c, ec.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"deleted": contact.ID})
}
