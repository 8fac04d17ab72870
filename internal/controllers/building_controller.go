package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/utils"
)

type BuildingController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type createBuildingRequest struct {
	Name           string `json:"name"`
	NumberOfFloors int    `json:"numberOfFloors"`
	SocietyID      string `json:"societyId"`
}

var buildingSorts = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

// PublicList lists the buildings of ?societyId= for sign-up forms.
func (bc *BuildingController) PublicList(c *gin.Context) {
	societyID := strings.TrimSpace(c.Query("societyId"))
	if !utils.ValidID(societyID) {
		response.Error(c, bc.Log, apperr.Validation("societyId is required"))
		return
	}
	var out []models.Building
	if err := bc.DB.WithContext(c.Request.Context()).
		Where("society_id = ?", societyID).Order("name ASC").Find(&out).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"data": out})
}

func (bc *BuildingController) Create(c *gin.Context) {
	var req createBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bc.Log, err)
		return
	}
	caller := currentPerson(c)
	societyID, err := targetSociety(caller, req.SocietyID)
	if err != nil {
		response.Error(c, bc.Log, err)
		return
	}
	name := utils.NormalizeName(req.Name)
	if name == "" {
		response.Error(c, bc.Log, apperr.Validation("name is required"))
		return
	}
	if req.NumberOfFloors < 0 {
		response.Error(c, bc.Log, apperr.Validation("numberOfFloors must not be negative"))
		return
	}
	db := bc.DB.WithContext(c.Request.Context())
	var society models.Society
	if err := db.Select("id").First(&society, "id = ?", societyID).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, "society not found"))
		return
	}
	b := models.Building{SocietyID: societyID, Name: name, NumberOfFloors: req.NumberOfFloors}
	if err := db.Create(&b).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, ""))
		return
	}
	response.Created(c, b)
}

func (bc *BuildingController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, bc.Log, err)
		return
	}
	p := listParams(c, buildingSorts, "name")
	q := bc.DB.WithContext(c.Request.Context()).Model(&models.Building{})
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Building
	if err := p.Apply(q).Find(&out).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}
