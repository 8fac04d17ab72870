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

type SocietyController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type societyRequest struct {
	Name               *string `json:"name"`
	Address            *string `json:"address"`
	RegistrationNumber *string `json:"registrationNumber"`
}

var societySorts = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

// PublicList is the society picker shown before sign-up.
func (sc *SocietyController) PublicList(c *gin.Context) {
	var out []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := sc.DB.WithContext(c.Request.Context()).Model(&models.Society{}).
		Select("id", "name", "address").Order("name ASC").Find(&out).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"data": out})
}

func (sc *SocietyController) List(c *gin.Context) {
	p := listParams(c, societySorts, "created_at")
	q := sc.DB.WithContext(c.Request.Context()).Model(&models.Society{})
	if text := strings.ToLower(strings.TrimSpace(c.Query("q"))); text != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+text+"%")
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Society
	if err := p.Apply(q).Find(&out).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

func (sc *SocietyController) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, sc.Log, err)
		return
	}
	var s models.Society
	if err := sc.DB.WithContext(c.Request.Context()).First(&s, "id = ?", id).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, "society not found"))
		return
	}
	response.OK(c, s)
}

func (sc *SocietyController) Create(c *gin.Context) {
	var req societyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, sc.Log, err)
		return
	}
	s := models.Society{}
	if req.Name != nil {
		s.Name = utils.NormalizeName(*req.Name)
	}
	if s.Name == "" {
		response.Error(c, sc.Log, apperr.Validation("name is required"))
		return
	}
	if req.Address != nil {
		s.Address = strings.TrimSpace(*req.Address)
	}
	if req.RegistrationNumber != nil {
		s.RegistrationNumber = strings.TrimSpace(*req.RegistrationNumber)
	}
	if err := sc.DB.WithContext(c.Request.Context()).Create(&s).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	sc.Log.Info(c.Request.Context(), "society created", "society_id", s.ID)
	response.Created(c, s)
}

func (sc *SocietyController) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, sc.Log, err)
		return
	}
	var req societyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, sc.Log, err)
		return
	}
	db := sc.DB.WithContext(c.Request.Context())
	var s models.Society
	if err := db.First(&s, "id = ?", id).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, "society not found"))
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		name := utils.NormalizeName(*req.Name)
		if name == "" {
			response.Error(c, sc.Log, apperr.Validation("name cannot be empty"))
			return
		}
		updates["name"] = name
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.RegistrationNumber != nil {
		updates["registration_number"] = strings.TrimSpace(*req.RegistrationNumber)
	}
	if len(updates) > 0 {
		if err := db.Model(&s).Updates(updates).Error; err != nil {
			response.Error(c, sc.Log, apperr.FromDB(err, ""))
			return
		}
	}
	if err := db.First(&s, "id = ?", id).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, "society not found"))
		return
	}
	response.OK(c, s)
}
