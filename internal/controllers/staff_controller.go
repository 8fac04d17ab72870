package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/utils"
)

type StaffController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type createStaffRequest struct {
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Salary    int64   `json:"salary"`
	PersonID  *string `json:"personId"`
	Active    *bool   `json:"active"`
	SocietyID string  `json:"societyId"`
}

type updateStaffRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Salary *int64  `json:"salary"`
	Active *bool   `json:"active"`
}

var staffSorts = map[string]string{
	"name":       "name",
	"salary":     "salary",
	"created_at": "created_at",
}

func parseStaffRole(s string) (models.Role, error) {
	role, ok := models.ParseRole(s)
	if !ok || !role.IsStaff() {
		return "", apperr.Validation("role must be WATCHMAN, STAFF or TECHNICIAN")
	}
	return role, nil
}

func (sc *StaffController) Create(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, sc.Log, err)
		return
	}
	caller := currentPerson(c)
	societyID, err := targetSociety(caller, req.SocietyID)
	if err != nil {
		response.Error(c, sc.Log, err)
		return
	}
	role, err := parseStaffRole(req.Role)
	if err != nil {
		response.Error(c, sc.Log, err)
		return
	}
	name := utils.NormalizeName(req.Name)
	if name == "" {
		response.Error(c, sc.Log, apperr.Validation("name is required"))
		return
	}
	if req.Salary < 0 {
		response.Error(c, sc.Log, apperr.Validation("salary must not be negative"))
		return
	}
	staff := models.Staff{SocietyID: societyID, Name: name, Role: role, Salary: req.Salary, Active: true}
	if req.Active != nil {
		staff.Active = *req.Active
	}
	db := sc.DB.WithContext(c.Request.Context())
	if id := optionalString(req.PersonID); id != nil {
		p, err := loadPerson(db, *id)
		if err != nil {
			response.Error(c, sc.Log, err)
			return
		}
		if p.Society() != societyID {
			response.Error(c, sc.Log, apperr.Validation("person belongs to another society"))
			return
		}
		staff.PersonID = &p.ID
	}
	if err := db.Create(&staff).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	response.Created(c, staff)
}

func (sc *StaffController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, sc.Log, err)
		return
	}
	p := listParams(c, staffSorts, "name")
	q := sc.DB.WithContext(c.Request.Context()).Model(&models.Staff{})
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	if v := c.Query("role"); v != "" {
		role, err := parseStaffRole(v)
		if err != nil {
			response.Error(c, sc.Log, err)
			return
		}
		q = q.Where("role = ?", role)
	}
	if c.Query("active") != "" {
		q = q.Where("active = ?", queryBool(c, "active"))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Staff
	if err := p.Apply(q).Find(&out).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

func (sc *StaffController) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, sc.Log, err)
		return
	}
	var req updateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, sc.Log, err)
		return
	}
	db := sc.DB.WithContext(c.Request.Context())
	var staff models.Staff
	if err := db.First(&staff, "id = ?", id).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, "staff not found"))
		return
	}
	if !authz.InSociety(currentPerson(c), staff.SocietyID) {
		response.Error(c, sc.Log, apperr.NotFound("staff not found"))
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
	if req.Role != nil {
		role, err := parseStaffRole(*req.Role)
		if err != nil {
			response.Error(c, sc.Log, err)
			return
		}
		updates["role"] = role
	}
	if req.Salary != nil {
		if *req.Salary < 0 {
			response.Error(c, sc.Log, apperr.Validation("salary must not be negative"))
			return
		}
		updates["salary"] = *req.Salary
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) > 0 {
		if err := db.Model(&staff).Updates(updates).Error; err != nil {
			response.Error(c, sc.Log, apperr.FromDB(err, ""))
			return
		}
	}
	if err := db.First(&staff, "id = ?", id).Error; err != nil {
		response.Error(c, sc.Log, apperr.FromDB(err, "staff not found"))
		return
	}
	response.OK(c, staff)
}
