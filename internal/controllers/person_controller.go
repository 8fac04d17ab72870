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

type PersonController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type updateMeRequest struct {
	Name        *string         `json:"name"`
	PhoneNumber *FlexibleString `json:"phoneNumber"`
}

type updateRoleRequest struct {
	Role      string `json:"role"`
	SocietyID string `json:"societyId"`
}

var personSorts = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

// Me returns the caller and the flats they own or occupy.
func (pc *PersonController) Me(c *gin.Context) {
	caller := currentPerson(c)
	if caller == nil {
		response.Error(c, pc.Log, authz.Authorize(nil))
		return
	}
	var flats []models.Flat
	if err := pc.DB.WithContext(c.Request.Context()).Preload("Building").
		Where("owner_id = ? OR resident_id = ?", caller.ID, caller.ID).
		Order("flat_number ASC").Find(&flats).Error; err != nil {
		response.Error(c, pc.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"person": caller, "flats": flats})
}

// UpdateMe edits the caller's own name and phone number. Role and society
// are managed by admins.
func (pc *PersonController) UpdateMe(c *gin.Context) {
	caller := currentPerson(c)
	if caller == nil {
		response.Error(c, pc.Log, authz.Authorize(nil))
		return
	}
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, pc.Log, err)
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		name := utils.NormalizeName(*req.Name)
		if name == "" {
			response.Error(c, pc.Log, apperr.Validation("name cannot be empty"))
			return
		}
		updates["name"] = name
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = req.PhoneNumber.Phone()
	}
	db := pc.DB.WithContext(c.Request.Context())
	if len(updates) > 0 {
		if err := db.Model(&models.Person{}).Where("id = ?", caller.ID).Updates(updates).Error; err != nil {
			response.Error(c, pc.Log, apperr.FromDB(err, ""))
			return
		}
	}
	var p models.Person
	if err := db.First(&p, "id = ?", caller.ID).Error; err != nil {
		response.Error(c, pc.Log, apperr.FromDB(err, "person not found"))
		return
	}
	response.OK(c, p)
}

func (pc *PersonController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	p := listParams(c, personSorts, "created_at")
	q := pc.DB.WithContext(c.Request.Context()).Model(&models.Person{})
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	if v := c.Query("role"); v != "" {
		role, ok := models.ParseRole(v)
		if !ok {
			response.Error(c, pc.Log, apperr.Validation("unknown role"))
			return
		}
		q = q.Where("role = ?", role)
	}
	if text := strings.ToLower(strings.TrimSpace(c.Query("q"))); text != "" {
		like := "%" + text + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, pc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Person
	if err := p.Apply(q).Find(&out).Error; err != nil {
		response.Error(c, pc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

// managedPerson loads the person id the caller may administer. People of
// other societies are reported as missing, and nobody administers
// themselves or someone at or above their own level.
func managedPerson(db *gorm.DB, caller *models.Person, id string) (*models.Person, error) {
	if caller.ID == id {
		return nil, apperr.Authorization("cannot change your own role")
	}
	target, err := loadPerson(db, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleSuperAdmin && target.Society() != caller.Society() {
		return nil, apperr.NotFound("person not found")
	}
	if !authz.CanAssignRole(caller, target.Role) {
		return nil, apperr.Authorization("cannot manage a person with role " + string(target.Role))
	}
	return target, nil
}

func (pc *PersonController) UpdateRole(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, pc.Log, err)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		response.Error(c, pc.Log, apperr.Validation("unknown role"))
		return
	}
	caller := currentPerson(c)
	if !authz.CanAssignRole(caller, role) {
		response.Error(c, pc.Log, apperr.Authorization("cannot assign role "+string(role)))
		return
	}

	var target *models.Person
	err = pc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = managedPerson(tx, caller, id); err != nil {
			return err
		}
		if role == models.RoleVisitor {
			return detachPerson(tx, target)
		}
		updates := map[string]any{"role": role}
		societyID := target.Society()
		if req.SocietyID != "" {
			if societyID, err = targetSociety(caller, req.SocietyID); err != nil {
				return err
			}
			var society models.Society
			if err := tx.Select("id").First(&society, "id = ?", societyID).Error; err != nil {
				return apperr.FromDB(err, "society not found")
			}
			updates["society_id"] = societyID
		}
		if societyID == "" && role != models.RoleSuperAdmin {
			return apperr.Validation("societyId is required for role " + string(role))
		}
		if err := tx.Model(&models.Person{}).Where("id = ?", target.ID).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "person not found")
		}
		return tx.First(target, "id = ?", target.ID).Error
	})
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	pc.Log.Info(c.Request.Context(), "role changed", "target_id", target.ID, "role", target.Role, "person_id", caller.ID)
	response.OK(c, target)
}

// ResetRole demotes a person to VISITOR and removes them from their
// society and flats. People are never deleted.
func (pc *PersonController) ResetRole(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	caller := currentPerson(c)
	var target *models.Person
	err = pc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = managedPerson(tx, caller, id); err != nil {
			return err
		}
		return detachPerson(tx, target)
	})
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	pc.Log.Info(c.Request.Context(), "role reset", "target_id", target.ID, "person_id", caller.ID)
	response.OK(c, target)
}

func detachPerson(tx *gorm.DB, p *models.Person) error {
	if err := tx.Model(&models.Flat{}).Where("owner_id = ?", p.ID).
		Update("owner_id", nil).Error; err != nil {
		return apperr.FromDB(err, "")
	}
	if err := tx.Model(&models.Flat{}).Where("resident_id = ?", p.ID).
		Updates(map[string]any{"resident_id": nil, "is_occupied": false}).Error; err != nil {
		return apperr.FromDB(err, "")
	}
	if err := tx.Model(&models.Staff{}).Where("person_id = ?", p.ID).
		Update("active", false).Error; err != nil {
		return apperr.FromDB(err, "")
	}
	if err := tx.Model(&models.Person{}).Where("id = ?", p.ID).Updates(map[string]any{
		"role":        models.RoleVisitor,
		"society_id":  nil,
		"building_id": nil,
		"flat_id":     nil,
	}).Error; err != nil {
		return apperr.FromDB(err, "person not found")
	}
	p.Role = models.RoleVisitor
	p.SocietyID, p.BuildingID, p.FlatID = nil, nil, nil
	return nil
}
