package controllers

import (
	"errors"
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

// JoinRequestController handles people asking to join a society and the
// admins deciding on them.
type JoinRequestController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type createJoinRequest struct {
	SocietyID     string         `json:"societyId"`
	RequestedRole string         `json:"requestedRole"`
	PhoneNumber   FlexibleString `json:"phoneNumber"`
	BuildingID    *string        `json:"buildingId"`
	FlatID        *string        `json:"flatId"`
}

type decideJoinRequest struct {
	Action string `json:"action"`
}

var joinRequestSorts = map[string]string{
	"created_at": "created_at",
}

func (jc *JoinRequestController) Create(c *gin.Context) {
	caller := currentPerson(c)
	if caller == nil {
		response.Error(c, jc.Log, authz.Authorize(nil))
		return
	}
	var req createJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, jc.Log, err)
		return
	}
	role, ok := models.ParseRole(req.RequestedRole)
	if !ok || role.In(models.RoleSuperAdmin, models.RoleSocietyAdmin, models.RoleVisitor) {
		response.Error(c, jc.Log, apperr.Validation("requestedRole is not requestable"))
		return
	}
	societyID := strings.TrimSpace(req.SocietyID)
	if !utils.ValidID(societyID) {
		response.Error(c, jc.Log, apperr.Validation("societyId is required"))
		return
	}
	if caller.Society() != "" {
		response.Error(c, jc.Log, apperr.InvalidState("already a member of a society"))
		return
	}
	phone := req.PhoneNumber.Phone()
	if phone == "" {
		phone = caller.PhoneNumber
	}

	jr := models.JoinRequest{
		PersonID:      caller.ID,
		SocietyID:     societyID,
		RequestedRole: role,
		PhoneNumber:   phone,
		BuildingID:    optionalString(req.BuildingID),
		FlatID:        optionalString(req.FlatID),
		Status:        models.JoinRequestPending,
	}
	err := jc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var society models.Society
		if err := tx.Select("id").First(&society, "id = ?", societyID).Error; err != nil {
			return apperr.FromDB(err, "society not found")
		}
		if err := checkPlacement(tx, societyID, jr.BuildingID, jr.FlatID); err != nil {
			return err
		}

		var existing models.JoinRequest
		err := tx.Where("person_id = ?", caller.ID).First(&existing).Error
		switch {
		case err == nil && existing.Status == models.JoinRequestPending:
			return apperr.Conflict("a join request is already pending")
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return apperr.FromDB(err, "")
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return apperr.FromDB(err, "")
		}
		if err := tx.Create(&jr).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflict("a join request is already pending")
			}
			return apperr.FromDB(err, "")
		}
		return nil
	})
	if err != nil {
		response.Error(c, jc.Log, err)
		return
	}
	response.Created(c, jr)
}

// checkPlacement verifies the optional building and flat belong to the society.
func checkPlacement(tx *gorm.DB, societyID string, buildingID, flatID *string) error {
	if buildingID != nil {
		if !utils.ValidID(*buildingID) {
			return apperr.Validation("invalid buildingId")
		}
		var n int64
		if err := tx.Model(&models.Building{}).Where("id = ? AND society_id = ?", *buildingID, societyID).Count(&n).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		if n == 0 {
			return apperr.NotFound("building not found")
		}
	}
	if flatID != nil {
		if !utils.ValidID(*flatID) {
			return apperr.Validation("invalid flatId")
		}
		q := tx.Model(&models.Flat{}).
			Joins("JOIN buildings ON buildings.id = flats.building_id").
			Where("flats.id = ? AND buildings.society_id = ?", *flatID, societyID)
		if buildingID != nil {
			q = q.Where("flats.building_id = ?", *buildingID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		if n == 0 {
			return apperr.NotFound("flat not found")
		}
	}
	return nil
}

func (jc *JoinRequestController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, jc.Log, err)
		return
	}
	status := models.JoinRequestStatus(strings.ToUpper(c.DefaultQuery("status", string(models.JoinRequestPending))))
	if status != models.JoinRequestPending && status != models.JoinRequestRejected {
		response.Error(c, jc.Log, apperr.Validation("unknown status"))
		return
	}
	p := listParams(c, joinRequestSorts, "created_at")
	q := jc.DB.WithContext(c.Request.Context()).Model(&models.JoinRequest{}).Where("status = ?", status)
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, jc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.JoinRequest
	if err := p.Apply(q.Preload("Person")).Find(&out).Error; err != nil {
		response.Error(c, jc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

// Decide approves or rejects a pending request. Approval moves the person
// into the society with the requested role and removes the request.
func (jc *JoinRequestController) Decide(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, jc.Log, err)
		return
	}
	var req decideJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, jc.Log, err)
		return
	}
	action := strings.ToUpper(strings.TrimSpace(req.Action))
	if action != "APPROVE" && action != "REJECT" {
		response.Error(c, jc.Log, apperr.Validation("action must be APPROVE or REJECT"))
		return
	}
	caller := currentPerson(c)

	var (
		jr     models.JoinRequest
		person models.Person
	)
	err = jc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&jr, "id = ?", id).Error; err != nil {
			return apperr.FromDB(err, "join request not found")
		}
		if !authz.InSociety(caller, jr.SocietyID) {
			return apperr.NotFound("join request not found")
		}
		if jr.Status != models.JoinRequestPending {
			return apperr.InvalidState("join request is not pending")
		}
		if !authz.CanAssignRole(caller, jr.RequestedRole) {
			return apperr.Authorization("cannot assign role " + string(jr.RequestedRole))
		}

		if action == "REJECT" {
			res := tx.Model(&models.JoinRequest{}).
				Where("id = ? AND status = ?", jr.ID, models.JoinRequestPending).
				Update("status", models.JoinRequestRejected)
			if res.Error != nil {
				return apperr.FromDB(res.Error, "")
			}
			if res.RowsAffected == 0 {
				return apperr.InvalidState("join request is not pending")
			}
			jr.Status = models.JoinRequestRejected
			return nil
		}
		return approveJoinRequest(tx, &jr, &person)
	})
	if err != nil {
		response.Error(c, jc.Log, err)
		return
	}

	jc.Log.Info(c.Request.Context(), "join request decided", "request_id", jr.ID, "action", action, "person_id", caller.ID)
	if action == "REJECT" {
		response.OK(c, gin.H{"request": jr})
		return
	}
	response.OK(c, gin.H{"request": jr, "person": person})
}

func approveJoinRequest(tx *gorm.DB, jr *models.JoinRequest, person *models.Person) error {
	if err := tx.First(person, "id = ?", jr.PersonID).Error; err != nil {
		return apperr.FromDB(err, "person not found")
	}
	if person.Society() != "" && person.Society() != jr.SocietyID {
		return apperr.InvalidState("person already belongs to another society")
	}
	if jr.FlatID != nil && jr.RequestedRole.IsResident() {
		var flat models.Flat
		if err := tx.Preload("Building").First(&flat, "id = ?", *jr.FlatID).Error; err != nil {
			return apperr.FromDB(err, "flat not found")
		}
		if flat.Building == nil || flat.Building.SocietyID != jr.SocietyID {
			return apperr.NotFound("flat not found")
		}
		asOwner := jr.RequestedRole == models.RoleHouseOwner
		if err := attachToFlat(tx, &flat, flat.Building, person, asOwner); err != nil {
			return err
		}
	}

	// The requested role wins over the promotion done by attachToFlat.
	updates := map[string]any{
		"role":       jr.RequestedRole,
		"society_id": jr.SocietyID,
	}
	if jr.BuildingID != nil {
		updates["building_id"] = *jr.BuildingID
	}
	if jr.FlatID != nil {
		updates["flat_id"] = *jr.FlatID
	}
	if jr.PhoneNumber != "" {
		updates["phone_number"] = jr.PhoneNumber
	}
	if err := tx.Model(&models.Person{}).Where("id = ?", person.ID).Updates(updates).Error; err != nil {
		return apperr.FromDB(err, "person not found")
	}
	if err := tx.First(person, "id = ?", person.ID).Error; err != nil {
		return apperr.FromDB(err, "person not found")
	}

	if jr.RequestedRole.IsStaff() {
		staff := models.Staff{
			SocietyID: jr.SocietyID,
			PersonID:  &person.ID,
			Name:      person.Name,
			Role:      jr.RequestedRole,
			Active:    true,
		}
		if err := tx.Create(&staff).Error; err != nil {
			return apperr.FromDB(err, "")
		}
	}

	if err := tx.Delete(&models.JoinRequest{}, "id = ?", jr.ID).Error; err != nil {
		return apperr.FromDB(err, "")
	}
	return nil
}
