package controllers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
)

type BookingController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type createBookingRequest struct {
	Facility  string    `json:"facility"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Reason    string    `json:"reason"`
}

var bookingSorts = map[string]string{
	"start_time": "start_time",
	"created_at": "created_at",
}

// Create books a facility slot. Slots of the same facility in one society
// may not overlap while BOOKED.
func (bc *BookingController) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bc.Log, err)
		return
	}
	caller := currentPerson(c)
	societyID, err := targetSociety(caller, "")
	if err != nil {
		response.Error(c, bc.Log, err)
		return
	}
	facility := models.Facility(strings.ToUpper(strings.TrimSpace(req.Facility)))
	if !facility.Valid() {
		response.Error(c, bc.Log, apperr.Validation("unknown facility"))
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.StartTime.Before(req.EndTime) {
		response.Error(c, bc.Log, apperr.Validation("startTime must be before endTime"))
		return
	}

	b := models.Booking{
		SocietyID: societyID,
		Facility:  facility,
		PersonID:  caller.ID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Reason:    strings.TrimSpace(req.Reason),
		Status:    models.BookingBooked,
	}
	err = bc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var clashes int64
		if err := tx.Model(&models.Booking{}).
			Where("society_id = ? AND facility = ? AND status = ?", societyID, facility, models.BookingBooked).
			Where("start_time < ? AND end_time > ?", b.EndTime, b.StartTime).
			Count(&clashes).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		if clashes > 0 {
			return apperr.Conflict("facility is already booked for that time")
		}
		if err := tx.Create(&b).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		return nil
	})
	if err != nil {
		response.Error(c, bc.Log, err)
		return
	}
	response.Created(c, b)
}

// List shows managers every booking of their society and everyone else
// their own.
func (bc *BookingController) List(c *gin.Context) {
	caller := currentPerson(c)
	scope, err := authz.SocietyScope(caller)
	if err != nil {
		response.Error(c, bc.Log, err)
		return
	}
	p := listParams(c, bookingSorts, "start_time")
	q := bc.DB.WithContext(c.Request.Context()).Model(&models.Booking{})
	switch {
	case caller.Role.In(models.ManagerRoles...):
		if scope != "" {
			q = q.Where("society_id = ?", scope)
		}
	default:
		q = q.Where("person_id = ?", caller.ID)
	}
	if v := c.Query("facility"); v != "" {
		f := models.Facility(strings.ToUpper(v))
		if !f.Valid() {
			response.Error(c, bc.Log, apperr.Validation("unknown facility"))
			return
		}
		q = q.Where("facility = ?", f)
	}
	if v := c.Query("status"); v != "" {
		q = q.Where("status = ?", strings.ToUpper(v))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Booking
	if err := p.Apply(q).Find(&out).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

// Cancel cancels the caller's own booking; managers may cancel any booking
// of their society.
func (bc *BookingController) Cancel(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, bc.Log, err)
		return
	}
	caller := currentPerson(c)
	db := bc.DB.WithContext(c.Request.Context())
	var b models.Booking
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		response.Error(c, bc.Log, apperr.FromDB(err, "booking not found"))
		return
	}
	if !authz.InSociety(caller, b.SocietyID) {
		response.Error(c, bc.Log, apperr.NotFound("booking not found"))
		return
	}
	if b.PersonID != caller.ID && !caller.Role.In(models.ManagerRoles...) {
		response.Error(c, bc.Log, apperr.Authorization("only the booker or a manager can cancel"))
		return
	}
	res := db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", b.ID, models.BookingBooked).
		Update("status", models.BookingCancelled)
	if res.Error != nil {
		response.Error(c, bc.Log, apperr.FromDB(res.Error, ""))
		return
	}
	if res.RowsAffected == 0 {
		response.Error(c, bc.Log, apperr.InvalidState("booking already cancelled"))
		return
	}
	b.Status = models.BookingCancelled
	response.OK(c, b)
}
