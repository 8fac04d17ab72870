package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/utils"
	"github.com/societyhub/society_backend/internal/ws"
)

type PreApproveInput struct {
	VisitorName   string
	PhoneNumber   string
	Purpose       string
	FlatNumber    string
	FlatID        string
	VehicleNumber *string
	ImageURL      *string
	ResidentName  string
}

type VisitorFilter struct {
	Status string
}

type VisitorService struct {
	db       *gorm.DB
	log      logging.Logger
	notifier Notifier
	baseURL  string
	now      Clock
	newToken func() (string, error)
}

func NewVisitorService(db *gorm.DB, log logging.Logger, notifier Notifier, appBaseURL string) *VisitorService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &VisitorService{
		db:       db,
		log:      log.With("component", "visitor"),
		notifier: notifier,
		baseURL:  strings.TrimRight(appBaseURL, "/"),
		now:      utcNow,
		newToken: utils.GenerateToken,
	}
}

// WithClock replaces the time source.
func (s *VisitorService) WithClock(now Clock) *VisitorService {
	s.now = now
	return s
}

// CheckInURL is the link encoded in the visitor's QR code.
func (s *VisitorService) CheckInURL(token string) string {
	return s.baseURL + "/visitor/checkin?token=" + url.QueryEscape(token)
}

// PreApprove registers an expected visitor for a flat the caller may
// approve for and returns it with its check-in URL.
func (s *VisitorService) PreApprove(ctx context.Context, caller *models.Person, in PreApproveInput) (*models.Visitor, string, error) {
	if caller == nil {
		return nil, "", apperr.Authentication("not signed in")
	}
	in.VisitorName = utils.NormalizeName(in.VisitorName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.FlatNumber = utils.NormalizeCode(in.FlatNumber)
	in.FlatID = strings.TrimSpace(in.FlatID)
	switch {
	case in.VisitorName == "":
		return nil, "", apperr.Validation("visitorName is required")
	case in.PhoneNumber == "":
		return nil, "", apperr.Validation("phoneNumber is required")
	case in.Purpose == "":
		return nil, "", apperr.Validation("purpose is required")
	case in.FlatNumber == "" && in.FlatID == "":
		return nil, "", apperr.Validation("flatNumber is required")
	case in.FlatID != "" && !utils.ValidID(in.FlatID):
		return nil, "", apperr.Validation("invalid flatId")
	}

	db := s.db.WithContext(ctx)
	flat, err := s.resolveFlat(db, caller, in)
	if err != nil {
		return nil, "", err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, "", apperr.Internal("could not generate token", err)
	}
	visitor := &models.Visitor{
		Name:            in.VisitorName,
		PhoneNumber:     in.PhoneNumber,
		VehicleNumber:   utils.OptionalCode(in.VehicleNumber),
		Purpose:         in.Purpose,
		VisitingFlatID:  flat.ID,
		PreApprovedByID: caller.ID,
		Token:           token,
		Status:          models.VisitorPending,
		ImageURL:        trimmedOrNil(in.ImageURL),
		CreatedAt:       s.now(),
	}
	if err := db.Create(visitor).Error; err != nil {
		return nil, "", apperr.FromDB(err, "flat not found")
	}
	visitor.VisitingFlat = flat

	societyID := ""
	if flat.Building != nil {
		societyID = flat.Building.SocietyID
	}
	s.log.Info(ctx, "visitor pre-approved",
		"visitor_id", visitor.ID, "flat_id", flat.ID, "society_id", societyID,
		"token", utils.Fingerprint(token), "approved_by", caller.ID)
	s.notifier.Publish(ctx, ws.Event{
		Type: ws.EventVisitorPreApproved, SocietyID: societyID, At: visitor.CreatedAt, Visitor: visitor,
	})
	return visitor, s.CheckInURL(token), nil
}

// resolveFlat picks the flat a visit is approved for. Owners and occupants
// may only approve for their own flats; society managers for any flat of
// their society; super admins for any flat.
func (s *VisitorService) resolveFlat(db *gorm.DB, caller *models.Person, in PreApproveInput) (*models.Flat, error) {
	if caller.Role.In(models.ManagerRoles...) {
		q := db.Model(&models.Flat{}).Preload("Building").
			Joins("JOIN buildings ON buildings.id = flats.building_id")
		if caller.Role != models.RoleSuperAdmin {
			scope, err := authz.SocietyScope(caller)
			if err != nil {
				return nil, err
			}
			q = q.Where("buildings.society_id = ?", scope)
		}
		if in.FlatID != "" {
			q = q.Where("flats.id = ?", in.FlatID)
		} else {
			q = q.Where("flats.flat_number = ?", in.FlatNumber)
		}
		var flats []models.Flat
		if err := q.Limit(2).Find(&flats).Error; err != nil {
			return nil, apperr.Internal("could not load flat", err)
		}
		switch len(flats) {
		case 0:
			return nil, apperr.NotFound("flat not found")
		case 1:
			return &flats[0], nil
		}
		return nil, apperr.Validation("flatNumber matches several buildings; pass flatId")
	}

	var owned []models.Flat
	err := db.Preload("Building").
		Where("owner_id = ? OR resident_id = ?", caller.ID, caller.ID).
		Find(&owned).Error
	if err != nil {
		return nil, apperr.Internal("could not load flats", err)
	}
	if len(owned) == 0 {
		return nil, apperr.NotFound("no flat associated with caller")
	}
	for i := range owned {
		f := &owned[i]
		if in.FlatID != "" && f.ID == in.FlatID {
			return f, nil
		}
		if in.FlatID == "" && f.FlatNumber == in.FlatNumber {
			return f, nil
		}
	}
	return nil, apperr.Authorization("caller cannot approve visitors for this flat")
}

// Lookup returns the visitor for token if the caller may act on it.
func (s *VisitorService) Lookup(ctx context.Context, caller *models.Person, token string) (*models.Visitor, error) {
	if err := authz.Authorize(caller, models.GateRoles...); err != nil {
		return nil, err
	}
	v, _, err := s.findByToken(ctx, caller, token)
	return v, err
}

func (s *VisitorService) findByToken(ctx context.Context, caller *models.Person, token string) (*models.Visitor, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, "", apperr.Validation("token is required")
	}
	var v models.Visitor
	err := s.db.WithContext(ctx).Preload("VisitingFlat.Building").
		Where("token = ?", token).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.NotFound("visitor not found")
		}
		return nil, "", apperr.Internal("could not load visitor", err)
	}
	societyID := ""
	if v.VisitingFlat != nil && v.VisitingFlat.Building != nil {
		societyID = v.VisitingFlat.Building.SocietyID
	}
	if !authz.InSociety(caller, societyID) {
		return nil, "", apperr.NotFound("visitor not found")
	}
	return &v, societyID, nil
}

// CheckIn moves a PENDING visitor to CHECKED_IN. The transition is a single
// conditional update so concurrent scans of one token admit one visitor.
func (s *VisitorService) CheckIn(ctx context.Context, caller *models.Person, token string) (*models.Visitor, error) {
	if err := authz.Authorize(caller, models.GateRoles...); err != nil {
		return nil, err
	}
	v, societyID, err := s.findByToken(ctx, caller, token)
	if err != nil {
		return nil, err
	}

	if !v.Status.Precedes(models.VisitorCheckedIn) {
		return nil, refusal(v.Status)
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Visitor{}).
		Where("id = ? AND status = ?", v.ID, models.VisitorPending).
		Updates(map[string]any{"status": models.VisitorCheckedIn, "check_in_time": now})
	if res.Error != nil {
		return nil, apperr.Internal("could not check in visitor", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.transitionRefused(ctx, v.ID, v.Status)
	}
	v.Status = models.VisitorCheckedIn
	v.CheckInTime = &now

	s.log.Info(ctx, "visitor checked in", "visitor_id", v.ID, "society_id", societyID, "gate_person_id", caller.ID)
	s.notifier.Publish(ctx, ws.Event{
		Type: ws.EventVisitorCheckedIn, SocietyID: societyID, RecipientID: v.PreApprovedByID,
		At: now, Visitor: v, Message: v.Name + " has arrived",
	})
	return v, nil
}

// CheckOut moves a CHECKED_IN visitor to CHECKED_OUT. A clock that has not
// advanced past the check-in time is refused, never corrected.
func (s *VisitorService) CheckOut(ctx context.Context, caller *models.Person, token string) (*models.Visitor, error) {
	if err := authz.Authorize(caller, models.GateRoles...); err != nil {
		return nil, err
	}
	v, societyID, err := s.findByToken(ctx, caller, token)
	if err != nil {
		return nil, err
	}
	if !v.Status.Precedes(models.VisitorCheckedOut) {
		return nil, refusal(v.Status)
	}

	now := s.now()
	if v.CheckInTime == nil || !now.After(*v.CheckInTime) {
		return nil, apperr.InvalidState("check-out time must be after check-in time")
	}
	res := s.db.WithContext(ctx).Model(&models.Visitor{}).
		Where("id = ? AND status = ?", v.ID, models.VisitorCheckedIn).
		Updates(map[string]any{"status": models.VisitorCheckedOut, "check_out_time": now})
	if res.Error != nil {
		return nil, apperr.Internal("could not check out visitor", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.transitionRefused(ctx, v.ID, v.Status)
	}
	v.Status = models.VisitorCheckedOut
	v.CheckOutTime = &now

	s.log.Info(ctx, "visitor checked out", "visitor_id", v.ID, "society_id", societyID, "gate_person_id", caller.ID)
	s.notifier.Publish(ctx, ws.Event{
		Type: ws.EventVisitorCheckedOut, SocietyID: societyID, RecipientID: v.PreApprovedByID,
		At: now, Visitor: v, Message: v.Name + " has left",
	})
	return v, nil
}

// transitionRefused explains why a conditional update matched no row,
// re-reading the status another request may have changed.
func (s *VisitorService) transitionRefused(ctx context.Context, id string, seen models.VisitorStatus) error {
	status := seen
	var cur models.Visitor
	if err := s.db.WithContext(ctx).Select("status").Where("id = ?", id).First(&cur).Error; err == nil {
		status = cur.Status
	}
	return refusal(status)
}

// refusal names the state that blocks a gate transition.
func refusal(status models.VisitorStatus) error {
	switch status {
	case models.VisitorCheckedIn:
		return apperr.InvalidState("visitor already checked in")
	case models.VisitorCheckedOut:
		return apperr.InvalidState("visitor already checked out")
	}
	return apperr.InvalidState("visitor has not checked in")
}

// List returns visitors visible to the caller: gate staff and managers see
// their society, everyone else only their own pre-approvals.
func (s *VisitorService) List(ctx context.Context, caller *models.Person, f VisitorFilter, p utils.ListParams) ([]models.Visitor, int64, error) {
	if caller == nil {
		return nil, 0, apperr.Authentication("not signed in")
	}
	q := s.db.WithContext(ctx).Model(&models.Visitor{})
	if caller.Role.In(models.GateRoles...) {
		scope, err := authz.SocietyScope(caller)
		if err != nil {
			return nil, 0, err
		}
		if scope != "" {
			q = q.Joins("JOIN flats ON flats.id = visitors.visiting_flat_id").
				Joins("JOIN buildings ON buildings.id = flats.building_id").
				Where("buildings.society_id = ?", scope)
		}
	} else {
		q = q.Where("visitors.pre_approved_by_id = ?", caller.ID)
	}
	if f.Status != "" {
		status := models.VisitorStatus(strings.ToUpper(f.Status))
		if status != models.VisitorPending && status != models.VisitorCheckedIn && status != models.VisitorCheckedOut {
			return nil, 0, apperr.Validation("unknown visitor status")
		}
		q = q.Where("visitors.status = ?", status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("could not count visitors", err)
	}
	var out []models.Visitor
	if err := p.Apply(q.Preload("VisitingFlat")).Select("visitors.*").Find(&out).Error; err != nil {
		return nil, 0, apperr.Internal("could not list visitors", err)
	}
	return out, total, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
