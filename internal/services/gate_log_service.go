package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/utils"
	"github.com/societyhub/society_backend/internal/ws"
)

type LogEntryInput struct {
	PersonType    string
	PersonName    string
	PersonID      *string
	VehicleNumber *string
	// SocietyID is required from super admins only; everyone else logs
	// for their own society.
	SocietyID string
}

type GateLogFilter struct {
	Open       bool
	Today      bool
	PersonType string
	SocietyID  string
}

// GateLogService maintains the entry ledger for traffic that was not
// pre-approved.
type GateLogService struct {
	db       *gorm.DB
	log      logging.Logger
	notifier Notifier
	now      Clock
}

func NewGateLogService(db *gorm.DB, log logging.Logger, notifier Notifier) *GateLogService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &GateLogService{db: db, log: log.With("component", "gate_log"), notifier: notifier, now: utcNow}
}

func (s *GateLogService) WithClock(now Clock) *GateLogService {
	s.now = now
	return s
}

func (s *GateLogService) societyFor(caller *models.Person, requested string) (string, error) {
	scope, err := authz.SocietyScope(caller)
	if err != nil {
		return "", err
	}
	requested = strings.TrimSpace(requested)
	if scope == "" {
		if requested == "" {
			return "", apperr.Validation("societyId is required")
		}
		if !utils.ValidID(requested) {
			return "", apperr.Validation("invalid societyId")
		}
		return requested, nil
	}
	if requested != "" && requested != scope {
		return "", apperr.Authorization("cannot log entries for another society")
	}
	return scope, nil
}

// LogEntry records someone passing the gate inward.
func (s *GateLogService) LogEntry(ctx context.Context, caller *models.Person, in LogEntryInput) (*models.EntryLog, error) {
	if err := authz.Authorize(caller, models.GateRoles...); err != nil {
		return nil, err
	}
	societyID, err := s.societyFor(caller, in.SocietyID)
	if err != nil {
		return nil, err
	}
	personType := models.PersonType(strings.ToUpper(strings.TrimSpace(in.PersonType)))
	if !personType.Valid() {
		return nil, apperr.Validation("personType must be one of VISITOR, RESIDENT, VENDOR, DELIVERY, STAFF, OTHER")
	}

	db := s.db.WithContext(ctx)
	name := utils.NormalizeName(in.PersonName)
	var personID *string
	if in.PersonID != nil && strings.TrimSpace(*in.PersonID) != "" {
		id := strings.TrimSpace(*in.PersonID)
		if !utils.ValidID(id) {
			return nil, apperr.Validation("invalid personId")
		}
		var p models.Person
		if err := db.Where("id = ? AND society_id = ?", id, societyID).First(&p).Error; err != nil {
			return nil, apperr.FromDB(err, "person not found")
		}
		personID = &p.ID
		if name == "" {
			name = p.Name
		}
	}
	if name == "" {
		return nil, apperr.Validation("personName is required")
	}

	entry := &models.EntryLog{
		PersonType:    personType,
		PersonName:    name,
		PersonID:      personID,
		VehicleNumber: utils.OptionalCode(in.VehicleNumber),
		SocietyID:     societyID,
		WatchmanID:    caller.ID,
		InTime:        s.now(),
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, apperr.FromDB(err, "society not found")
	}
	s.log.Info(ctx, "gate entry logged", "entry_id", entry.ID, "society_id", societyID, "person_type", personType)
	s.notifier.Publish(ctx, ws.Event{Type: ws.EventGateEntry, SocietyID: societyID, At: entry.InTime, EntryLog: entry})
	return entry, nil
}

// LogExit sets the out time of an open entry. A second exit is an error,
// not a no-op.
func (s *GateLogService) LogExit(ctx context.Context, caller *models.Person, id string) (*models.EntryLog, error) {
	if err := authz.Authorize(caller, models.GateRoles...); err != nil {
		return nil, err
	}
	scope, err := authz.SocietyScope(caller)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("id is required")
	}
	if !utils.ValidID(id) {
		return nil, apperr.Validation("invalid id")
	}

	db := s.db.WithContext(ctx)
	now := s.now()
	q := db.Model(&models.EntryLog{}).Where("id = ? AND out_time IS NULL", id)
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	res := q.Update("out_time", now)
	if res.Error != nil {
		return nil, apperr.Internal("could not record exit", res.Error)
	}

	var entry models.EntryLog
	if err := db.Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("entry log not found")
		}
		return nil, apperr.Internal("could not load entry log", err)
	}
	if !authz.InSociety(caller, entry.SocietyID) {
		return nil, apperr.NotFound("entry log not found")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidState("exit already recorded")
	}
	s.log.Info(ctx, "gate exit logged", "entry_id", entry.ID, "society_id", entry.SocietyID)
	s.notifier.Publish(ctx, ws.Event{Type: ws.EventGateExit, SocietyID: entry.SocietyID, At: now, EntryLog: &entry})
	return &entry, nil
}

func (s *GateLogService) List(ctx context.Context, caller *models.Person, f GateLogFilter, p utils.ListParams) ([]models.EntryLog, int64, error) {
	if err := authz.Authorize(caller, models.GateRoles...); err != nil {
		return nil, 0, err
	}
	q := s.db.WithContext(ctx).Model(&models.EntryLog{})
	scope, err := authz.SocietyScope(caller)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case scope != "":
		q = q.Where("society_id = ?", scope)
	case f.SocietyID != "":
		if !utils.ValidID(f.SocietyID) {
			return nil, 0, apperr.Validation("invalid societyId")
		}
		q = q.Where("society_id = ?", f.SocietyID)
	}
	if f.Open {
		q = q.Where("out_time IS NULL")
	}
	if f.Today {
		now := s.now()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		q = q.Where("in_time >= ?", start)
	}
	if f.PersonType != "" {
		q = q.Where("person_type = ?", strings.ToUpper(f.PersonType))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("could not count entry logs", err)
	}
	var out []models.EntryLog
	if err := p.Apply(q).Find(&out).Error; err != nil {
		return nil, 0, apperr.Internal("could not list entry logs", err)
	}
	return out, total, nil
}
