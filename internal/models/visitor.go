package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VisitorStatus string

const (
	VisitorPending    VisitorStatus = "PENDING"
	VisitorCheckedIn  VisitorStatus = "CHECKED_IN"
	VisitorCheckedOut VisitorStatus = "CHECKED_OUT"
)

// rank orders statuses; transitions only move to a higher rank.
func (s VisitorStatus) rank() int {
	switch s {
	case VisitorPending:
		return 0
	case VisitorCheckedIn:
		return 1
	case VisitorCheckedOut:
		return 2
	}
	return -1
}

// Precedes reports whether next directly follows s, the only move the
// gate may make.
func (s VisitorStatus) Precedes(next VisitorStatus) bool {
	return s.rank() >= 0 && next.rank() == s.rank()+1
}

// Visitor is a pre-approved visit. Token is single-use for check-in; the
// status column, not token removal, enforces that.
type Visitor struct {
	ID              string        `gorm:"size:36;primaryKey" json:"id"`
	Name            string        `gorm:"size:200;not null" json:"name"`
	PhoneNumber     string        `gorm:"size:32;not null" json:"phoneNumber"`
	VehicleNumber   *string       `gorm:"size:32" json:"vehicleNumber"`
	Purpose         string        `gorm:"type:text;not null" json:"purpose"`
	VisitingFlatID  string        `gorm:"size:36;index;not null" json:"visitingFlatId"`
	PreApprovedByID string        `gorm:"size:36;index;not null" json:"preApprovedById"`
	Token           string        `gorm:"size:64;uniqueIndex;not null" json:"qrCodeToken"`
	Status          VisitorStatus `gorm:"size:16;index;not null" json:"status"`
	ImageURL        *string       `gorm:"type:text" json:"imageUrl"`
	CreatedAt       time.Time     `json:"createdAt"`
	CheckInTime     *time.Time    `json:"checkInTime"`
	CheckOutTime    *time.Time    `json:"checkOutTime"`

	VisitingFlat *Flat `gorm:"foreignKey:VisitingFlatID" json:"visitingFlat,omitempty"`
}

func (v *Visitor) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

type PersonType string

const (
	PersonTypeVisitor  PersonType = "VISITOR"
	PersonTypeResident PersonType = "RESIDENT"
	PersonTypeVendor   PersonType = "VENDOR"
	PersonTypeDelivery PersonType = "DELIVERY"
	PersonTypeStaff    PersonType = "STAFF"
	PersonTypeOther    PersonType = "OTHER"
)

func (t PersonType) Valid() bool {
	switch t {
	case PersonTypeVisitor, PersonTypeResident, PersonTypeVendor,
		PersonTypeDelivery, PersonTypeStaff, PersonTypeOther:
		return true
	}
	return false
}

// EntryLog is the append-only gate ledger for traffic not covered by
// pre-approval. OutTime is written once.
type EntryLog struct {
	ID            string     `gorm:"size:36;primaryKey" json:"id"`
	PersonType    PersonType `gorm:"size:16;not null" json:"personType"`
	PersonName    string     `gorm:"size:200;not null" json:"personName"`
	PersonID      *string    `gorm:"size:36" json:"personId"`
	VehicleNumber *string    `gorm:"size:32" json:"vehicleNumber"`
	SocietyID     string     `gorm:"size:36;index;not null" json:"societyId"`
	WatchmanID    string     `gorm:"size:36;index;not null" json:"watchmanId"`
	InTime        time.Time  `gorm:"index;not null" json:"inTime"`
	OutTime       *time.Time `gorm:"index" json:"outTime"`
}

func (EntryLog) TableName() string { return "entry_logs" }

func (e *EntryLog) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
