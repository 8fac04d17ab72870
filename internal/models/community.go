package models

import "time"

type Notice struct {
	Base
	SocietyID  string    `gorm:"size:36;index;not null" json:"societyId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PostedByID string    `gorm:"size:36;not null" json:"postedById"`
	PostedAt   time.Time `gorm:"index" json:"postedAt"`
}

type EmergencyContact struct {
	Base
	SocietyID   string `gorm:"size:36;index;not null" json:"societyId"`
	Name        string `gorm:"size:200;not null" json:"name"`
	PhoneNumber string `gorm:"size:32;not null" json:"phoneNumber"`
	Email       string `gorm:"size:191" json:"email"`
	Designation string `gorm:"size:100;not null" json:"designation"`
	CreatedByID string `gorm:"size:36" json:"createdById"`
}

// Staff is the payroll-side record of a society employee. Salary is in
// minor currency units.
type Staff struct {
	Base
	SocietyID string  `gorm:"size:36;index;not null" json:"societyId"`
	PersonID  *string `gorm:"size:36;index" json:"personId"`
	Name      string  `gorm:"size:200;not null" json:"name"`
	Role      Role    `gorm:"size:32;not null" json:"role"`
	Salary    int64   `json:"salary"`
	Active    bool    `json:"active"`
}

type Facility string

const (
	FacilityClubhouse     Facility = "CLUBHOUSE"
	FacilityGym           Facility = "GYM"
	FacilityPool          Facility = "POOL"
	FacilityCommunityHall Facility = "COMMUNITY_HALL"
	FacilityTennisCourt   Facility = "TENNIS_COURT"
)

func (f Facility) Valid() bool {
	switch f {
	case FacilityClubhouse, FacilityGym, FacilityPool, FacilityCommunityHall, FacilityTennisCourt:
		return true
	}
	return false
}

type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	Base
	SocietyID string        `gorm:"size:36;index:idx_booking_slot,priority:1;not null" json:"societyId"`
	Facility  Facility      `gorm:"size:32;index:idx_booking_slot,priority:2;not null" json:"facility"`
	PersonID  string        `gorm:"size:36;index;not null" json:"personId"`
	StartTime time.Time     `gorm:"index:idx_booking_slot,priority:3;not null" json:"startTime"`
	EndTime   time.Time     `gorm:"not null" json:"endTime"`
	Reason    string        `gorm:"type:text" json:"reason"`
	Status    BookingStatus `gorm:"size:16;not null" json:"status"`
}

func (Staff) TableName() string { return "staff" }
