package models

// Person maps an identity-provider subject to a profile and a role.
// Rows are never hard-deleted; a role reset sets Role back to VISITOR.
type Person struct {
	Base
	ExternalID  string  `gorm:"size:191;uniqueIndex;not null" json:"externalId"`
	Name        string  `gorm:"size:200" json:"name"`
	Email       string  `gorm:"size:191;index" json:"email"`
	PhoneNumber string  `gorm:"size:32" json:"phoneNumber"`
	Role        Role    `gorm:"size:32;index;not null" json:"role"`
	SocietyID   *string `gorm:"size:36;index" json:"societyId"`
	BuildingID  *string `gorm:"size:36" json:"buildingId"`
	FlatID      *string `gorm:"size:36" json:"flatId"`
}

// Society returns the society id or "" when the person has none.
func (p Person) Society() string {
	if p.SocietyID == nil {
		return ""
	}
	return *p.SocietyID
}

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "PENDING"
	JoinRequestRejected JoinRequestStatus = "REJECTED"
)

// JoinRequest is a person's request to join a society with a role.
type JoinRequest struct {
	Base
	PersonID      string            `gorm:"size:36;uniqueIndex;not null" json:"personId"`
	SocietyID     string            `gorm:"size:36;index;not null" json:"societyId"`
	RequestedRole Role              `gorm:"size:32;not null" json:"requestedRole"`
	PhoneNumber   string            `gorm:"size:32" json:"phoneNumber"`
	BuildingID    *string           `gorm:"size:36" json:"buildingId"`
	FlatID        *string           `gorm:"size:36" json:"flatId"`
	Status        JoinRequestStatus `gorm:"size:16;index;not null" json:"status"`

	Person *Person `gorm:"foreignKey:PersonID" json:"person,omitempty"`
}

func (Person) TableName() string { return "people" }
