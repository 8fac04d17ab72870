package models

// Society is the top-level tenant owning buildings, flats and staff.
type Society struct {
	Base
	Name               string `gorm:"size:200;uniqueIndex" json:"name"`
	Address            string `gorm:"type:text" json:"address"`
	RegistrationNumber string `gorm:"size:100" json:"registrationNumber"`
}

type Building struct {
	Base
	SocietyID      string `gorm:"size:36;uniqueIndex:uniq_building_name,priority:1;not null" json:"societyId"`
	Name           string `gorm:"size:100;uniqueIndex:uniq_building_name,priority:2;not null" json:"name"`
	NumberOfFloors int    `json:"numberOfFloors"`
}

// Flat has at most one owner and at most one occupant, independently nullable.
type Flat struct {
	Base
	BuildingID string  `gorm:"size:36;uniqueIndex:uniq_flat_number,priority:1;not null" json:"buildingId"`
	FlatNumber string  `gorm:"size:50;uniqueIndex:uniq_flat_number,priority:2;not null" json:"flatNumber"`
	AreaSqFt   int     `json:"areaSqFt"`
	Bedrooms   int     `json:"bedrooms"`
	OwnerID    *string `gorm:"size:36;index" json:"ownerId"`
	ResidentID *string `gorm:"size:36;index" json:"residentId"`
	IsOccupied bool    `json:"isOccupied"`

	Building *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
}
