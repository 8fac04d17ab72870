package models

import "gorm.io/datatypes"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// PaymentLog mirrors one gateway order. Amount is in major currency units.
type PaymentLog struct {
	Base
	PersonID         string         `gorm:"size:36;index;not null" json:"personId"`
	SocietyID        *string        `gorm:"size:36;index" json:"societyId"`
	GatewayOrderID   string         `gorm:"size:64;uniqueIndex;not null" json:"gatewayOrderId"`
	GatewayPaymentID *string        `gorm:"size:64" json:"gatewayPaymentId"`
	GatewaySignature *string        `gorm:"size:128" json:"-"`
	Amount           int64          `gorm:"not null" json:"amount"`
	Currency         string         `gorm:"size:8;not null" json:"currency"`
	Purpose          string         `gorm:"size:200" json:"purpose"`
	Status           PaymentStatus  `gorm:"size:16;index;not null" json:"status"`
	GatewayResponse  datatypes.JSON `json:"gatewayResponse,omitempty"`
}
