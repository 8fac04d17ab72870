package ws

import (
	"time"

	"github.com/societyhub/society_backend/internal/models"
)

const (
	EventVisitorPreApproved = "visitor.preapproved"
	EventVisitorCheckedIn   = "visitor.checked_in"
	EventVisitorCheckedOut  = "visitor.checked_out"
	EventGateEntry          = "gate.entry"
	EventGateExit           = "gate.exit"
	EventNoticePosted       = "notice.posted"
)

// Event is pushed to gate dashboards of SocietyID and, when RecipientID is
// set, to that person's resident connection. Residents fans the event out
// to every resident connection of SocietyID instead.
type Event struct {
	Type        string           `json:"type"`
	SocietyID   string           `json:"societyId"`
	RecipientID string           `json:"-"`
	Residents   bool             `json:"-"`
	At          time.Time        `json:"at"`
	Visitor     *models.Visitor  `json:"visitor,omitempty"`
	EntryLog    *models.EntryLog `json:"entryLog,omitempty"`
	Notice      *models.Notice   `json:"notice,omitempty"`
	Message     string           `json:"message,omitempty"`
}
