package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" watchman ")
	assert.True(t, ok)
	assert.Equal(t, RoleWatchman, r)

	_, ok = ParseRole("janitor")
	assert.False(t, ok)
}

func TestVisitorStatusPrecedes(t *testing.T) {
	assert.True(t, VisitorPending.Precedes(VisitorCheckedIn))
	assert.True(t, VisitorCheckedIn.Precedes(VisitorCheckedOut))
	assert.False(t, VisitorPending.Precedes(VisitorCheckedOut), "check-in cannot be skipped")
	assert.False(t, VisitorCheckedIn.Precedes(VisitorPending))
	assert.False(t, VisitorCheckedOut.Precedes(VisitorCheckedOut))
	assert.False(t, VisitorStatus("LOST").Precedes(VisitorCheckedIn))
}

func TestPersonTypeValid(t *testing.T) {
	assert.True(t, PersonTypeDelivery.Valid())
	assert.False(t, PersonType("delivery").Valid())
}
