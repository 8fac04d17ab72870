package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ValidID reports whether s is a canonical uuid. Ids are checked before
// they reach the database, where postgres would reject the cast.
func ValidID(s string) bool {
	return uuid.Validate(strings.TrimSpace(s)) == nil
}
