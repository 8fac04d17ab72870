package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/database/dbtest"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/ws"
)

// world is a small society: building B with flat B-204 owned by owner,
// a second society with its own watchman, and a super admin.
type world struct {
	db           *gorm.DB
	society      models.Society
	otherSociety models.Society
	building     models.Building
	flat         models.Flat
	owner        *models.Person
	tenant       *models.Person
	watchman     *models.Person
	secretary    *models.Person
	outsider     *models.Person
	otherGuard   *models.Person
	root         *models.Person
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db := dbtest.Open(t)
	w := &world{db: db}

	w.society = models.Society{Name: "Green Meadows"}
	w.otherSociety = models.Society{Name: "Blue Ridge"}
	require.NoError(t, db.Create(&w.society).Error)
	require.NoError(t, db.Create(&w.otherSociety).Error)

	w.building = models.Building{SocietyID: w.society.ID, Name: "B", NumberOfFloors: 5}
	require.NoError(t, db.Create(&w.building).Error)

	mk := func(ext string, role models.Role, society *models.Society) *models.Person {
		p := &models.Person{ExternalID: ext, Name: ext, Role: role}
		if society != nil {
			p.SocietyID = &society.ID
		}
		require.NoError(t, db.Create(p).Error)
		return p
	}
	w.owner = mk("owner", models.RoleHouseOwner, &w.society)
	w.tenant = mk("tenant", models.RoleTenant, &w.society)
	w.watchman = mk("watchman", models.RoleWatchman, &w.society)
	w.secretary = mk("secretary", models.RoleSocietySecretary, &w.society)
	w.outsider = mk("outsider", models.RoleVisitor, nil)
	w.otherGuard = mk("other-guard", models.RoleWatchman, &w.otherSociety)
	w.root = mk("root", models.RoleSuperAdmin, nil)

	w.flat = models.Flat{BuildingID: w.building.ID, FlatNumber: "B-204", OwnerID: &w.owner.ID, IsOccupied: true}
	require.NoError(t, db.Create(&w.flat).Error)
	return w
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(_ context.Context, ev ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// stepClock advances by step on every call.
func stepClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(step)
		return cur
	}
}

func strPtr(s string) *string { return &s }
