package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/utils"
	"github.com/societyhub/society_backend/internal/ws"
)

func newGateLogService(w *world, rec *recorder) *GateLogService {
	return NewGateLogService(w.db, logging.Nop(), rec).WithClock(stepClock(t0, time.Minute))
}

func TestGateLog_SecondExitRefused(t *testing.T) {
	w := newWorld(t)
	rec := &recorder{}
	svc := newGateLogService(w, rec)
	ctx := context.Background()

	entry, err := svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "visitor", PersonName: "Ramesh"})
	require.NoError(t, err)
	assert.Equal(t, models.PersonTypeVisitor, entry.PersonType)
	assert.Equal(t, "Ramesh", entry.PersonName)
	assert.Equal(t, w.society.ID, entry.SocietyID)
	assert.Equal(t, w.watchman.ID, entry.WatchmanID)
	assert.Nil(t, entry.OutTime)

	exited, err := svc.LogExit(ctx, w.watchman, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, exited.OutTime)
	firstOut := *exited.OutTime

	_, err = svc.LogExit(ctx, w.watchman, entry.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	var stored models.EntryLog
	require.NoError(t, w.db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, firstOut.Unix(), stored.OutTime.Unix(), "out time is never overwritten")

	assert.Equal(t, []string{ws.EventGateEntry, ws.EventGateExit}, rec.types())
}

func TestGateLog_EntryValidation(t *testing.T) {
	w := newWorld(t)
	svc := newGateLogService(w, &recorder{})
	ctx := context.Background()

	_, err := svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "alien", PersonName: "X"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "VENDOR"})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "name required without personId")

	_, err = svc.LogEntry(ctx, w.owner, LogEntryInput{PersonType: "VENDOR", PersonName: "X"})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = svc.LogEntry(ctx, w.root, LogEntryInput{PersonType: "VENDOR", PersonName: "X"})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "super admin must name a society")

	_, err = svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "VENDOR", PersonName: "X", SocietyID: w.otherSociety.ID})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	entry, err := svc.LogEntry(ctx, w.root, LogEntryInput{PersonType: "delivery", PersonName: "Parcel", SocietyID: w.otherSociety.ID, VehicleNumber: strPtr("ka 01 x 1")})
	require.NoError(t, err)
	assert.Equal(t, w.otherSociety.ID, entry.SocietyID)
	assert.Equal(t, "KA01X1", *entry.VehicleNumber)
}

func TestGateLog_EntryByPersonID(t *testing.T) {
	w := newWorld(t)
	svc := newGateLogService(w, &recorder{})
	ctx := context.Background()

	entry, err := svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "RESIDENT", PersonID: &w.owner.ID})
	require.NoError(t, err)
	assert.Equal(t, w.owner.Name, entry.PersonName)
	assert.Equal(t, w.owner.ID, *entry.PersonID)

	_, err = svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "RESIDENT", PersonID: &w.otherGuard.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "person from another society")
}

func TestGateLog_ExitScoping(t *testing.T) {
	w := newWorld(t)
	svc := newGateLogService(w, &recorder{})
	ctx := context.Background()

	entry, err := svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "STAFF", PersonName: "Cleaner"})
	require.NoError(t, err)

	_, err = svc.LogExit(ctx, w.otherGuard, entry.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.LogExit(ctx, w.watchman, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.LogExit(ctx, w.watchman, "not-a-uuid")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.LogExit(ctx, w.watchman, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var stored models.EntryLog
	require.NoError(t, w.db.First(&stored, "id = ?", entry.ID).Error)
	assert.Nil(t, stored.OutTime, "failed exits leave the row untouched")

	_, err = svc.LogExit(ctx, w.root, entry.ID)
	require.NoError(t, err)
}

func TestGateLog_List(t *testing.T) {
	w := newWorld(t)
	svc := newGateLogService(w, &recorder{})
	ctx := context.Background()

	a, err := svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "VENDOR", PersonName: "Milk"})
	require.NoError(t, err)
	_, err = svc.LogEntry(ctx, w.watchman, LogEntryInput{PersonType: "DELIVERY", PersonName: "Parcel"})
	require.NoError(t, err)
	_, err = svc.LogEntry(ctx, w.otherGuard, LogEntryInput{PersonType: "VENDOR", PersonName: "Bread"})
	require.NoError(t, err)
	_, err = svc.LogExit(ctx, w.watchman, a.ID)
	require.NoError(t, err)

	p := utils.ParseListParams(func(string) string { return "" }, nil, "in_time")

	logs, total, err := svc.List(ctx, w.watchman, GateLogFilter{}, p)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	open, total, err := svc.List(ctx, w.watchman, GateLogFilter{Open: true}, p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Parcel", open[0].PersonName)

	_, total, err = svc.List(ctx, w.watchman, GateLogFilter{Today: true, PersonType: "vendor"}, p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = svc.List(ctx, w.root, GateLogFilter{}, p)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, total, err = svc.List(ctx, w.root, GateLogFilter{SocietyID: w.otherSociety.ID}, p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = svc.List(ctx, w.tenant, GateLogFilter{}, p)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}
