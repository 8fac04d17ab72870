package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhub/society_backend/internal/models"
)

func TestSocietyAndBuilding_Create(t *testing.T) {
	e := newEnv(t)

	w := e.call(http.MethodPost, "/societies", "root", map[string]any{"name": "  Palm   Grove ", "address": "1 Beach Rd"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	s := decode[models.Society](t, w)
	assert.Equal(t, "Palm Grove", s.Name)

	w = e.call(http.MethodPost, "/societies", "root", map[string]any{"name": "Palm Grove"})
	assert.Equal(t, http.StatusConflict, w.Code, "society names are unique")

	w = e.call(http.MethodPut, "/societies/"+s.ID, "root", map[string]any{"registrationNumber": "PG-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PG-1", decode[models.Society](t, w).RegistrationNumber)

	w = e.call(http.MethodPost, "/buildings", "admin", map[string]any{"name": "Tower C", "numberOfFloors": 12})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[models.Building](t, w)
	assert.Equal(t, e.society.ID, b.SocietyID, "admins create in their own society")

	w = e.call(http.MethodPost, "/buildings", "admin", map[string]any{"name": "Tower D", "societyId": e.other.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.call(http.MethodPost, "/buildings", "root", map[string]any{"name": "Tower D"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "super admins must name the society")

	w = e.call(http.MethodGet, "/public/buildings?societyId="+e.society.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public struct {
		Data []models.Building `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	assert.Len(t, public.Data, 2)

	w = e.call(http.MethodGet, "/buildings", "other-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[listBody[models.Building]](t, w).Data)
}

func TestFlat_CreateWithOccupant(t *testing.T) {
	e := newEnv(t)

	w := e.call(http.MethodPost, "/flats", "admin", map[string]any{
		"buildingId": e.building.ID, "flatNumber": "b 301", "bedrooms": 3, "residentId": e.people["newcomer"].ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	flat := decode[models.Flat](t, w)
	assert.Equal(t, "B301", flat.FlatNumber)
	assert.True(t, flat.IsOccupied)
	require.NotNil(t, flat.ResidentID)

	p := e.person("newcomer")
	assert.Equal(t, models.RoleResident, p.Role)
	assert.Equal(t, e.society.ID, p.Society())
	require.NotNil(t, p.FlatID)
	assert.Equal(t, flat.ID, *p.FlatID)

	w = e.call(http.MethodPost, "/flats", "admin", map[string]any{"buildingId": e.building.ID, "flatNumber": "B301"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.call(http.MethodPost, "/flats", "other-admin", map[string]any{"buildingId": e.building.ID, "flatNumber": "X1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlat_AssignOwner(t *testing.T) {
	e := newEnv(t)
	spare := models.Flat{BuildingID: e.building.ID, FlatNumber: "B-101"}
	require.NoError(t, e.db.Create(&spare).Error)

	w := e.call(http.MethodPut, "/flats/"+spare.ID+"/assign", "admin", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodPut, "/flats/"+spare.ID+"/assign", "other-admin", map[string]any{"ownerId": e.people["newcomer"].ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(http.MethodPut, "/flats/"+spare.ID+"/assign", "admin", map[string]any{"ownerId": e.people["newcomer"].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	flat := decode[models.Flat](t, w)
	require.NotNil(t, flat.OwnerID)
	assert.False(t, flat.IsOccupied, "an owner does not make the flat occupied")
	assert.Equal(t, models.RoleHouseOwner, e.person("newcomer").Role)

	w = e.call(http.MethodPut, "/flats/"+spare.ID+"/assign", "admin", map[string]any{"residentId": e.people["other-admin"].ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "people of another society cannot be attached")

	w = e.call(http.MethodPut, "/flats/not-a-uuid/assign", "admin", map[string]any{"ownerId": e.people["newcomer"].ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlat_ImportCSV(t *testing.T) {
	e := newEnv(t)
	csv := "\ufeffBuilding;Flat_Number;Bedrooms\r\nB;B-205;2\r\nC;c 101;3\r\nB;B-204;2\r\nC;;1\r\nC;C102;many\r\n"

	w := e.upload("/flats/import", "admin", "flats.csv", csv, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Summary struct {
			TotalRows int `json:"totalRows"`
			Inserted  int `json:"inserted"`
			Failed    int `json:"failed"`
		} `json:"summary"`
		Errors []flatImportError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 5, out.Summary.TotalRows)
	assert.Equal(t, 2, out.Summary.Inserted)
	assert.Equal(t, 3, out.Summary.Failed)
	require.Len(t, out.Errors, 3)
	assert.Equal(t, 4, out.Errors[0].Row)
	assert.Equal(t, "flat already exists", out.Errors[0].Error)

	var c models.Building
	require.NoError(t, e.db.Where("society_id = ? AND name = ?", e.society.ID, "C").First(&c).Error)
	var n int64
	require.NoError(t, e.db.Model(&models.Flat{}).Where("building_id = ? AND flat_number = ?", c.ID, "C101").Count(&n).Error)
	assert.EqualValues(t, 1, n)

	w = e.upload("/flats/import", "admin", "flats.txt", csv, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.upload("/flats/import", "admin", "flats.csv", "building,flat\nB,1\n", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Error, "flat_number")
}

func TestFlat_ImportRejectsOversizeFile(t *testing.T) {
	e := newEnv(t)
	var b strings.Builder
	b.WriteString("building,flat_number,bedrooms\n")
	for i := 0; b.Len() <= maxImportBytes; i++ {
		fmt.Fprintf(&b, "B,X-%d,2\n", i)
	}
	b.WriteString("B,B-9999,3\n")

	w := e.upload("/flats/import", "admin", "flats.csv", b.String(), nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "file exceeds 10 MiB", decode[errorBody](t, w).Error)

	var n int64
	require.NoError(t, e.db.Model(&models.Flat{}).Count(&n).Error)
	assert.EqualValues(t, 1, n, "only the fixture flat exists")
}

func TestList_RejectsMalformedIDs(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		path string
		as   string
		want string
	}{
		{"/flats?buildingId=not-a-uuid", "admin", "invalid buildingId"},
		{"/flats?societyId=42", "root", "invalid societyId"},
		{"/join-requests?societyId=42", "root", "invalid societyId"},
		{"/buildings?societyId=42", "root", "invalid societyId"},
		{"/persons?societyId=42", "root", "invalid societyId"},
		{"/staff?societyId=42", "root", "invalid societyId"},
		{"/notices?societyId=42", "root", "invalid societyId"},
		{"/emergency-contacts?societyId=42", "root", "invalid societyId"},
		{"/watchman/logs?societyId=42", "root", "invalid societyId"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := e.call(http.MethodGet, tc.path, tc.as, nil)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tc.want, decode[errorBody](t, w).Error)
		})
	}

	w := e.call(http.MethodGet, "/flats?societyId=42", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, "scoped callers list their own society")
	assert.Len(t, decode[listBody[models.Flat]](t, w).Data, 1)

	w = e.call(http.MethodGet, "/flats?societyId="+e.society.ID+"&buildingId="+e.building.ID, "root", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[listBody[models.Flat]](t, w).Data, 1)
}

func TestPerson_MeAndUpdate(t *testing.T) {
	e := newEnv(t)

	w := e.call(http.MethodGet, "/me", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Person models.Person `json:"person"`
		Flats  []models.Flat `json:"flats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, e.people["owner"].ID, me.Person.ID)
	require.Len(t, me.Flats, 1)
	assert.Equal(t, "B-204", me.Flats[0].FlatNumber)

	w = e.call(http.MethodPut, "/me", "owner", map[string]any{"name": " Meera  Iyer ", "phoneNumber": "+91 98765-43210", "role": "SUPER_ADMIN"})
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[models.Person](t, w)
	assert.Equal(t, "Meera Iyer", p.Name)
	assert.Equal(t, "+919876543210", p.PhoneNumber)
	assert.Equal(t, models.RoleHouseOwner, p.Role, "role is not self-service")
}

func TestPerson_RoleManagement(t *testing.T) {
	e := newEnv(t)
	owner := e.people["owner"].ID

	w := e.call(http.MethodPatch, "/persons/"+owner+"/role", "admin", map[string]any{"role": "SOCIETY_ADMIN"})
	assert.Equal(t, http.StatusForbidden, w.Code, "society admins cannot mint admins")

	w = e.call(http.MethodPatch, "/persons/"+owner+"/role", "other-admin", map[string]any{"role": "TENANT"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(http.MethodPatch, "/persons/"+e.people["admin"].ID+"/role", "admin", map[string]any{"role": "TENANT"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.call(http.MethodPatch, "/persons/"+owner+"/role", "admin", map[string]any{"role": "janitor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodPatch, "/persons/"+owner+"/role", "admin", map[string]any{"role": "society_member"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.RoleSocietyMember, decode[models.Person](t, w).Role)

	w = e.call(http.MethodPatch, "/persons/"+e.people["newcomer"].ID+"/role", "root", map[string]any{"role": "SOCIETY_ADMIN"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "society roles need a society")

	w = e.call(http.MethodPatch, "/persons/"+e.people["newcomer"].ID+"/role", "root", map[string]any{"role": "SOCIETY_ADMIN", "societyId": e.other.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, e.other.ID, decode[models.Person](t, w).Society())

	w = e.call(http.MethodPost, "/persons/"+owner+"/reset-role", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := e.person("owner")
	assert.Equal(t, models.RoleVisitor, p.Role)
	assert.Nil(t, p.SocietyID)
	var flat models.Flat
	require.NoError(t, e.db.First(&flat, "id = ?", e.flat.ID).Error)
	assert.Nil(t, flat.OwnerID)

	w = e.call(http.MethodGet, "/persons?role=watchman", "secretary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[listBody[models.Person]](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, e.people["watchman"].ID, list.Data[0].ID)
}

func TestJoinRequest_ApproveResident(t *testing.T) {
	e := newEnv(t)
	spare := models.Flat{BuildingID: e.building.ID, FlatNumber: "B-102"}
	require.NoError(t, e.db.Create(&spare).Error)

	req := map[string]any{
		"societyId": e.society.ID, "requestedRole": "tenant", "phoneNumber": 98765,
		"buildingId": e.building.ID, "flatId": spare.ID,
	}
	w := e.call(http.MethodPost, "/join-requests", "newcomer", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	jr := decode[models.JoinRequest](t, w)
	assert.Equal(t, models.JoinRequestPending, jr.Status)

	w = e.call(http.MethodPost, "/join-requests", "newcomer", req)
	assert.Equal(t, http.StatusConflict, w.Code, "one pending request per person")

	w = e.call(http.MethodGet, "/join-requests", "other-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[listBody[models.JoinRequest]](t, w).Data)

	w = e.call(http.MethodGet, "/join-requests", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[listBody[models.JoinRequest]](t, w)
	require.Len(t, pending.Data, 1)
	require.NotNil(t, pending.Data[0].Person)

	w = e.call(http.MethodPatch, "/join-requests/"+jr.ID, "admin", map[string]any{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodPatch, "/join-requests/"+jr.ID, "admin", map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p := e.person("newcomer")
	assert.Equal(t, models.RoleTenant, p.Role, "the requested role is kept")
	assert.Equal(t, e.society.ID, p.Society())
	assert.Equal(t, "98765", p.PhoneNumber)

	var flat models.Flat
	require.NoError(t, e.db.First(&flat, "id = ?", spare.ID).Error)
	require.NotNil(t, flat.ResidentID)
	assert.Equal(t, p.ID, *flat.ResidentID)
	assert.True(t, flat.IsOccupied)

	var n int64
	require.NoError(t, e.db.Model(&models.JoinRequest{}).Count(&n).Error)
	assert.Zero(t, n, "approved requests are removed")

	w = e.call(http.MethodPatch, "/join-requests/"+jr.ID, "admin", map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinRequest_StaffAndReject(t *testing.T) {
	e := newEnv(t)

	w := e.call(http.MethodPost, "/join-requests", "newcomer", map[string]any{"societyId": e.society.ID, "requestedRole": "SOCIETY_ADMIN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(http.MethodPost, "/join-requests", "owner", map[string]any{"societyId": e.society.ID, "requestedRole": "TENANT"})
	assert.Equal(t, http.StatusConflict, w.Code, "members cannot request again")

	w = e.call(http.MethodPost, "/join-requests", "newcomer", map[string]any{"societyId": e.society.ID, "requestedRole": "TECHNICIAN"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	jr := decode[models.JoinRequest](t, w)

	w = e.call(http.MethodPatch, "/join-requests/"+jr.ID, "admin", map[string]any{"action": "REJECT"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.call(http.MethodPatch, "/join-requests/"+jr.ID, "admin", map[string]any{"action": "APPROVE"})
	assert.Equal(t, http.StatusConflict, w.Code, "rejected requests are closed")

	// a rejected person may ask again
	w = e.call(http.MethodPost, "/join-requests", "newcomer", map[string]any{"societyId": e.society.ID, "requestedRole": "TECHNICIAN"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	jr = decode[models.JoinRequest](t, w)

	w = e.call(http.MethodPatch, "/join-requests/"+jr.ID, "admin", map[string]any{"action": "APPROVE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var staff models.Staff
	require.NoError(t, e.db.Where("person_id = ?", e.people["newcomer"].ID).First(&staff).Error)
	assert.Equal(t, models.RoleTechnician, staff.Role)
	assert.Equal(t, e.society.ID, staff.SocietyID)
	assert.True(t, staff.Active)
}
