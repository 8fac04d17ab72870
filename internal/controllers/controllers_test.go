package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/config"
	"github.com/societyhub/society_backend/internal/database/dbtest"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/middleware"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/services"
	"github.com/societyhub/society_backend/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// env is one society with building B and flat B-204 owned by "owner", a
// second society with its own admin, and a super admin. Requests pick the
// caller with the X-As header.
type env struct {
	t        *testing.T
	db       *gorm.DB
	r        *gin.Engine
	society  models.Society
	other    models.Society
	building models.Building
	flat     models.Flat
	people   map[string]*models.Person
	events   *recorder
}

type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(_ context.Context, ev ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.Event(nil), r.events...)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	e := &env{t: t, db: db, people: map[string]*models.Person{}, events: &recorder{}}

	e.society = models.Society{Name: "Green Meadows"}
	e.other = models.Society{Name: "Blue Ridge"}
	require.NoError(t, db.Create(&e.society).Error)
	require.NoError(t, db.Create(&e.other).Error)
	e.building = models.Building{SocietyID: e.society.ID, Name: "B", NumberOfFloors: 5}
	require.NoError(t, db.Create(&e.building).Error)

	mk := func(key string, role models.Role, society *models.Society) {
		p := &models.Person{ExternalID: key, Name: key, Role: role}
		if society != nil {
			p.SocietyID = &society.ID
		}
		require.NoError(t, db.Create(p).Error)
		e.people[key] = p
	}
	mk("admin", models.RoleSocietyAdmin, &e.society)
	mk("secretary", models.RoleSocietySecretary, &e.society)
	mk("watchman", models.RoleWatchman, &e.society)
	mk("owner", models.RoleHouseOwner, &e.society)
	mk("newcomer", models.RoleVisitor, nil)
	mk("other-admin", models.RoleSocietyAdmin, &e.other)
	mk("root", models.RoleSuperAdmin, nil)

	e.flat = models.Flat{BuildingID: e.building.ID, FlatNumber: "B-204", OwnerID: &e.people["owner"].ID}
	require.NoError(t, db.Create(&e.flat).Error)

	e.r = e.router()
	return e
}

// router wires the controllers behind a header-based stand-in for the
// identity middleware. The caller is reloaded on every request so role
// changes take effect immediately.
func (e *env) router() *gin.Engine {
	log := logging.Nop()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		key := c.GetHeader("X-As")
		if p, ok := e.people[key]; ok {
			var fresh models.Person
			require.NoError(e.t, e.db.First(&fresh, "id = ?", p.ID).Error)
			middleware.SetPerson(c, &fresh)
		}
		c.Next()
	})

	cfg := &config.Config{AppBaseURL: "https://gate.example.com", PaymentCurrency: "INR"}
	cfgCtrl := &ConfigController{DB: e.db, Cfg: cfg}
	visitors := &VisitorController{Svc: services.NewVisitorService(e.db, log, e.events, cfg.AppBaseURL), Log: log}
	gate := &GateLogController{Svc: services.NewGateLogService(e.db, log, e.events), Log: log}
	persons := &PersonController{DB: e.db, Log: log}
	societies := &SocietyController{DB: e.db, Log: log}
	buildings := &BuildingController{DB: e.db, Log: log}
	flats := &FlatController{DB: e.db, Log: log}
	joins := &JoinRequestController{DB: e.db, Log: log}
	notices := &NoticeController{DB: e.db, Log: log, Notifier: e.events}
	contacts := &EmergencyContactController{DB: e.db, Log: log}
	staff := &StaffController{DB: e.db, Log: log}
	bookings := &BookingController{DB: e.db, Log: log}

	r.GET("/healthz", cfgCtrl.Health)
	r.GET("/public/config", cfgCtrl.Get)
	r.GET("/public/societies", societies.PublicList)
	r.GET("/public/buildings", buildings.PublicList)
	r.GET("/public/flats", flats.PublicList)

	r.POST("/visitor/preapprove", visitors.PreApprove)
	r.GET("/visitor/checkin", visitors.Preview)
	r.POST("/visitor/checkin", visitors.CheckIn)
	r.POST("/visitor/checkout", visitors.CheckOut)
	r.GET("/visitors", visitors.List)

	r.POST("/watchman/logs", gate.Create)
	r.PATCH("/watchman/logs", gate.Exit)
	r.GET("/watchman/logs", gate.List)

	r.GET("/me", persons.Me)
	r.PUT("/me", persons.UpdateMe)
	r.GET("/persons", persons.List)
	r.PATCH("/persons/:id/role", persons.UpdateRole)
	r.POST("/persons/:id/reset-role", persons.ResetRole)

	r.POST("/societies", societies.Create)
	r.PUT("/societies/:id", societies.Update)
	r.POST("/buildings", buildings.Create)
	r.GET("/buildings", buildings.List)
	r.POST("/flats", flats.Create)
	r.POST("/flats/import", flats.Import)
	r.GET("/flats", flats.List)
	r.PUT("/flats/:id/assign", flats.Assign)

	r.POST("/join-requests", joins.Create)
	r.GET("/join-requests", joins.List)
	r.PATCH("/join-requests/:id", joins.Decide)

	r.GET("/notices", notices.List)
	r.POST("/notices", notices.Create)
	r.PUT("/notices/:id", notices.Update)
	r.DELETE("/notices/:id", notices.Delete)

	r.GET("/emergency-contacts", contacts.List)
	r.POST("/emergency-contacts", contacts.Create)
	r.DELETE("/emergency-contacts/:id", contacts.Delete)

	r.POST("/staff", staff.Create)
	r.GET("/staff", staff.List)
	r.PUT("/staff/:id", staff.Update)

	r.POST("/bookings", bookings.Create)
	r.GET("/bookings", bookings.List)
	r.POST("/bookings/:id/cancel", bookings.Cancel)
	return r
}

func (e *env) call(method, path, as string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("X-As", as)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) upload(path, as, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-As", as)
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *env) person(key string) models.Person {
	e.t.Helper()
	var p models.Person
	require.NoError(e.t, e.db.First(&p, "id = ?", e.people[key].ID).Error)
	return p
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type listBody[T any] struct {
	Data []T           `json:"data"`
	Meta map[string]any `json:"meta"`
}
