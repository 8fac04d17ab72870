package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
)

var upgrader = websocket.Upgrader{
	// Origin is not checked; access is gated by the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PersonFunc returns the authenticated caller for a request.
type PersonFunc func(*gin.Context) *models.Person

// GateHandler streams gate events of the caller's society. Super admins
// see every society.
func GateHandler(hubs *Hubs, current PersonFunc, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := current(c)
		if err := authz.Authorize(caller, models.GateRoles...); err != nil {
			response.Error(c, log, err)
			return
		}
		societyID, err := authz.SocietyScope(caller)
		if err != nil {
			response.Error(c, log, err)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		cl := newClient(conn, caller.ID, societyID, caller.Role == models.RoleSuperAdmin)
		if !hubs.Gate.join(cl) {
			conn.Close()
			return
		}

		go cl.writePump()
		cl.readPump(func() { hubs.Gate.leave(cl) })
	}
}

// ResidentHandler streams notifications about visitors the caller approved
// and notices posted in the caller's society.
func ResidentHandler(hubs *Hubs, current PersonFunc, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := current(c)
		if caller == nil {
			response.Error(c, log, authz.Authorize(nil))
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		cl := newClient(conn, caller.ID, caller.Society(), false)
		if !hubs.Resident.join(cl) {
			conn.Close()
			return
		}

		go cl.writePump()
		cl.readPump(func() { hubs.Resident.leave(cl) })
	}
}
