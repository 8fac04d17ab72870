package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/services"
)

type GateLogController struct {
	Svc *services.GateLogService
	Log logging.Logger
}

type logEntryRequest struct {
	PersonType    string  `json:"personType"`
	PersonName    string  `json:"personName"`
	PersonID      *string `json:"personId"`
	VehicleNumber *string `json:"vehicleNumber"`
	SocietyID     string  `json:"societyId"`
}

type logExitRequest struct {
	ID string `json:"id"`
}

func (gc *GateLogController) Create(c *gin.Context) {
	var req logEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, gc.Log, err)
		return
	}
	entry, err := gc.Svc.LogEntry(c.Request.Context(), currentPerson(c), services.LogEntryInput{
		PersonType:    req.PersonType,
		PersonName:    req.PersonName,
		PersonID:      req.PersonID,
		VehicleNumber: req.VehicleNumber,
		SocietyID:     req.SocietyID,
	})
	if err != nil {
		response.Error(c, gc.Log, err)
		return
	}
	response.Created(c, entry)
}

// Exit records the exit of ?id= (or {"id"} in the body).
func (gc *GateLogController) Exit(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		id = strings.TrimSpace(c.Param("id"))
	}
	if id == "" && c.Request.ContentLength != 0 && c.Request.Method != http.MethodGet {
		var req logExitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, gc.Log, err)
			return
		}
		id = req.ID
	}
	entry, err := gc.Svc.LogExit(c.Request.Context(), currentPerson(c), id)
	if err != nil {
		response.Error(c, gc.Log, err)
		return
	}
	response.OK(c, entry)
}

var gateLogSorts = map[string]string{
	"in_time":     "in_time",
	"out_time":    "out_time",
	"person_name": "person_name",
}

func (gc *GateLogController) List(c *gin.Context) {
	societyID, err := queryID(c, "societyId")
	if err != nil {
		response.Error(c, gc.Log, err)
		return
	}
	p := listParams(c, gateLogSorts, "in_time")
	logs, total, err := gc.Svc.List(c.Request.Context(), currentPerson(c), services.GateLogFilter{
		Open:       queryBool(c, "open"),
		Today:      queryBool(c, "today"),
		PersonType: c.Query("personType"),
		SocietyID:  societyID,
	}, p)
	if err != nil {
		response.Error(c, gc.Log, err)
		return
	}
	response.List(c, logs, p.Meta(total))
}
