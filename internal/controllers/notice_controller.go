package controllers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/services"
	"github.com/societyhub/society_backend/internal/ws"
)

type NoticeController struct {
	DB       *gorm.DB
	Log      logging.Logger
	Notifier services.Notifier
}

type noticeRequest struct {
	Content   string `json:"content"`
	SocietyID string `json:"societyId"`
}

var noticeSorts = map[string]string{
	"posted_at":  "posted_at",
	"updated_at": "updated_at",
}

func (nc *NoticeController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, nc.Log, err)
		return
	}
	p := listParams(c, noticeSorts, "posted_at")
	q := nc.DB.WithContext(c.Request.Context()).Model(&models.Notice{})
	if scope != "" {
		q = q.Where("society_id = ?", scope)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, nc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Notice
	if err := p.Apply(q).Find(&out).Error; err != nil {
		response.Error(c, nc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

func (nc *NoticeController) Create(c *gin.Context) {
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, nc.Log, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		response.Error(c, nc.Log, apperr.Validation("content is required"))
		return
	}
	caller := currentPerson(c)
	societyID, err := targetSociety(caller, req.SocietyID)
	if err != nil {
		response.Error(c, nc.Log, err)
		return
	}
	n := models.Notice{SocietyID: societyID, Content: content, PostedByID: caller.ID, PostedAt: time.Now().UTC()}
	if err := nc.DB.WithContext(c.Request.Context()).Create(&n).Error; err != nil {
		response.Error(c, nc.Log, apperr.FromDB(err, ""))
		return
	}
	nc.broadcast(c, &n)
	response.Created(c, n)
}

// load returns a notice of the caller's society; others are reported missing.
func (nc *NoticeController) load(c *gin.Context) (*models.Notice, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	var n models.Notice
	if err := nc.DB.WithContext(c.Request.Context()).First(&n, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "notice not found")
	}
	if !authz.InSociety(currentPerson(c), n.SocietyID) {
		return nil, apperr.NotFound("notice not found")
	}
	return &n, nil
}

func (nc *NoticeController) Update(c *gin.Context) {
	n, err := nc.load(c)
	if err != nil {
		response.Error(c, nc.Log, err)
		return
	}
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, nc.Log, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		response.Error(c, nc.Log, apperr.Validation("content is required"))
		return
	}
	if err := nc.DB.WithContext(c.Request.Context()).Model(n).Update("content", content).Error; err != nil {
		response.Error(c, nc.Log, apperr.FromDB(err, ""))
		return
	}
	n.Content = content
	response.OK(c, n)
}

func (nc *NoticeController) Delete(c *gin.Context) {
	n, err := nc.load(c)
	if err != nil {
		response.Error(c, nc.Log, err)
		return
	}
	if err := nc.DB.WithContext(c.Request.Context()).Delete(n).Error; err != nil {
		response.Error(c, nc.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"deleted": n.ID})
}

func (nc *NoticeController) broadcast(c *gin.Context, n *models.Notice) {
	if nc.Notifier == nil {
		return
	}
	nc.Notifier.Publish(c.Request.Context(), ws.Event{
		Type:      ws.EventNoticePosted,
		SocietyID: n.SocietyID,
		Residents: true,
		At:        n.PostedAt,
		Notice:    n,
	})
}
