package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/services"
)

type PaymentController struct {
	Svc *services.PaymentService
	Log logging.Logger
}

type createOrderRequest struct {
	Amount  int64  `json:"amount"`
	Purpose string `json:"purpose"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

var paymentSorts = map[string]string{
	"created_at": "created_at",
	"amount":     "amount",
}

func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, pc.Log, err)
		return
	}
	order, err := pc.Svc.CreateOrder(c.Request.Context(), currentPerson(c), req.Amount, req.Purpose)
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	response.Created(c, order)
}

func (pc *PaymentController) Verify(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, pc.Log, err)
		return
	}
	payment, err := pc.Svc.Verify(c.Request.Context(), currentPerson(c), services.VerifyPaymentInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	response.OK(c, payment)
}

func (pc *PaymentController) List(c *gin.Context) {
	p := listParams(c, paymentSorts, "created_at")
	payments, total, err := pc.Svc.List(c.Request.Context(), currentPerson(c), p)
	if err != nil {
		response.Error(c, pc.Log, err)
		return
	}
	response.List(c, payments, p.Meta(total))
}
