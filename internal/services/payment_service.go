package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/utils"
)

// Gateway creates orders at the payment provider. Amounts are in minor
// units (paise).
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (map[string]any, error)
}

// RazorpayGateway is the Gateway backed by the Razorpay orders API.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (map[string]any, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	return g.client.Order.Create(data, nil)
}

type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// PaymentOrder is what a client needs to open the gateway checkout.
type PaymentOrder struct {
	Payment *models.PaymentLog `json:"payment"`
	OrderID string             `json:"orderId"`
	KeyID   string             `json:"keyId"`
}

type PaymentService struct {
	db        *gorm.DB
	log       logging.Logger
	gateway   Gateway
	keyID     string
	keySecret string
	currency  string
}

func NewPaymentService(db *gorm.DB, log logging.Logger, gateway Gateway, keyID, keySecret, currency string) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		db:        db,
		log:       log.With("component", "payment"),
		gateway:   gateway,
		keyID:     keyID,
		keySecret: keySecret,
		currency:  strings.ToUpper(currency),
	}
}

// CreateOrder opens a gateway order for amount (major units) and records it
// as PENDING.
func (s *PaymentService) CreateOrder(ctx context.Context, caller *models.Person, amount int64, purpose string) (*PaymentOrder, error) {
	if caller == nil {
		return nil, apperr.Authentication("not signed in")
	}
	if amount <= 0 {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	if s.gateway == nil {
		return nil, apperr.Upstream("payment gateway is not configured", nil)
	}
	purpose = strings.TrimSpace(purpose)

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	notes := map[string]string{"personId": caller.ID, "purpose": purpose}
	raw, err := s.gateway.CreateOrder(ctx, amount*100, s.currency, receipt, notes)
	if err != nil {
		return nil, apperr.Upstream("could not create payment order", err)
	}
	orderID, _ := raw["id"].(string)
	if orderID == "" {
		return nil, apperr.Upstream("payment gateway returned no order id", nil)
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, apperr.Internal("could not encode gateway response", err)
	}

	payment := &models.PaymentLog{
		PersonID:        caller.ID,
		SocietyID:       caller.SocietyID,
		GatewayOrderID:  orderID,
		Amount:          amount,
		Currency:        s.currency,
		Purpose:         purpose,
		Status:          models.PaymentPending,
		GatewayResponse: datatypes.JSON(body),
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, apperr.FromDB(err, "person not found")
	}
	s.log.Info(ctx, "payment order created", "payment_id", payment.ID, "order_id", orderID, "amount", amount)
	return &PaymentOrder{Payment: payment, OrderID: orderID, KeyID: s.keyID}, nil
}

// ValidSignature checks the gateway's HMAC-SHA256 of "orderId|paymentId".
func (s *PaymentService) ValidSignature(orderID, paymentID, signature string) bool {
	expected := utils.HMACSHA256Hex(orderID+"|"+paymentID, s.keySecret)
	return utils.HMACEqual(expected, strings.ToLower(strings.TrimSpace(signature)))
}

// Verify marks a PENDING order as PAID once its signature checks out.
func (s *PaymentService) Verify(ctx context.Context, caller *models.Person, in VerifyPaymentInput) (*models.PaymentLog, error) {
	if caller == nil {
		return nil, apperr.Authentication("not signed in")
	}
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	if in.OrderID == "" || in.PaymentID == "" || strings.TrimSpace(in.Signature) == "" {
		return nil, apperr.Validation("orderId, paymentId and signature are required")
	}
	if s.keySecret == "" {
		return nil, apperr.Upstream("payment gateway is not configured", nil)
	}
	if !s.ValidSignature(in.OrderID, in.PaymentID, in.Signature) {
		return nil, apperr.Validation("signature mismatch")
	}

	db := s.db.WithContext(ctx)
	var payment models.PaymentLog
	if err := db.Where("gateway_order_id = ?", in.OrderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment order not found")
		}
		return nil, apperr.Internal("could not load payment", err)
	}
	if payment.PersonID != caller.ID && caller.Role != models.RoleSuperAdmin {
		return nil, apperr.NotFound("payment order not found")
	}

	sig := strings.ToLower(strings.TrimSpace(in.Signature))
	res := db.Model(&models.PaymentLog{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
		Updates(map[string]any{
			"status":             models.PaymentPaid,
			"gateway_payment_id": in.PaymentID,
			"gateway_signature":  sig,
		})
	if res.Error != nil {
		return nil, apperr.Internal("could not update payment", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidState("payment already verified")
	}
	payment.Status = models.PaymentPaid
	payment.GatewayPaymentID = &in.PaymentID
	payment.GatewaySignature = &sig
	s.log.Info(ctx, "payment verified", "payment_id", payment.ID, "order_id", in.OrderID)
	return &payment, nil
}

// List returns the caller's payments; society admins see their society.
func (s *PaymentService) List(ctx context.Context, caller *models.Person, p utils.ListParams) ([]models.PaymentLog, int64, error) {
	if caller == nil {
		return nil, 0, apperr.Authentication("not signed in")
	}
	q := s.db.WithContext(ctx).Model(&models.PaymentLog{})
	if caller.Role.In(models.AdminRoles...) {
		scope, err := authz.SocietyScope(caller)
		if err != nil {
			return nil, 0, err
		}
		if scope != "" {
			q = q.Where("society_id = ?", scope)
		}
	} else {
		q = q.Where("person_id = ?", caller.ID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("could not count payments", err)
	}
	var out []models.PaymentLog
	if err := p.Apply(q).Find(&out).Error; err != nil {
		return nil, 0, apperr.Internal("could not list payments", err)
	}
	return out, total, nil
}
