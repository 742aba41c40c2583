package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/teleshop/paygate/internal/app/service/callback"
	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/logctx"
	"github.com/teleshop/paygate/pkg/tool"
	"github.com/teleshop/paygate/pkg/types"
)

var (
	ErrPlanNotFound = errors.New("payment: plan not found")
	ErrUserNotFound = errors.New("payment: user not found")
	ErrNoCardToken  = errors.New("payment: user has no verified card token")
)

// Service drives the outbound, bot-initiated payment flows: invoices and
// stored-card-token charges against the gateway.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	log       *zap.SugaredLogger
	gw        *click.Client
	store     callback.TransactionStore
	activator callback.Activator
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, gw *click.Client, store callback.TransactionStore, activator callback.Activator) *Service {
	return &Service{cfg: cfg, db: db, log: log, gw: gw, store: store, activator: activator}
}

// EnsureUser registers (or refreshes) the bot user the callbacks will later
// resolve against.
func (s *Service) EnsureUser(ctx context.Context, userID int64, phone string) error {
	if userID <= 0 {
		return fmt.Errorf("payment: invalid user id %d", userID)
	}
	user := models.User{ID: userID, Phone: phone}
	return s.db.WithContext(ctx).Save(&user).Error
}

// CreateInvoice pushes a payment invoice to the payer's phone. The actual
// transaction record is created later by the gateway's prepare callback.
func (s *Service) CreateInvoice(ctx context.Context, userID int64, planID, phone string) (int64, error) {
	plan := s.cfg.GetPlanByID(planID)
	if plan == nil {
		return 0, ErrPlanNotFound
	}
	res, err := s.gw.CreateInvoice(ctx, float64(plan.Price), phone, s.merchantTransID(userID, plan))
	if err != nil {
		return 0, err
	}
	logctx.FromCtx(ctx, s.log).Infow("invoice_created", "user_id", userID, "plan_id", planID, "invoice_id", res.InvoiceID)
	return res.InvoiceID, nil
}

// InvoiceStatus polls an invoice: 0 pending, 1 paid, -1 cancelled.
func (s *Service) InvoiceStatus(ctx context.Context, invoiceID int64) (*click.InvoiceStatusResult, error) {
	return s.gw.InvoiceStatus(ctx, invoiceID)
}

// RequestCardToken starts card tokenization; the gateway texts an SMS code
// to the cardholder. The token is not stored until verified.
func (s *Service) RequestCardToken(ctx context.Context, cardNumber, expireDate string) (*click.CreateCardTokenResult, error) {
	return s.gw.CreateCardToken(ctx, cardNumber, expireDate)
}

// VerifyCardToken confirms the token with the SMS code and stores it on the
// user for future recurring charges.
func (s *Service) VerifyCardToken(ctx context.Context, userID int64, token, smsCode string) error {
	if _, err := s.gw.VerifyCardToken(ctx, token, smsCode); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("card_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RemoveCardToken deletes the stored token on both sides.
func (s *Service) RemoveCardToken(ctx context.Context, userID int64) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.CardToken == "" {
		return ErrNoCardToken
	}
	if err := s.gw.RemoveCardToken(ctx, user.CardToken); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("card_token", "").Error
}

// PayWithToken charges the user's stored card for a plan. The transaction
// row is created before the gateway call so a timeout can be marked failed
// instead of leaving nothing (or a dangling pending row) behind.
func (s *Service) PayWithToken(ctx context.Context, userID int64, planID string) (*models.Transaction, error) {
	plan := s.cfg.GetPlanByID(planID)
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CardToken == "" {
		return nil, ErrNoCardToken
	}

	prepareID := tool.GeneratePrepareID(time.Now())
	txn := &models.Transaction{
		ID: tool.GenerateUUIDV7(),
		// placeholder until the gateway assigns a payment id
		ClickTransID: prepareID,
		PrepareID:    prepareID,
		UserID:       userID,
		PlanID:       plan.ID,
		Amount:       plan.Price,
		Kind:         types.PaymentKindRecurring,
		Status:       types.TransactionStatusProcessing,
		Extra:        datatypes.NewJSONType(&models.TransactionExtra{PlanSnapshot: plan}),
	}
	if err := s.store.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("payment: create transaction: %w", err)
	}

	res, err := s.gw.PayWithCardToken(ctx, user.CardToken, float64(plan.Price), s.merchantTransID(userID, plan))
	if err != nil {
		s.failCharge(ctx, txn, err)
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Update("click_trans_id", res.PaymentID).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("payment_id_update_failed", "transaction_id", txn.ID, "err", err)
	}
	txn.ClickTransID = res.PaymentID

	done, err := s.store.CompleteIfOpen(ctx, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("payment: complete transaction: %w", err)
	}
	if done {
		txn.Status = types.TransactionStatusCompleted
		if err := s.activator.Activate(ctx, userID, plan, txn); err != nil {
			// money moved; reconciled out-of-band
			logctx.FromCtx(ctx, s.log).Errorw("activation_failed", "transaction_id", txn.ID, "err", err)
		}
	}
	return txn, nil
}

func (s *Service) failCharge(ctx context.Context, txn *models.Transaction, cause error) {
	code := 0
	var ge *click.GatewayError
	if errors.As(cause, &ge) {
		code = ge.Code
	}
	if err := s.store.MarkFailed(ctx, txn.ID, code, cause.Error()); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("mark_failed_error", "transaction_id", txn.ID, "err", err)
	}
}

func (s *Service) loadUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// merchantTransID renders the merchant-facing id the way the configured
// callback variant expects it back.
func (s *Service) merchantTransID(userID int64, plan *types.Plan) string {
	if s.cfg.Click.Variant == types.CallbackVariantToken {
		return plan.ID
	}
	return strconv.FormatInt(userID, 10)
}
