package callback

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/logctx"
	"github.com/teleshop/paygate/pkg/metrics"
	"github.com/teleshop/paygate/pkg/types"
)

// TransactionStore persists payment attempts. It is the idempotency source
// of truth: all status changes go through it, never through direct writes.
type TransactionStore interface {
	// FindByClickTransID returns nil, nil when no row exists.
	FindByClickTransID(ctx context.Context, clickTransID int64) (*models.Transaction, error)
	// FindByPrepare locates the attempt minted at prepare time, scoped to
	// the same user and plan. Returns nil, nil when absent.
	FindByPrepare(ctx context.Context, prepareID, userID int64, planID string) (*models.Transaction, error)
	Create(ctx context.Context, txn *models.Transaction) error
	// CompleteIfOpen transitions the row to completed only if it is still
	// pending/processing. The conditional write is what makes concurrent
	// redelivery safe: exactly one caller sees done=true.
	CompleteIfOpen(ctx context.Context, id string) (done bool, err error)
	// MarkFailed transitions an open row to failed, recording the
	// gateway-reported code. A terminal row is left untouched.
	MarkFailed(ctx context.Context, id string, gatewayCode int, note string) error
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// Activator is the subscription-side collaborator invoked after a payment
// reaches completed. Its failures never roll the payment back.
type Activator interface {
	Activate(ctx context.Context, userID int64, plan *types.Plan, txn *models.Transaction) error
}

// Service is the prepare/complete callback state machine.
type Service struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	store     TransactionStore
	activator Activator
	metrics   *metrics.Metrics
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, store TransactionStore, activator Activator, m *metrics.Metrics) *Service {
	return &Service{cfg: cfg, log: log, store: store, activator: activator, metrics: m}
}

// Handle dispatches a verified-shape callback body to the prepare or
// complete handler. It always produces an in-band response; transport-level
// errors never cross this boundary.
func (s *Service) Handle(ctx context.Context, req *click.CallbackRequest) *click.CallbackResponse {
	var resp *click.CallbackResponse
	switch req.Action {
	case click.ActionPrepare:
		resp = s.prepare(ctx, req)
	case click.ActionComplete:
		resp = s.complete(ctx, req)
	default:
		resp = s.respond(req, click.CodeActionNotFound)
	}

	if s.metrics != nil {
		s.metrics.CallbackResults.WithLabelValues(strconv.Itoa(req.Action), strconv.Itoa(int(resp.Error))).Inc()
	}
	logctx.FromCtx(ctx, s.log).Infow("callback_handled",
		"click_trans_id", req.ClickTransID,
		"action", req.Action,
		"code", resp.Error,
	)
	return resp
}

// normalize resolves the variant-dependent field mapping into the internal
// {userID, planID} shape so the ambiguous wire fields never reach the state
// machine untyped.
func (s *Service) normalize(req *click.CallbackRequest) (userID int64, plan *types.Plan, ok bool) {
	var userField, planField string
	switch s.cfg.Click.Variant {
	case types.CallbackVariantToken:
		planField, userField = req.MerchantTransID, req.Param2
	default:
		userField, planField = req.MerchantTransID, req.Param2
	}

	userID, err := strconv.ParseInt(userField, 10, 64)
	if err != nil || userID <= 0 {
		return 0, nil, false
	}
	plan = s.cfg.GetPlanByID(planField)
	if plan == nil {
		return 0, nil, false
	}
	return userID, plan, true
}

func (s *Service) signParams(req *click.CallbackRequest) click.SignParams {
	p := click.SignParams{
		ClickTransID:    req.ClickTransID,
		ServiceID:       req.ServiceID,
		SecretKey:       s.cfg.Click.SecretKey,
		MerchantTransID: req.MerchantTransID,
		Amount:          req.Amount,
		Action:          req.Action,
		SignTime:        req.SignTime,
	}
	if req.Action == click.ActionComplete {
		p.MerchantPrepareID = req.MerchantPrepareID
	}
	return p
}

func (s *Service) respond(req *click.CallbackRequest, code click.ErrorCode) *click.CallbackResponse {
	return &click.CallbackResponse{
		ClickTransID:    req.ClickTransID,
		MerchantTransID: req.MerchantTransID,
		Error:           code,
		ErrorNote:       code.Note(),
	}
}
