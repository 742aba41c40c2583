package callback

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/logctx"
	"github.com/teleshop/paygate/pkg/tool"
	"github.com/teleshop/paygate/pkg/types"
)

// prepare reserves a payment attempt. A valid, signature-verified,
// non-duplicate prepare creates the transaction row; the row is created
// directly in processing (the pending→processing step is folded into
// creation, see DESIGN.md).
func (s *Service) prepare(ctx context.Context, req *click.CallbackRequest) *click.CallbackResponse {
	log := logctx.FromCtx(ctx, s.log)

	// A non-zero error on prepare means the upstream call was malformed or
	// cancelled before reaching us. Nothing to record.
	if req.Error != 0 {
		return s.respond(req, click.CodeActionNotFound)
	}

	if !click.VerifySignature(s.signParams(req), req.SignString) {
		log.Warnw("prepare_sign_mismatch", "click_trans_id", req.ClickTransID, "sign_time", req.SignTime)
		return s.respond(req, click.CodeSignCheckFailed)
	}

	userID, plan, ok := s.normalize(req)
	if !ok {
		return s.respond(req, click.CodeUserNotFound)
	}

	existing, err := s.store.FindByClickTransID(ctx, req.ClickTransID)
	if err != nil {
		log.Errorw("prepare_lookup_failed", "click_trans_id", req.ClickTransID, "err", err)
		return s.respond(req, click.CodeUpdateFailed)
	}
	if existing != nil {
		// duplicate prepare on an already-progressing or finished attempt
		return s.respond(req, click.CodeAlreadyPaid)
	}

	if req.Amount != float64(plan.Price) {
		return s.respond(req, click.CodeInvalidAmount)
	}

	txn := &models.Transaction{
		ID:           tool.GenerateUUIDV7(),
		ClickTransID: req.ClickTransID,
		PrepareID:    tool.GeneratePrepareID(time.Now()),
		UserID:       userID,
		PlanID:       plan.ID,
		Amount:       plan.Price,
		Kind:         plan.Kind(),
		Status:       types.TransactionStatusProcessing,
		Extra:        datatypes.NewJSONType(&models.TransactionExtra{PlanSnapshot: plan}),
	}
	if err := s.store.Create(ctx, txn); err != nil {
		log.Errorw("prepare_create_failed", "click_trans_id", req.ClickTransID, "err", err)
		return s.respond(req, click.CodeUpdateFailed)
	}

	resp := s.respond(req, click.CodeSuccess)
	resp.MerchantPrepareID = txn.PrepareID
	return resp
}
