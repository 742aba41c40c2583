package callback

import (
	"context"
	"strconv"

	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/logctx"
	"github.com/teleshop/paygate/pkg/types"
)

// complete finishes a previously prepared attempt. Redelivery is expected:
// an already-completed transaction answers success again without a second
// activation, and the completed transition itself is a conditional write so
// two racing deliveries cannot both win.
func (s *Service) complete(ctx context.Context, req *click.CallbackRequest) *click.CallbackResponse {
	log := logctx.FromCtx(ctx, s.log)

	// Gateway-reported failure: mark the attempt failed and echo the code
	// verbatim. This is the gateway's decision, not ours.
	if req.Error != 0 {
		s.failFromGateway(ctx, req)
		resp := s.respond(req, click.ErrorCode(req.Error))
		resp.ErrorNote = req.ErrorNote
		return resp
	}

	if !click.VerifySignature(s.signParams(req), req.SignString) {
		log.Warnw("complete_sign_mismatch", "click_trans_id", req.ClickTransID, "sign_time", req.SignTime)
		return s.respond(req, click.CodeSignCheckFailed)
	}

	userID, plan, ok := s.normalize(req)
	if !ok {
		return s.respond(req, click.CodeUserNotFound)
	}
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		log.Errorw("complete_user_lookup_failed", "user_id", userID, "err", err)
		return s.respond(req, click.CodeUpdateFailed)
	}
	if !exists {
		return s.respond(req, click.CodeUserNotFound)
	}

	prepareID, err := strconv.ParseInt(req.MerchantPrepareID, 10, 64)
	if err != nil || prepareID <= 0 {
		return s.respond(req, click.CodeTransactionNotFound)
	}
	txn, err := s.store.FindByPrepare(ctx, prepareID, userID, plan.ID)
	if err != nil {
		log.Errorw("complete_lookup_failed", "prepare_id", prepareID, "err", err)
		return s.respond(req, click.CodeUpdateFailed)
	}
	if txn == nil {
		return s.respond(req, click.CodeTransactionNotFound)
	}

	if txn.Status == types.TransactionStatusCompleted {
		// redelivered complete: same confirm id, no second activation
		resp := s.respond(req, click.CodeSuccess)
		resp.MerchantConfirmID = txn.PrepareID
		return resp
	}
	if txn.Status == types.TransactionStatusFailed || txn.Status == types.TransactionStatusCanceled {
		return s.respond(req, click.CodeTransactionCanceled)
	}

	if req.Amount != float64(plan.Price) {
		return s.respond(req, click.CodeInvalidAmount)
	}

	done, err := s.store.CompleteIfOpen(ctx, txn.ID)
	if err != nil {
		log.Errorw("complete_update_failed", "transaction_id", txn.ID, "err", err)
		return s.respond(req, click.CodeUpdateFailed)
	}
	if !done {
		// lost the race against a concurrent redelivery; re-read and act on
		// whatever state won
		current, err := s.store.FindByPrepare(ctx, prepareID, userID, plan.ID)
		if err != nil || current == nil {
			return s.respond(req, click.CodeUpdateFailed)
		}
		if current.Status == types.TransactionStatusCompleted {
			resp := s.respond(req, click.CodeSuccess)
			resp.MerchantConfirmID = current.PrepareID
			return resp
		}
		return s.respond(req, click.CodeTransactionCanceled)
	}

	// The money has moved. Activation failures are reconciled out-of-band
	// and must not fail the ack or resurrect the transaction state.
	if err := s.activator.Activate(ctx, userID, plan, txn); err != nil {
		log.Errorw("activation_failed", "transaction_id", txn.ID, "user_id", userID, "plan_id", plan.ID, "err", err)
		if s.metrics != nil {
			s.metrics.Activations.WithLabelValues("error").Inc()
		}
	} else if s.metrics != nil {
		s.metrics.Activations.WithLabelValues("ok").Inc()
	}

	resp := s.respond(req, click.CodeSuccess)
	resp.MerchantConfirmID = txn.PrepareID
	return resp
}

// failFromGateway marks the referenced attempt failed if it is still open.
// Missing or already-terminal rows are left alone; the echo to the gateway
// does not depend on local state.
func (s *Service) failFromGateway(ctx context.Context, req *click.CallbackRequest) {
	txn, err := s.store.FindByClickTransID(ctx, req.ClickTransID)
	if err != nil || txn == nil {
		return
	}
	if !txn.Status.Open() {
		return
	}
	if err := s.store.MarkFailed(ctx, txn.ID, req.Error, req.ErrorNote); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("mark_failed_error", "transaction_id", txn.ID, "err", err)
	}
}
