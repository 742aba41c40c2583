package callback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/types"
)

// mustPrepare seeds a processing transaction through the real prepare path
// and returns the minted prepare id.
func mustPrepare(t *testing.T, svc *Service, cfg *config.Config, clickTransID int64) int64 {
	t.Helper()
	resp := svc.Handle(context.Background(), prepareReq(cfg, clickTransID, 50000))
	require.Equal(t, click.CodeSuccess, resp.Error)
	return resp.MerchantPrepareID
}

func TestComplete_Success(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, act := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9101)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9101, prepID, 50000))
	require.Equal(t, click.CodeSuccess, resp.Error)
	require.Equal(t, prepID, resp.MerchantConfirmID)
	require.Equal(t, 1, act.callCount())

	txn, _ := store.FindByClickTransID(context.Background(), 9101)
	require.Equal(t, types.TransactionStatusCompleted, txn.Status)
	require.NotNil(t, txn.CompletedAt)
}

func TestComplete_RedeliveryIsIdempotent(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, _, act := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9102)

	first := svc.Handle(context.Background(), completeReq(cfg, 9102, prepID, 50000))
	require.Equal(t, click.CodeSuccess, first.Error)

	second := svc.Handle(context.Background(), completeReq(cfg, 9102, prepID, 50000))
	require.Equal(t, click.CodeSuccess, second.Error)
	require.Equal(t, first.MerchantConfirmID, second.MerchantConfirmID)
	require.Equal(t, 1, act.callCount(), "redelivery must not activate twice")
}

func TestComplete_GatewayErrorEchoedAndMarksFailed(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, act := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9103)

	req := completeReq(cfg, 9103, prepID, 50000)
	req.Error = -5017
	req.ErrorNote = "Card is blocked"
	resp := svc.Handle(context.Background(), req)

	require.Equal(t, click.ErrorCode(-5017), resp.Error)
	require.Equal(t, "Card is blocked", resp.ErrorNote)
	require.Zero(t, act.callCount())

	txn, _ := store.FindByClickTransID(context.Background(), 9103)
	require.Equal(t, types.TransactionStatusFailed, txn.Status)
	require.Equal(t, -5017, txn.GatewayErrorCode)
	require.Equal(t, "Card is blocked", txn.GatewayErrorNote)
}

func TestComplete_GatewayErrorLeavesCompletedRowAlone(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, _ := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9104)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9104, prepID, 50000))
	require.Equal(t, click.CodeSuccess, resp.Error)

	req := completeReq(cfg, 9104, prepID, 50000)
	req.Error = -9
	svc.Handle(context.Background(), req)

	txn, _ := store.FindByClickTransID(context.Background(), 9104)
	require.Equal(t, types.TransactionStatusCompleted, txn.Status, "terminal rows are absorbing")
}

func TestComplete_AfterFailureIsCancelled(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, _, act := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9105)

	req := completeReq(cfg, 9105, prepID, 50000)
	req.Error = -9
	svc.Handle(context.Background(), req)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9105, prepID, 50000))
	require.Equal(t, click.CodeTransactionCanceled, resp.Error)
	require.Zero(t, act.callCount())
}

func TestComplete_UnknownPrepareID(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, _, _ := newTestService(cfg)
	mustPrepare(t, svc, cfg, 9106)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9106, 1234567, 50000))
	require.Equal(t, click.CodeTransactionNotFound, resp.Error)
}

func TestComplete_MalformedPrepareID(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, _, _ := newTestService(cfg)
	mustPrepare(t, svc, cfg, 9107)

	req := completeReq(cfg, 9107, 1, 50000)
	req.MerchantPrepareID = "not-a-number"
	sign(cfg, req)
	resp := svc.Handle(context.Background(), req)
	require.Equal(t, click.CodeTransactionNotFound, resp.Error)
}

func TestComplete_UnknownUser(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, _ := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9108)
	delete(store.users, testUserID)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9108, prepID, 50000))
	require.Equal(t, click.CodeUserNotFound, resp.Error)
}

func TestComplete_AmountMismatch(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, act := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9109)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9109, prepID, 40000))
	require.Equal(t, click.CodeInvalidAmount, resp.Error)
	require.Zero(t, act.callCount())

	txn, _ := store.FindByClickTransID(context.Background(), 9109)
	require.Equal(t, types.TransactionStatusProcessing, txn.Status)
}

func TestComplete_BadSignature(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, _, _ := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9110)

	req := completeReq(cfg, 9110, prepID, 50000)
	req.SignString = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	resp := svc.Handle(context.Background(), req)
	require.Equal(t, click.CodeSignCheckFailed, resp.Error)
}

func TestComplete_LostRaceStillAcksSuccess(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, act := newTestService(cfg)
	prepID := mustPrepare(t, svc, cfg, 9111)
	store.loseRace = true

	resp := svc.Handle(context.Background(), completeReq(cfg, 9111, prepID, 50000))
	require.Equal(t, click.CodeSuccess, resp.Error)
	require.Equal(t, prepID, resp.MerchantConfirmID)
	require.Zero(t, act.callCount(), "the race winner owns the activation")
}

func TestComplete_ActivationFailureDoesNotFailAck(t *testing.T) {
	cfg := testConfig(types.CallbackVariantRedirect)
	svc, store, act := newTestService(cfg)
	act.err = errors.New("bot api down")
	prepID := mustPrepare(t, svc, cfg, 9112)

	resp := svc.Handle(context.Background(), completeReq(cfg, 9112, prepID, 50000))
	require.Equal(t, click.CodeSuccess, resp.Error)
	require.Equal(t, 1, act.callCount())

	txn, _ := store.FindByClickTransID(context.Background(), 9112)
	require.Equal(t, types.TransactionStatusCompleted, txn.Status, "payment state must not roll back")
}
