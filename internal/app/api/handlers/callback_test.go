package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teleshop/paygate/internal/app/service/callback"
	"github.com/teleshop/paygate/internal/app/service/callbacklog"
	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/types"
)

func TestRegisterCallbackRoutes_RegistersEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/callback")
	RegisterCallbackRoutes(g, nil, nil, zap.NewNop().Sugar())

	found := false
	for _, rt := range r.Routes() {
		if rt.Method == http.MethodPost && rt.Path == "/callback/click" {
			found = true
		}
	}
	require.True(t, found)
}

func TestApiClickCallback_BindFailureStillAnswers200(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/click", ApiClickCallback(nil, nil, zap.NewNop().Sugar()))

	form := url.Values{}
	form.Set("click_trans_id", "not-a-number")
	form.Set("action", "0")
	req := httptest.NewRequest(http.MethodPost, "/click", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp click.CallbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, click.CodeActionNotFound, resp.Error)
}

// memStore is a minimal TransactionStore for exercising the HTTP surface.
type memStore struct {
	rows  map[int64]*models.Transaction
	users map[int64]bool
}

func (m *memStore) FindByClickTransID(_ context.Context, id int64) (*models.Transaction, error) {
	return m.rows[id], nil
}

func (m *memStore) FindByPrepare(_ context.Context, prepareID, userID int64, planID string) (*models.Transaction, error) {
	for _, t := range m.rows {
		if t.PrepareID == prepareID && t.UserID == userID && t.PlanID == planID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, txn *models.Transaction) error {
	m.rows[txn.ClickTransID] = txn
	return nil
}

func (m *memStore) CompleteIfOpen(_ context.Context, id string) (bool, error) {
	for _, t := range m.rows {
		if t.ID == id && t.Status.Open() {
			t.Status = types.TransactionStatusCompleted
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkFailed(_ context.Context, id string, code int, note string) error {
	for _, t := range m.rows {
		if t.ID == id && t.Status.Open() {
			t.Status = types.TransactionStatusFailed
			t.GatewayErrorCode = code
			t.GatewayErrorNote = note
		}
	}
	return nil
}

func (m *memStore) UserExists(_ context.Context, userID int64) (bool, error) {
	return m.users[userID], nil
}

type noopActivator struct{}

func (noopActivator) Activate(context.Context, int64, *types.Plan, *models.Transaction) error {
	return nil
}

func TestApiClickCallback_PrepareOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Click: config.ClickConfig{
			ServiceID: 777,
			SecretKey: "topsecret",
			Variant:   types.CallbackVariantRedirect,
		},
		Plans: []*types.Plan{{ID: "pro_month", Title: "Pro Monthly", Price: 50000, DurationDays: 30}},
	}
	log := zap.NewNop().Sugar()
	store := &memStore{rows: map[int64]*models.Transaction{}, users: map[int64]bool{100500: true}}
	svc := callback.NewService(cfg, log, store, noopActivator{}, nil)
	audit := callbacklog.New(nil, log)

	r := gin.New()
	RegisterCallbackRoutes(r.Group("/callback"), svc, audit, log)

	sig := click.ComputeSignature(click.SignParams{
		ClickTransID:    4242,
		ServiceID:       777,
		SecretKey:       "topsecret",
		MerchantTransID: "100500",
		Amount:          50000,
		Action:          click.ActionPrepare,
		SignTime:        "2026-08-30 12:00:00",
	})
	form := url.Values{}
	form.Set("click_trans_id", "4242")
	form.Set("service_id", "777")
	form.Set("merchant_trans_id", "100500")
	form.Set("param2", "pro_month")
	form.Set("amount", "50000")
	form.Set("action", strconv.Itoa(click.ActionPrepare))
	form.Set("error", "0")
	form.Set("sign_time", "2026-08-30 12:00:00")
	form.Set("sign_string", sig)

	req := httptest.NewRequest(http.MethodPost, "/callback/click", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp click.CallbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, click.CodeSuccess, resp.Error)
	require.Positive(t, resp.MerchantPrepareID)
	require.Len(t, store.rows, 1)
}
