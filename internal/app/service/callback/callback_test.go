package callback

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/types"
)

// fakeStore is an in-memory TransactionStore for driving the state machine
// without a database.
type fakeStore struct {
	mu    sync.Mutex
	rows  map[int64]*models.Transaction // keyed by click_trans_id
	users map[int64]bool
	// loseRace makes CompleteIfOpen report a lost conditional write while a
	// concurrent delivery flips the row to completed.
	loseRace bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]*models.Transaction{}, users: map[int64]bool{}}
}

func (f *fakeStore) FindByClickTransID(_ context.Context, clickTransID int64) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.rows[clickTransID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) FindByPrepare(_ context.Context, prepareID, userID int64, planID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.PrepareID == prepareID && t.UserID == userID && t.PlanID == planID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Create(_ context.Context, txn *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *txn
	f.rows[txn.ClickTransID] = &cp
	return nil
}

func (f *fakeStore) CompleteIfOpen(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.ID != id {
			continue
		}
		if !t.Status.Open() {
			return false, nil
		}
		now := time.Now()
		t.Status = types.TransactionStatusCompleted
		t.CompletedAt = &now
		if f.loseRace {
			// the other delivery won the conditional write
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id string, gatewayCode int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.ID != id || !t.Status.Open() {
			continue
		}
		t.Status = types.TransactionStatusFailed
		t.GatewayErrorCode = gatewayCode
		t.GatewayErrorNote = note
	}
	return nil
}

func (f *fakeStore) UserExists(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

type fakeActivator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeActivator) Activate(context.Context, int64, *types.Plan, *models.Transaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *fakeActivator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

const (
	testSecret = "topsecret"
	testUserID = int64(100500)
	testPlanID = "pro_month"
	testPrice  = int64(50000)
)

func testConfig(variant types.CallbackVariant) *config.Config {
	return &config.Config{
		Click: config.ClickConfig{
			ServiceID: 777,
			SecretKey: testSecret,
			Variant:   variant,
		},
		Plans: []*types.Plan{
			{ID: testPlanID, Title: "Pro Monthly", Price: testPrice, DurationDays: 30},
			{ID: "pro_year", Title: "Pro Yearly", Price: 500000, DurationDays: 365, Recurring: true},
		},
	}
}

func newTestService(cfg *config.Config) (*Service, *fakeStore, *fakeActivator) {
	store := newFakeStore()
	store.users[testUserID] = true
	act := &fakeActivator{}
	return NewService(cfg, zap.NewNop().Sugar(), store, act, nil), store, act
}

// sign fills in SignString over the request's current field values.
func sign(cfg *config.Config, req *click.CallbackRequest) *click.CallbackRequest {
	p := click.SignParams{
		ClickTransID:    req.ClickTransID,
		ServiceID:       req.ServiceID,
		SecretKey:       cfg.Click.SecretKey,
		MerchantTransID: req.MerchantTransID,
		Amount:          req.Amount,
		Action:          req.Action,
		SignTime:        req.SignTime,
	}
	if req.Action == click.ActionComplete {
		p.MerchantPrepareID = req.MerchantPrepareID
	}
	req.SignString = click.ComputeSignature(p)
	return req
}

func prepareReq(cfg *config.Config, clickTransID int64, amount float64) *click.CallbackRequest {
	return sign(cfg, &click.CallbackRequest{
		ClickTransID:    clickTransID,
		ServiceID:       cfg.Click.ServiceID,
		MerchantTransID: strconv.FormatInt(testUserID, 10),
		Param2:          testPlanID,
		Amount:          amount,
		Action:          click.ActionPrepare,
		SignTime:        "2026-08-30 12:00:00",
	})
}

func completeReq(cfg *config.Config, clickTransID, prepareID int64, amount float64) *click.CallbackRequest {
	return sign(cfg, &click.CallbackRequest{
		ClickTransID:      clickTransID,
		ServiceID:         cfg.Click.ServiceID,
		MerchantTransID:   strconv.FormatInt(testUserID, 10),
		MerchantPrepareID: strconv.FormatInt(prepareID, 10),
		Param2:            testPlanID,
		Amount:            amount,
		Action:            click.ActionComplete,
		SignTime:          "2026-08-30 12:00:05",
	})
}
