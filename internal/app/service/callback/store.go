package callback

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/pkg/types"
)

// GormStore is the postgres-backed TransactionStore.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

var _ TransactionStore = (*GormStore)(nil)

func (s *GormStore) FindByClickTransID(ctx context.Context, clickTransID int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).Where("click_trans_id = ?", clickTransID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *GormStore) FindByPrepare(ctx context.Context, prepareID, userID int64, planID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).
		Where("prepare_id = ? AND user_id = ? AND plan_id = ?", prepareID, userID, planID).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *GormStore) Create(ctx context.Context, txn *models.Transaction) error {
	return s.db.WithContext(ctx).Create(txn).Error
}

// CompleteIfOpen is the single conditional write the completion race relies
// on: only a row still in pending/processing can move to completed, and
// RowsAffected tells the caller whether it won.
func (s *GormStore) CompleteIfOpen(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, []types.TransactionStatus{types.TransactionStatusPending, types.TransactionStatusProcessing}).
		Updates(map[string]any{
			"status":       types.TransactionStatusCompleted,
			"completed_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) MarkFailed(ctx context.Context, id string, gatewayCode int, note string) error {
	updates := map[string]any{
		"status":             types.TransactionStatusFailed,
		"gateway_error_code": gatewayCode,
		"gateway_error_note": note,
	}
	res := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, []types.TransactionStatus{types.TransactionStatusPending, types.TransactionStatusProcessing}).
		Updates(updates)
	return res.Error
}

func (s *GormStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
