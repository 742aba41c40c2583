package callbacklog

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/pkg/logctx"
	"github.com/teleshop/paygate/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a callback audit row. Nil input is ignored.
func (s *Service) Save(ctx context.Context, row *models.CallbackLog) {
	if s.db == nil {
		return
	}
	go func() {
		if row == nil {
			return
		}
		if row.ID == "" {
			row.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save callback log: %v", err)
		}
	}()
}

var Module = fx.Options(
	fx.Provide(New),
)
