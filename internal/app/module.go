package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/teleshop/paygate/internal/app/api/server"
	"github.com/teleshop/paygate/internal/app/service/callback"
	"github.com/teleshop/paygate/internal/app/service/callbacklog"
	"github.com/teleshop/paygate/internal/app/service/payment"
	"github.com/teleshop/paygate/internal/app/service/statistics"
	"github.com/teleshop/paygate/internal/app/service/subscription"
	"github.com/teleshop/paygate/internal/platform/db"
	"github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	callback.Module,
	callbacklog.Module,
	subscription.Module,
	payment.Module,
	statistics.Module,
)
