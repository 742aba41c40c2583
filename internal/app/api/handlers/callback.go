package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/teleshop/paygate/internal/app/service/callback"
	"github.com/teleshop/paygate/internal/app/service/callbacklog"
	"github.com/teleshop/paygate/internal/models"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/logctx"
)

// @Summary      Click Webhook
// @Description  Handles the gateway's prepare/complete callbacks. Always answers HTTP 200; failures are signaled with the in-band error code.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body click.CallbackRequest true "Callback body"
// @Success      200  {object}  click.CallbackResponse
// @Router       /callback/click [post]
// ApiClickCallback handles gateway payment callbacks.
func ApiClickCallback(svc *callback.Service, audit *callbacklog.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req click.CallbackRequest
		if err := c.ShouldBind(&req); err != nil {
			logctx.FromGin(c, log).Warnw("callback_bind_failed", "err", err.Error())
			c.JSON(http.StatusOK, &click.CallbackResponse{
				Error:     click.CodeActionNotFound,
				ErrorNote: click.CodeActionNotFound.Note(),
			})
			return
		}

		var traceID string
		if v, ok := c.Get("traceID"); ok {
			traceID, _ = v.(string)
		}
		payload, _ := json.Marshal(&req)
		audit.Save(c.Request.Context(), &models.CallbackLog{
			ClickTransID: req.ClickTransID,
			TraceID:      traceID,
			Action:       req.Action,
			Status:       models.CallbackLogStatusReceived,
			Payload:      datatypes.JSON(payload),
		})

		resp := svc.Handle(c.Request.Context(), &req)

		status := models.CallbackLogStatusHandled
		if resp.Error != click.CodeSuccess {
			status = models.CallbackLogStatusHandleFailed
		}
		result, _ := json.Marshal(resp)
		audit.Save(c.Request.Context(), &models.CallbackLog{
			ClickTransID: req.ClickTransID,
			TraceID:      traceID,
			Action:       req.Action,
			Status:       status,
			Payload:      datatypes.JSON(payload),
			Result:       func() *datatypes.JSON { j := datatypes.JSON(result); return &j }(),
		})

		c.JSON(http.StatusOK, resp)
	}
}

func RegisterCallbackRoutes(r gin.IRouter, svc *callback.Service, audit *callbacklog.Service, log *zap.SugaredLogger) {
	r.POST("/click", ApiClickCallback(svc, audit, log))
}
