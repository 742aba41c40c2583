package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teleshop/paygate/internal/app/service/payment"
	"github.com/teleshop/paygate/internal/app/service/subscription"
	"github.com/teleshop/paygate/internal/platform/click"
	"github.com/teleshop/paygate/pkg/response"
)

type registerUserRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Phone  string `json:"phone"`
}

// @Summary      Register bot user
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body registerUserRequest true "User registration"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/user [post]
func ApiRegisterUser(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.EnsureUser(c.Request.Context(), req.UserID, req.Phone); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type createInvoiceRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
	Phone  string `json:"phone" binding:"required"`
}

type createInvoiceResponse struct {
	InvoiceID int64 `json:"invoice_id"`
}

// @Summary      Create invoice
// @Description  Pushes a payment invoice to the payer's phone via the gateway.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body createInvoiceRequest true "Invoice request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/invoice [post]
func ApiCreateInvoice(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		id, err := svc.CreateInvoice(c.Request.Context(), req.UserID, req.PlanID, req.Phone)
		if err != nil {
			c.JSON(http.StatusOK, gatewayErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(createInvoiceResponse{InvoiceID: id}))
	}
}

// @Summary      Invoice status
// @Description  Polls a previously created invoice. 0=pending, 1=paid, -1=cancelled.
// @Tags         Payment
// @Produce      json
// @Param        id path int true "Invoice id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/invoice/{id}/status [get]
func ApiInvoiceStatus(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid invoice id"))
			return
		}
		res, err := svc.InvoiceStatus(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusOK, gatewayErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type cardTokenRequest struct {
	CardNumber string `json:"card_number" binding:"required"`
	ExpireDate string `json:"expire_date" binding:"required"`
}

// @Summary      Request card token
// @Description  Starts stored-card issuance; the gateway texts an SMS code to the cardholder.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body cardTokenRequest true "Card token request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/card_token [post]
func ApiRequestCardToken(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cardTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.RequestCardToken(c.Request.Context(), req.CardNumber, req.ExpireDate)
		if err != nil {
			c.JSON(http.StatusOK, gatewayErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type verifyCardTokenRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	CardToken string `json:"card_token" binding:"required"`
	SmsCode   string `json:"sms_code" binding:"required"`
}

// @Summary      Verify card token
// @Description  Confirms the token with the SMS code and stores it for recurring charges.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body verifyCardTokenRequest true "Verification request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/card_token/verify [post]
func ApiVerifyCardToken(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyCardTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.VerifyCardToken(c.Request.Context(), req.UserID, req.CardToken, req.SmsCode); err != nil {
			c.JSON(http.StatusOK, gatewayErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type payWithTokenRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

// @Summary      Pay with stored token
// @Description  Charges the user's verified card token for a plan and activates the subscription.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body payWithTokenRequest true "Charge request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/pay [post]
func ApiPayWithToken(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payWithTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		txn, err := svc.PayWithToken(c.Request.Context(), req.UserID, req.PlanID)
		if err != nil {
			c.JSON(http.StatusOK, gatewayErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(txn))
	}
}

type removeCardTokenRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// @Summary      Remove card token
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body removeCardTokenRequest true "Removal request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/card_token/remove [post]
func ApiRemoveCardToken(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeCardTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.RemoveCardToken(c.Request.Context(), req.UserID); err != nil {
			c.JSON(http.StatusOK, gatewayErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Get user subscription
// @Tags         Payment
// @Produce      json
// @Param        user_id path int true "Telegram user id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/subscription/{user_id} [get]
func ApiGetSubscription(sub *subscription.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid user id"))
			return
		}
		info, err := sub.GetUserSubscription(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(info))
	}
}

// gatewayErrorResponse maps service errors to an envelope the bot can turn
// into an actionable user message: caller mistakes are bad requests,
// gateway-reported errors keep the gateway's own code and note.
func gatewayErrorResponse(err error) *response.APIResponse[any] {
	switch {
	case errors.Is(err, payment.ErrPlanNotFound),
		errors.Is(err, payment.ErrUserNotFound),
		errors.Is(err, payment.ErrNoCardToken):
		return response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error())
	}
	var ge *click.GatewayError
	if errors.As(err, &ge) {
		return response.ErrorT[any](response.APIResponseCodeError, gin.H{"gateway_code": ge.Code, "gateway_note": ge.Note})
	}
	return response.ErrorT[any](response.APIResponseCodeError, err.Error())
}

func RegisterPaymentRoutes(r gin.IRouter, svc *payment.Service, sub *subscription.Service) {
	r.POST("/user", ApiRegisterUser(svc))
	r.POST("/invoice", ApiCreateInvoice(svc))
	r.GET("/invoice/:id/status", ApiInvoiceStatus(svc))
	r.POST("/card_token", ApiRequestCardToken(svc))
	r.POST("/card_token/verify", ApiVerifyCardToken(svc))
	r.POST("/card_token/remove", ApiRemoveCardToken(svc))
	r.POST("/pay", ApiPayWithToken(svc))
	r.GET("/subscription/:user_id", ApiGetSubscription(sub))
}
