package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teleshop/paygate/internal/app/service/statistics"
	subsvc "github.com/teleshop/paygate/internal/app/service/subscription"
	"github.com/teleshop/paygate/pkg/response"
)

// @Summary      List Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of payment transactions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.ScanTransactionsRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/list_transactions [post]
func ApiListTransactions(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ScanTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Payment Overview (Admin)
// @Description  Status counts, completed revenue and active subscription count.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/overview [get]
func ApiPaymentOverview(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.GetPaymentOverview(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Daily Revenue (Admin)
// @Tags         Admin
// @Produce      json
// @Param        days query int false "Window size in days (default 30)"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/daily_revenue [get]
func ApiDailyRevenue(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
		res, err := svc.GetDailyRevenue(c.Request.Context(), days)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type giftRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

// @Summary      Gift a plan (Admin)
// @Description  Grants a plan to a user without a payment.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body giftRequest true "Gift request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/gift [post]
func ApiGiftPlan(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req giftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := sub.Gift(c.Request.Context(), req.UserID, req.PlanID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminRoutes(r gin.IRouter, stats *statistics.Service, sub *subsvc.Service) {
	r.POST("/list_transactions", ApiListTransactions(stats))
	r.GET("/overview", ApiPaymentOverview(stats))
	r.GET("/daily_revenue", ApiDailyRevenue(stats))
	r.POST("/gift", ApiGiftPlan(sub))
}
