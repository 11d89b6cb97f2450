package handler

import (
	"net/http"

	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	service service.LedgerService
}

func NewAccountHandler(service service.LedgerService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) RegisterRoutes(r *gin.Engine, protected ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	authed := router.Group("", protected...)
	{
		router.GET("accounts/:principal/balance", h.Balance)
		router.GET("notifications", h.Notifications)

		authed.POST("accounts/deposit", h.Deposit)
		authed.POST("accounts/withdraw", h.Withdraw)
	}
}

type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

type BalanceResponse struct {
	Principal model.Principal `json:"principal"`
	Balance   uint64          `json:"balance"`
}

// NotificationsQuery after 為上次讀到的 seq，limit 為 0 時預設 100 筆
type NotificationsQuery struct {
	After uint64 `form:"after"`
	Limit int    `form:"limit" binding:"min=0,max=1000"`
}

func (h *AccountHandler) Deposit(c *gin.Context) {
	var req AmountRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	who := middleware.PrincipalFrom(c)
	balance, err := h.service.Deposit(c.Request.Context(), who, req.Amount)
	if err != nil {
		handleError(c, err, "Deposit")
		return
	}
	handleSuccess(c, BalanceResponse{Principal: who, Balance: balance}, http.StatusOK)
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	var req AmountRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	who := middleware.PrincipalFrom(c)
	balance, err := h.service.Withdraw(c.Request.Context(), who, req.Amount)
	if err != nil {
		handleError(c, err, "Withdraw")
		return
	}
	handleSuccess(c, BalanceResponse{Principal: who, Balance: balance}, http.StatusOK)
}

func (h *AccountHandler) Balance(c *gin.Context) {
	who := model.Principal(c.Param("principal"))
	balance, err := h.service.Balance(c.Request.Context(), who)
	if err != nil {
		handleError(c, err, "Balance")
		return
	}
	handleSuccess(c, BalanceResponse{Principal: who, Balance: balance}, http.StatusOK)
}

func (h *AccountHandler) Notifications(c *gin.Context) {
	var q NotificationsQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	if q.Limit == 0 {
		q.Limit = 100
	}
	notifications, err := h.service.Notifications(c.Request.Context(), q.After, q.Limit)
	if err != nil {
		handleError(c, err, "Notifications")
		return
	}
	handleSuccess(c, notifications, http.StatusOK)
}
