package handler

import (
	"net/http"

	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service service.LedgerService
}

func NewTicketHandler(service service.LedgerService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(r *gin.Engine, protected ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	authed := router.Group("", protected...)
	{
		router.GET("events/:id/holdings/:holder", h.Holding)

		authed.POST("events/:id/ticket-types/:typeId/purchase", h.Purchase)
		authed.POST("events/:id/ticket-types/:typeId/transfer", h.Transfer)
	}
}

// PurchaseRequest value 為隨呼叫附上的金額，必須等於單價乘以數量
type PurchaseRequest struct {
	Quantity uint64 `json:"quantity"`
	Value    uint64 `json:"value"`
}

type TransferRequest struct {
	To       string `json:"to"`
	Quantity uint64 `json:"quantity"`
}

func (h *TicketHandler) Purchase(c *gin.Context) {
	eventID, typeID, ok := ticketTypePath(c)
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	purchase, err := h.service.PurchaseTicket(c.Request.Context(), middleware.PrincipalFrom(c), model.PurchaseParams{
		EventID:      eventID,
		TicketTypeID: typeID,
		Quantity:     req.Quantity,
		Value:        req.Value,
	})
	if err != nil {
		handleError(c, err, "PurchaseTicket")
		return
	}
	handleSuccess(c, purchase, http.StatusCreated)
}

func (h *TicketHandler) Transfer(c *gin.Context) {
	eventID, typeID, ok := ticketTypePath(c)
	if !ok {
		return
	}
	var req TransferRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	err := h.service.TransferTicket(c.Request.Context(), middleware.PrincipalFrom(c), model.TransferParams{
		EventID:      eventID,
		TicketTypeID: typeID,
		To:           model.Principal(req.To),
		Quantity:     req.Quantity,
	})
	if err != nil {
		handleError(c, err, "TransferTicket")
		return
	}
	handleSuccess(c, nil, http.StatusNoContent)
}

func (h *TicketHandler) Holding(c *gin.Context) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	holder := model.Principal(c.Param("holder"))
	qty, err := h.service.GetHolding(c.Request.Context(), eventID, holder)
	if err != nil {
		handleError(c, err, "GetHolding")
		return
	}
	handleSuccess(c, model.Holding{EventID: eventID, Holder: holder, Quantity: qty}, http.StatusOK)
}

func ticketTypePath(c *gin.Context) (uint64, uint64, bool) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return 0, 0, false
	}
	typeID, ok := ParamID(c, "typeId")
	if !ok {
		return 0, 0, false
	}
	return eventID, typeID, true
}
