package handler

import (
	"net/http"
	"time"

	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.LedgerService
}

func NewEventHandler(service service.LedgerService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine, protected ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	authed := router.Group("", protected...)
	{
		router.GET("events/count", h.Count)
		router.GET("events/:id", h.Get)
		router.GET("events/:id/organizers/:principal", h.IsOrganizer)
		router.GET("events/:id/ticket-types", h.ListTicketTypes)
		router.GET("events/:id/ticket-types/:typeId", h.GetTicketType)

		authed.POST("events", h.Create)
		authed.PUT("events/:id", h.Update)
		authed.POST("events/:id/ticket-types", h.AddTicketType)
	}
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	BasePrice   uint64    `json:"base_price"`
	MaxTickets  uint64    `json:"max_tickets"`
}

// UpdateEventRequest 更新活動請求；maxTickets 不可修改
type UpdateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	BasePrice   uint64    `json:"base_price"`
}

type AddTicketTypeRequest struct {
	Name      string `json:"name"`
	Price     uint64 `json:"price"`
	MaxSupply uint64 `json:"max_supply"`
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), middleware.PrincipalFrom(c), model.CreateEventParams{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		BasePrice:   req.BasePrice,
		MaxTickets:  req.MaxTickets,
	})
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}
	handleSuccess(c, event, http.StatusCreated)
}

func (h *EventHandler) Update(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := h.service.UpdateEvent(c.Request.Context(), middleware.PrincipalFrom(c), id, model.UpdateEventParams{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		BasePrice:   req.BasePrice,
	})
	if err != nil {
		handleError(c, err, "UpdateEvent")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	event, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) Count(c *gin.Context) {
	count, err := h.service.GetEventCount(c.Request.Context())
	if err != nil {
		handleError(c, err, "GetEventCount")
		return
	}
	handleSuccess(c, gin.H{"count": count}, http.StatusOK)
}

func (h *EventHandler) IsOrganizer(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	isOrganizer, err := h.service.IsEventOrganizer(c.Request.Context(), id, model.Principal(c.Param("principal")))
	if err != nil {
		handleError(c, err, "IsEventOrganizer")
		return
	}
	handleSuccess(c, gin.H{"is_organizer": isOrganizer}, http.StatusOK)
}

func (h *EventHandler) AddTicketType(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req AddTicketTypeRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	tt, err := h.service.AddTicketType(c.Request.Context(), middleware.PrincipalFrom(c), id, model.AddTicketTypeParams{
		Name:      req.Name,
		Price:     req.Price,
		MaxSupply: req.MaxSupply,
	})
	if err != nil {
		handleError(c, err, "AddTicketType")
		return
	}
	handleSuccess(c, tt, http.StatusCreated)
}

func (h *EventHandler) ListTicketTypes(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ticketTypes, err := h.service.ListTicketTypes(ctx, id)
	if err != nil {
		handleError(c, err, "ListTicketTypes")
		return
	}
	count, err := h.service.GetEventTicketTypes(ctx, id)
	if err != nil {
		handleError(c, err, "GetEventTicketTypes")
		return
	}
	handleSuccess(c, gin.H{"count": count, "ticket_types": ticketTypes}, http.StatusOK)
}

func (h *EventHandler) GetTicketType(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	typeID, ok := ParamID(c, "typeId")
	if !ok {
		return
	}
	tt, err := h.service.GetTicketType(c.Request.Context(), id, typeID)
	if err != nil {
		handleError(c, err, "GetTicketType")
		return
	}
	handleSuccess(c, tt, http.StatusOK)
}
