package handler

import (
	"math"
	"net/http"
	"time"

	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service"
	apperrors "event-ticket-ledger/pkg/app_errors"

	"github.com/gin-gonic/gin"
)

type AuctionHandler struct {
	service service.LedgerService
	clock   clock.Clock
}

func NewAuctionHandler(service service.LedgerService, clk clock.Clock) *AuctionHandler {
	return &AuctionHandler{service: service, clock: clk}
}

func (h *AuctionHandler) RegisterRoutes(r *gin.Engine, protected ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	authed := router.Group("", protected...)
	{
		router.GET("auctions/:id", h.Get)

		authed.POST("auctions", h.Start)
		authed.POST("auctions/:id/bids", h.Bid)
		authed.POST("auctions/:id/end", h.End)
	}
}

type StartAuctionRequest struct {
	EventID         uint64 `json:"event_id"`
	TicketTypeID    uint64 `json:"ticket_type_id"`
	StartingPrice   uint64 `json:"starting_price"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// 超過此值換算成 time.Duration 會溢位
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

type BidRequest struct {
	Value uint64 `json:"value"`
}

// AuctionResponse 附上依目前時間推導的狀態
type AuctionResponse struct {
	*model.Auction
	Status model.AuctionStatus `json:"status"`
}

func (h *AuctionHandler) Start(c *gin.Context) {
	var req StartAuctionRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if req.DurationSeconds > maxDurationSeconds {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "duration_seconds out of range",
			"code":  apperrors.Code(apperrors.ErrInvalidInput),
		})
		return
	}

	auction, err := h.service.StartAuction(c.Request.Context(), middleware.PrincipalFrom(c), model.StartAuctionParams{
		EventID:       req.EventID,
		TicketTypeID:  req.TicketTypeID,
		StartingPrice: req.StartingPrice,
		Duration:      time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		handleError(c, err, "StartAuction")
		return
	}
	handleSuccess(c, h.respond(auction), http.StatusCreated)
}

func (h *AuctionHandler) Get(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	auction, err := h.service.GetAuction(c.Request.Context(), id)
	if err != nil {
		handleError(c, err, "GetAuction")
		return
	}
	handleSuccess(c, h.respond(auction), http.StatusOK)
}

func (h *AuctionHandler) Bid(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req BidRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	auction, err := h.service.PlaceBid(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Value)
	if err != nil {
		handleError(c, err, "PlaceBid")
		return
	}
	handleSuccess(c, h.respond(auction), http.StatusOK)
}

func (h *AuctionHandler) End(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	settlement, err := h.service.EndAuction(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		handleError(c, err, "EndAuction")
		return
	}
	handleSuccess(c, settlement, http.StatusOK)
}

func (h *AuctionHandler) respond(a *model.Auction) AuctionResponse {
	return AuctionResponse{Auction: a, Status: a.StatusAt(h.clock.Now())}
}
