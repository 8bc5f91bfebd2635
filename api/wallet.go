package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/internal/service/wallet"
)

type WalletHandler struct {
	service  wallet.WalletUseCase
	currency string
	log      *zap.Logger
}

type topUpRequest struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

type balanceResponse struct {
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

func NewWalletHandler(service wallet.WalletUseCase, currency string, log *zap.Logger) *WalletHandler {
	return &WalletHandler{service: service, currency: currency, log: log}
}

func (h *WalletHandler) Register(router *gin.RouterGroup, writes ...gin.HandlerFunc) {
	router.GET("", h.balance)
	router.POST("/topup", chain(writes, h.topUp)...)
}

func (h *WalletHandler) balance(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		unauthorized(c, "missing bearer token")
		return
	}
	balance, err := h.service.Balance(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{UserID: actor.UserID.String(), Balance: balance, Currency: h.currency})
}

func (h *WalletHandler) topUp(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		unauthorized(c, "missing bearer token")
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.TopUp(c.Request.Context(), wallet.TopUpInput{
		Actor:          actor,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: c.GetHeader(headerIdempotency),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
