// Package api exposes a raffle over HTTP.
//
// The caller's identity is taken from the request body. The server does not
// authenticate anyone and must only be reachable by the operator.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/bitfsorg/raffle-go/config"
	"github.com/bitfsorg/raffle-go/prize"
	"github.com/bitfsorg/raffle-go/raffle"
)

// Handler serves raffle operations.
type Handler struct {
	raffle   *raffle.Raffle
	minter   *prize.Minter
	decimals int32
	mainnet  bool
}

// NewHandler creates a Handler. minter may be nil, in which case the prize
// endpoints answer 404.
func NewHandler(r *raffle.Raffle, minter *prize.Minter, decimals int32, mainnet bool) *Handler {
	return &Handler{raffle: r, minter: minter, decimals: decimals, mainnet: mainnet}
}

// EnterRequest is the body of POST /enter.
type EnterRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// AuthorityRequest is the body of POST /close and POST /open.
type AuthorityRequest struct {
	Authority string `json:"authority" binding:"required"`
}

// WithdrawRequest is the body of POST /withdraw.
type WithdrawRequest struct {
	Address string `json:"address" binding:"required"`
}

// ResultResponse describes a closed round.
type ResultResponse struct {
	Round        uint64   `json:"round"`
	RoundID      string   `json:"round_id"`
	Winner       string   `json:"winner"`
	WinnerIndex  int      `json:"winner_index"`
	Participants []string `json:"participants"`
	EntryFee     string   `json:"entry_fee"`
	ClosedAt     int64    `json:"closed_at"`
}

// Status handles GET /status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"open":         h.raffle.IsRoundOpen(),
		"round_id":     h.raffle.RoundID(),
		"rounds":       h.raffle.RoundCount(),
		"participants": len(h.raffle.Participants()),
		"entry_fee":    config.FormatAmount(h.raffle.EntryFee(), h.decimals),
		"authority":    h.encode(h.raffle.Authority()),
	})
}

// Enter handles POST /enter
func (h *Handler) Enter(c *gin.Context) {
	var req EnterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, err := raffle.ParseAddress(req.Address)
	if err != nil {
		h.fail(c, err)
		return
	}
	paid, err := config.ParseAmount(req.Amount, h.decimals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.raffle.Enter(c.Request.Context(), sender, paid); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"round_id":     h.raffle.RoundID(),
		"participants": len(h.raffle.Participants()),
	})
}

// Close handles POST /close
func (h *Handler) Close(c *gin.Context) {
	caller, ok := h.bindAuthority(c)
	if !ok {
		return
	}
	res, err := h.raffle.CloseAndSelectWinner(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.result(res))
}

// Open handles POST /open
func (h *Handler) Open(c *gin.Context) {
	caller, ok := h.bindAuthority(c)
	if !ok {
		return
	}
	if err := h.raffle.StartNextRound(c.Request.Context(), caller); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": h.raffle.RoundID()})
}

// Withdraw handles POST /withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, err := raffle.ParseAddress(req.Address)
	if err != nil {
		h.fail(c, err)
		return
	}
	amount, err := h.raffle.WithdrawRefund(c.Request.Context(), sender)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": config.FormatAmount(amount, h.decimals)})
}

// Result handles GET /results/:round. The literal "latest" selects the most
// recently closed round.
func (h *Handler) Result(c *gin.Context) {
	var (
		res *raffle.Result
		err error
	)
	if p := c.Param("round"); p == "latest" {
		res, err = h.raffle.LatestResult()
	} else {
		round, perr := strconv.ParseUint(p, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round index"})
			return
		}
		res, err = h.raffle.Result(round)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.result(res))
}

// Refund handles GET /refunds/:address
func (h *Handler) Refund(c *gin.Context) {
	addr, err := raffle.ParseAddress(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": c.Param("address"),
		"amount":  config.FormatAmount(h.raffle.RefundBalance(addr), h.decimals),
	})
}

// Participants handles GET /participants
func (h *Handler) Participants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"round_id":     h.raffle.RoundID(),
		"participants": h.encodeAll(h.raffle.Participants()),
	})
}

// Audit handles GET /audit. An unbalanced ledger is reported with 500 and
// the figures that failed to add up.
func (h *Handler) Audit(c *gin.Context) {
	a, err := h.raffle.Audit()
	body := gin.H{
		"received":    config.FormatAmount(a.Received, h.decimals),
		"held":        config.FormatAmount(a.Held, h.decimals),
		"outstanding": config.FormatAmount(a.Outstanding, h.decimals),
		"paid":        config.FormatAmount(a.Paid, h.decimals),
		"retained":    config.FormatAmount(a.Retained, h.decimals),
		"balanced":    err == nil,
	}
	if err != nil {
		log.WithError(err).Error("api: audit failed")
		body["error"] = err.Error()
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// Prizes handles GET /prizes/:address
func (h *Handler) Prizes(c *gin.Context) {
	if h.minter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "prizes are not enabled"})
		return
	}
	addr, err := raffle.ParseAddress(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.minter.BalanceOf(addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	supply, err := h.minter.TotalSupply()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": c.Param("address"), "tokens": n, "total_supply": supply})
}

func (h *Handler) bindAuthority(c *gin.Context) (raffle.Address, bool) {
	var req AuthorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return raffle.Address{}, false
	}
	caller, err := raffle.ParseAddress(req.Authority)
	if err != nil {
		h.fail(c, err)
		return raffle.Address{}, false
	}
	return caller, true
}

func (h *Handler) result(res *raffle.Result) ResultResponse {
	return FormatResult(res, h.decimals, h.mainnet)
}

func (h *Handler) encode(a raffle.Address) string {
	return EncodeAddress(a, h.mainnet)
}

func (h *Handler) encodeAll(addrs []raffle.Address) []string {
	return encodeAll(addrs, h.mainnet)
}

// FormatResult renders a round result with Base58 addresses and a decimal fee.
func FormatResult(res *raffle.Result, decimals int32, mainnet bool) ResultResponse {
	return ResultResponse{
		Round:        res.Round,
		RoundID:      res.RoundID,
		Winner:       EncodeAddress(res.Winner, mainnet),
		WinnerIndex:  res.WinnerIndex,
		Participants: encodeAll(res.Participants, mainnet),
		EntryFee:     config.FormatAmount(res.EntryFee, decimals),
		ClosedAt:     res.ClosedAt,
	}
}

// EncodeAddress renders a in Base58Check, falling back to hex.
func EncodeAddress(a raffle.Address, mainnet bool) string {
	s, err := a.Encode(mainnet)
	if err != nil {
		return a.String()
	}
	return s
}

func encodeAll(addrs []raffle.Address, mainnet bool) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = EncodeAddress(a, mainnet)
	}
	return out
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("api: request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps a raffle or prize error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, raffle.ErrInvalidAddress),
		errors.Is(err, raffle.ErrIncorrectFee),
		errors.Is(err, config.ErrInvalidAmount),
		errors.Is(err, config.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, raffle.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, raffle.ErrNoRefundAvailable),
		errors.Is(err, raffle.ErrInvalidRoundIndex),
		errors.Is(err, prize.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, raffle.ErrRoundClosed),
		errors.Is(err, raffle.ErrRoundAlreadyClosed),
		errors.Is(err, raffle.ErrRoundAlreadyOpen),
		errors.Is(err, raffle.ErrNoParticipants):
		return http.StatusConflict
	case errors.Is(err, raffle.ErrEntropyUnavailable),
		errors.Is(err, raffle.ErrInvalidEntropy),
		errors.Is(err, raffle.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
