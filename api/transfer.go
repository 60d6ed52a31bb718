package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/corzoapp/transfer_service/chain"
	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
	"github.com/corzoapp/transfer_service/relayer"
	"github.com/corzoapp/transfer_service/request"
	"github.com/corzoapp/transfer_service/service"
	"github.com/corzoapp/transfer_service/utils"
)

type TransferHandler struct {
	transfers *service.TransferService
	status    *service.StatusService
	eth       *chain.ETHChain
	log       *slog.Logger
}

func NewTransferHandler(transfers *service.TransferService, status *service.StatusService, eth *chain.ETHChain, log *slog.Logger) *TransferHandler {
	return &TransferHandler{transfers: transfers, status: status, eth: eth, log: log}
}

// Transfer handles POST /api/usdt/transfer: resolve, build, sign, and
// submit a gasless transfer; the response is the relayer's acknowledgement,
// not on-chain confirmation.
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req request.TransferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": wrapErrors.CodeValidation})
		return
	}

	res, err := h.transfers.Send(c.Request.Context(), req.UserID, req.Recipient, req.Amount, clientIP(c))
	if err != nil {
		writeError(c, err)
		return
	}

	enc := relayer.EncodeAuthorization(res.Signed)
	c.JSON(http.StatusOK, gin.H{
		"authorizationId": res.AuthorizationID,
		"validated":       true,
		"authorization":   enc.Authorization,
		"signature":       enc.Signature,
		"relayer_response": gin.H{
			"status_code": res.Ack.StatusCode,
			"body":        res.Ack.Body,
		},
	})
}

// Status handles GET /api/usdt/status?authorizationId=. The response
// status is the derived outcome: confirmed once the receipt says success,
// failed on rejection or revert, pending otherwise.
func (h *TransferHandler) Status(c *gin.Context) {
	authorizationID := strings.TrimSpace(c.Query("authorizationId"))
	if authorizationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorizationId required", "code": wrapErrors.CodeValidation})
		return
	}

	rec, err := h.status.Poll(c.Request.Context(), authorizationID, clientIP(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out := gin.H{
		"authorizationId": rec.AuthorizationID,
		"status":          outcomeLabel(rec),
	}
	if rec.TxHash != "" {
		out["txHash"] = rec.TxHash
	}
	if rec.Reason != "" {
		out["error"] = rec.Reason
	}
	if rec.Receipt != nil {
		out["blockNumber"] = rec.Receipt.BlockNumber
		out["gasUsed"] = rec.Receipt.GasUsed
		if rec.Receipt.ChainStatus == entity.ChainRevert {
			out["error"] = "transaction reverted on chain"
		}
	}
	c.JSON(http.StatusOK, out)
}

// CreateWallet handles POST /api/wallet; the registration flow calls it
// once per user.
func (h *TransferHandler) CreateWallet(c *gin.Context) {
	var req request.CreateWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": wrapErrors.CodeValidation})
		return
	}

	wallet, err := h.transfers.CreateWallet(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": wallet.Address})
}

// Wallet handles GET /api/wallet?userId=, returning the address and,
// best-effort, the on-chain token balance.
func (h *TransferHandler) Wallet(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required", "code": wrapErrors.CodeValidation})
		return
	}

	wallet, err := h.transfers.Wallet(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := gin.H{"address": wallet.Address}
	if balance, err := h.eth.TokenBalance(c.Request.Context(), wallet.Address); err != nil {
		h.log.Warn("token balance lookup failed", "address", wallet.Address, "err", err)
	} else {
		out["balance"] = utils.FormatUnits(balance, utils.TokenDecimals)
	}
	c.JSON(http.StatusOK, out)
}

// RecipientExists handles GET /api/users/exists?query=, the send form's
// recipient pre-check.
func (h *TransferHandler) RecipientExists(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	exists, err := h.transfers.RecipientExists(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *TransferHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// outcomeLabel maps the derived submission outcome onto the status
// strings the mobile client polls for.
func outcomeLabel(rec *entity.SubmissionRecord) string {
	switch rec.Outcome() {
	case entity.OutcomeSuccess:
		return "confirmed"
	case entity.OutcomeRejected, entity.OutcomeRevert:
		return "failed"
	default:
		return "pending"
	}
}
