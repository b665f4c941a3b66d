package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pulsewire.app/ingest/internal/http/dto"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/store"
)

type AccountHandler struct {
	accounts store.AccountStore
}

func NewAccountHandler(accounts store.AccountStore) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	activeOnly := c.Query("active") == "true"
	accounts, err := h.accounts.List(ctx, activeOnly)
	if err != nil {
		slog.ErrorContext(ctx, "listing accounts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *AccountHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account := &model.TrackedAccount{
		Handle:      strings.TrimPrefix(strings.TrimSpace(req.Handle), "@"),
		DisplayName: req.DisplayName,
		Active:      true,
	}
	if account.Handle == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle is required"})
		return
	}

	if err := h.accounts.Create(ctx, account); err != nil {
		slog.ErrorContext(ctx, "creating account failed", "error", err, "handle", account.Handle)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	handle := c.Param("handle")
	if err := h.accounts.Delete(ctx, handle); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		slog.ErrorContext(ctx, "deleting account failed", "error", err, "handle", handle)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete account"})
		return
	}

	c.Status(http.StatusNoContent)
}
