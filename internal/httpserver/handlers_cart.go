package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

type cartResponse struct {
	SessionID string            `json:"sessionId"`
	Lines     []domain.CartLine `json:"lines"`
	Count     int               `json:"count"`
}

func newCartResponse(session string, lines []domain.CartLine) cartResponse {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return cartResponse{SessionID: session, Lines: lines, Count: count}
}

func (h *handlers) getCart(c *gin.Context) {
	lines, err := h.carts.Lines(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(sessionID(c), lines))
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), sessionID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) pricedCart(c *gin.Context) {
	lines, rec, err := h.carts.Priced(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": newCartResponse(sessionID(c), lines), "reconciliation": rec})
}

type addItemRequest struct {
	ProductName string `json:"productName" binding:"required"`
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productName required")
		return
	}
	lines, err := h.carts.Add(c.Request.Context(), sessionID(c), req.ProductName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(sessionID(c), lines))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid quantity")
		return
	}
	lines, err := h.carts.UpdateQuantity(c.Request.Context(), sessionID(c), c.Param("name"), req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(sessionID(c), lines))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	lines, err := h.carts.Remove(c.Request.Context(), sessionID(c), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(sessionID(c), lines))
}
