package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	productrepo "storefront/internal/repository/product"
)

const maxUploadBytes = 1 << 20

func (h *handlers) adminOrders(c *gin.Context) {
	feed, err := h.orders.AdminFeed(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (h *handlers) markOrdersSeen(c *gin.Context) {
	wm, err := h.orders.MarkSeen(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watermark": wm})
}

func (h *handlers) clearOrdersSeen(c *gin.Context) {
	h.orders.ClearWatermark(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *handlers) pickupNote(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	note, err := h.orders.PickupNote(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.String(http.StatusOK, note)
}

type priceRequest struct {
	Price int64 `json:"price"`
}

func (h *handlers) updatePrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "price must be a whole number")
		return
	}
	if err := h.products.UpdatePrice(c.Request.Context(), c.Param("name"), req.Price); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) updatePrices(c *gin.Context) {
	var req []productrepo.PriceUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "expected a list of {name, price}")
		return
	}
	if err := h.products.UpdatePrices(c.Request.Context(), req); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadProducts takes the pasted catalog text as the raw request body.
func (h *handlers) uploadProducts(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	records, err := h.products.Upload(c.Request.Context(), string(raw))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(records), "products": records})
}
