package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/payment"
	ordersvc "storefront/internal/service/order"
)

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		c.JSON(http.StatusOK, gin.H{"products": products})
		return
	}
	filtered := products[:0:0]
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"products": filtered})
}

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type paymentConfigResponse struct {
	Configured     bool                    `json:"configured"`
	MerchantName   string                  `json:"merchantName"`
	DefaultPayeeID string                  `json:"defaultPayeeId,omitempty"`
	Payees         []payment.PayeeEndpoint `json:"payees"`
}

func (h *handlers) paymentConfig(c *gin.Context) {
	dir := h.orders.Directory()
	resp := paymentConfigResponse{
		Configured:   dir.Configured(),
		MerchantName: dir.MerchantName,
		Payees:       dir.Payees,
	}
	if resp.Payees == nil {
		resp.Payees = []payment.PayeeEndpoint{}
	}
	if p, ok := dir.Default(); ok {
		resp.DefaultPayeeID = p.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) paymentIntent(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		badRequest(c, "amount must be a whole number")
		return
	}
	intent, err := h.orders.PaymentIntent(c.Query("payee"), amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

func (h *handlers) paymentQR(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		badRequest(c, "amount must be a whole number")
		return
	}
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			badRequest(c, "size must be between 128 and 1024")
			return
		}
		size = n
	}
	intent, err := h.orders.PaymentIntent(c.Query("payee"), amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	png, err := payment.QRCodePNG(intent.URI, size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	view, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) checkout(c *gin.Context) {
	var in ordersvc.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid checkout body")
		return
	}
	res, err := h.orders.Checkout(c.Request.Context(), sessionID(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
