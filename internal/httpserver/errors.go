package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/importer"
	"storefront/internal/payment"
	ordersvc "storefront/internal/service/order"
)

// writeError maps service errors onto status codes. Unclassified errors
// are logged and reported without detail.
func (h *handlers) writeError(c *gin.Context, err error) {
	var (
		validation *ordersvc.ValidationError
		missing    *ordersvc.MissingProductsError
		parseErr   *importer.ParseError
		fieldErr   *payment.FieldError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validation.Fields})
	case errors.As(err, &missing):
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrMissingProducts.Error(), "reconciliation": missing.Reconciliation})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
	case errors.Is(err, domain.ErrPaymentUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrPaymentUnavailable.Error()})
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldErr.Error(), "field": fieldErr.Field})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrMissingProducts):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrDuplicateProduct),
		errors.Is(err, importer.ErrEmptyInput),
		errors.Is(err, importer.ErrNothingToUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
