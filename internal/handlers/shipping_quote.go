package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Flat per-region fees in integer currency units. Orders at or above the
// free-shipping threshold ship free.
var shippingZoneFees = map[string]int64{
	"inner_city": 15000,
	"suburban":   25000,
	"regional":   35000,
	"remote":     55000,
}

const freeShippingThreshold int64 = 500000

var errUnknownRegion = errors.New("unknown shipping region")

func quoteShippingFee(region string, subtotal int64) (int64, error) {
	fee, ok := shippingZoneFees[strings.ToLower(strings.TrimSpace(region))]
	if !ok {
		return 0, errUnknownRegion
	}
	if subtotal >= freeShippingThreshold {
		return 0, nil
	}
	return fee, nil
}

// GET /shipping/quote?region=...&subtotal=...
func GetShippingQuote() gin.HandlerFunc {
	return func(c *gin.Context) {
		subtotal, err := strconv.ParseInt(c.Query("subtotal"), 10, 64)
		if err != nil || subtotal < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subtotal"})
			return
		}

		fee, err := quoteShippingFee(c.Query("region"), subtotal)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"fee": fee, "free": fee == 0})
	}
}
