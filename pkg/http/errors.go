package http

import (
	"errors"
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/iot"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, iot.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, iot.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, iot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, iot.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": message}. Store failures are logged and answered with a
// generic message.
func respondError(c *gin.Context, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(code, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// bindAndValidate decodes the JSON body into dst and validates the decoded struct. Unlike
// parsing the request with the schema, an explicit zero in a pointer member stays distinct
// from a missing key.
func bindAndValidate(c *gin.Context, schema *z.StructSchema, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if issues := schema.Validate(dst); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": issues})
		return false
	}
	return true
}
