package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger := GetLogger()
				if l, ok := c.Get(LoggerKey); ok {
					if scoped, ok := l.(*zap.Logger); ok {
						logger = scoped
					}
				}
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Erro interno do servidor",
					Details: "Ocorreu um erro inesperado. Tente novamente mais tarde.",
				})
			}
		}()
		c.Next()
	}
}
