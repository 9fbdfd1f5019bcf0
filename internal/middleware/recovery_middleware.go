package middleware

import (
	"runtime/debug"

	"yatube/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinZapRecovery logs a panic with its stack and hands the request to onPanic,
// which renders the error page.
func GinZapRecovery(onPanic gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.L.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", GetRequestID(c)),
					zap.String("stack", string(debug.Stack())),
				)
				if !c.Writer.Written() {
					onPanic(c)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
