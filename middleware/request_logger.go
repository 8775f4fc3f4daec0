package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"videosync/config" // To use our configured logrus instance
)

// RequestLogger creates a new middleware handler for structured request logging with Logrus.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()

		// Set requestID in locals to be accessible by handlers if needed
		c.Locals("requestid", requestID)

		err := c.Next()

		latency := time.Since(start)
		statusCode := c.Response().StatusCode()

		logEntry := config.Log.WithFields(map[string]interface{}{
			"request_id":  requestID,
			"http_method": c.Method(),
			"uri":         c.OriginalURL(),
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.IP(),
			"user_agent":  string(c.Request().Header.UserAgent()),
		})

		if err != nil {
			// The error will be handled by the global error handler,
			// but we log it here with request context as well.
			logEntry.WithField("error", err.Error()).Error("Request processing failed")
		} else {
			if statusCode >= 500 {
				logEntry.Error("Request completed with server error")
			} else if statusCode >= 400 {
				logEntry.Warn("Request completed with client error")
			} else {
				logEntry.Info("Request completed successfully")
			}
		}

		return err
	}
}
