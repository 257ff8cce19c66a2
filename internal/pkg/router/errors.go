package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/glowfit/glowfit/app/controllers"
	"github.com/glowfit/glowfit/internal/pkg/logger"
)

// ErrorHandler turns errors and recovered panics into the JSON error shape.
// Details of server-side failures stay in the log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	controllers.SetCORSHeaders(c)

	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		logger.L().Error("unhandled request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
