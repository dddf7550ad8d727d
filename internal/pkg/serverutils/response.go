package serverutils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"doc-assistant-be/internal/pkg/logger"
)

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(ctx *fiber.Ctx, code int, message string, data interface{}) error {
	return ctx.Status(code).JSON(Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(ctx *fiber.Ctx, code int, message string, data interface{}) error {
	return ctx.Status(code).JSON(Response{
		Success: false,
		Code:    code,
		Message: message,
		Data:    data,
	})
}

var validate = validator.New()

// ValidateRequest parses the JSON body into out and runs struct validation.
// It writes the 400 response itself; callers should return on error.
func ValidateRequest(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		_ = ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid request body", nil)
		return err
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		_ = ErrorResponse(ctx, fiber.StatusBadRequest, "Validation failed", details)
		return err
	}
	return nil
}

// UserIDFromLocals reads the user id the JWT middleware stored.
func UserIDFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals("user_id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("missing or malformed user id in token")
	}
	return id, nil
}

// ErrorHandlerMiddleware is the Fiber app-level error handler: it logs the
// failure and hides internals behind the standard envelope.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		if code >= 500 {
			log.Error("http", "request failed", map[string]interface{}{
				"path":   ctx.Path(),
				"method": ctx.Method(),
				"error":  err.Error(),
			})
		}

		return ErrorResponse(ctx, code, message, nil)
	}
}
