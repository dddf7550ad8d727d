package controller

import (
	"bufio"
	"context"

	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/pkg/serverutils"
	"doc-assistant-be/internal/service"
	"doc-assistant-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	SendStream(ctx *fiber.Ctx) error
	Conversations(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
	ForgetMemories(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	log         logger.ILogger
}

func NewChatController(chatService service.IChatService, lg logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		log:         lg,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Send)
	h.Post("stream", c.SendStream)
	h.Get("conversations", c.Conversations)
	h.Get("conversations/:id/history", c.History)
	h.Delete("conversations/:id", c.DeleteConversation)
	h.Delete("memories", c.ForgetMemories)
	h.Post("feedback", c.Feedback)

	h.Use("ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("ws", websocket.New(c.handleWS))
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	var req dto.SendChatRequest
	if err := serverutils.ValidateRequest(ctx, &req); err != nil {
		return nil
	}

	res, err := c.chatService.SendChat(ctx.Context(), userId, &req)
	if err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Answer generated", res)
}

// SendStream answers over server-sent events. The fasthttp request context
// doubles as the cancellation signal: it is done when the client disconnects,
// which stops generation and skips persistence.
func (c *chatController) SendStream(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	var req dto.SendChatRequest
	if err := serverutils.ValidateRequest(ctx, &req); err != nil {
		return nil
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	reqCtx := ctx.Context()
	chatService := c.chatService
	lg := c.log

	reqCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		emit := func(ev stream.Event) error {
			return stream.WriteSSE(w, ev)
		}
		if err := chatService.StreamChat(reqCtx, userId, &req, emit); err != nil {
			lg.Warn("chat", "stream ended with error", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
	}))
	return nil
}

// handleWS answers over a websocket: one request message in, a stream of
// events out. The read loop only exists to detect the client going away.
func (c *chatController) handleWS(conn *websocket.Conn) {
	defer conn.Close()

	raw, _ := conn.Locals("user_id").(string)
	userId, err := uuid.Parse(raw)
	if err != nil {
		_ = conn.WriteJSON(stream.Error(string(service.ErrCodeInvalidInput), "missing or malformed user id in token"))
		return
	}

	var req dto.SendChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(stream.Error(string(service.ErrCodeInvalidInput), "malformed chat request"))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	emit := func(ev stream.Event) error {
		return conn.WriteJSON(ev)
	}
	if err := c.chatService.StreamChat(ctx, userId, &req, emit); err != nil {
		c.log.Warn("chat", "websocket stream ended with error", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}
}

func (c *chatController) Conversations(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	res, err := c.chatService.GetConversations(ctx.Context(), userId)
	if err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Conversations retrieved", res)
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid conversation id", nil)
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, conversationId)
	if err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "History retrieved", res)
}

func (c *chatController) DeleteConversation(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid conversation id", nil)
	}

	if err := c.chatService.DeleteConversation(ctx.Context(), userId, conversationId); err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Conversation deleted", nil)
}

func (c *chatController) ForgetMemories(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	if err := c.chatService.ForgetMemories(ctx.Context(), userId); err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Stored memories cleared", nil)
}

func (c *chatController) Feedback(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	var req dto.SendFeedbackRequest
	if err := serverutils.ValidateRequest(ctx, &req); err != nil {
		return nil
	}

	if err := c.chatService.SendFeedback(ctx.Context(), userId, &req); err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Feedback recorded", nil)
}
