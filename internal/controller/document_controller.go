package controller

import (
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/serverutils"
	"doc-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Register)
	h.Get("", c.List)
	h.Get("stats", c.Stats)
	h.Delete(":id", c.Delete)
}

func (c *documentController) Register(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	var req dto.RegisterDocumentRequest
	if err := serverutils.ValidateRequest(ctx, &req); err != nil {
		return nil
	}

	res, err := c.documentService.Register(ctx.Context(), userId, &req)
	if err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusCreated, "Document registered", res)
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	res, err := c.documentService.GetAll(ctx.Context(), userId)
	if err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Documents retrieved", res)
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	documentId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid document id", nil)
	}

	if err := c.documentService.Delete(ctx.Context(), userId, documentId); err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Document deleted", nil)
}

func (c *documentController) Stats(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, err.Error(), nil)
	}

	res, err := c.documentService.GetWorkspaceStats(ctx.Context(), userId)
	if err != nil {
		return serverutils.ErrorResponse(ctx, service.HTTPStatus(err), string(service.CodeOf(err)), nil)
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, "Workspace stats retrieved", res)
}
