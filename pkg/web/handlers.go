// Package web provides the HTTP API the studio UI uses to drive documents,
// notifications, code validation and store publishing.
package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/store"
	"github.com/dukex/flowstudio/pkg/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	documentService *services.Documents
	registry        *documents.Registry
	notifications   *notification.Center
	adapter         *validation.Adapter
	sessions        *store.Sessions
	persistence     persistence.Persistence
	validator       *validator.Validate
}

func NewAPIHandlers(
	documentService *services.Documents,
	registry *documents.Registry,
	notifications *notification.Center,
	adapter *validation.Adapter,
	sessions *store.Sessions,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		documentService: documentService,
		registry:        registry,
		notifications:   notifications,
		adapter:         adapter,
		sessions:        sessions,
		persistence:     persistence,
		validator:       validator,
	}
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	d := router.Group("/documents")
	d.Get("/", h.ListDocuments)
	d.Post("/", h.CreateDocument)
	d.Post("/import", h.ImportDocument)
	d.Get("/active", h.GetActive)
	d.Put("/active", h.SetActive)
	d.Get("/:id", h.GetDocument)
	d.Patch("/:id", h.UpdateDocument)
	d.Delete("/:id", h.DeleteDocument)
	d.Post("/:id/save", h.SaveDocument)
	d.Get("/:id/export", h.ExportDocument)
	d.Post("/:id/nodes/:nodeId/fields/:field/code", h.SubmitCode)
	d.Post("/:id/nodes/:nodeId/fields/:field/file", h.AttachFile)

	p := d.Group("/:id/publish")
	p.Post("/", h.OpenPublishSession)
	p.Get("/", h.GetPublishSession)
	p.Delete("/", h.ClosePublishSession)
	p.Post("/attempt", h.Publish)
	p.Post("/confirm", h.ConfirmReplace)
	p.Post("/cancel", h.CancelPublish)

	n := router.Group("/notifications")
	n.Get("/", h.ListNotifications)
	n.Post("/", h.PushNotification)
	n.Delete("/", h.ClearNotifications)
	n.Put("/center", h.SetCenter)
	n.Delete("/:nid", h.RemoveNotification)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repository := fiber.Map{"status": "ok"}

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		repository = fiber.Map{"status": "error", "error": err.Error()}
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repository,
			"registry": fiber.Map{
				"loading":   h.registry.Loading(),
				"documents": h.registry.Len(),
			},
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListDocuments(c fiber.Ctx) error {
	if c.Query("view") == "all" {
		return c.JSON(h.registry.ListSorted(documents.SortKey(c.Query("sort", string(documents.SortInsertion)))))
	}

	opts, err := parseViewOptions(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.registry.View(*opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func parseViewOptions(c fiber.Ctx) (*documents.ViewOptions, error) {
	opts := &documents.ViewOptions{}

	if raw := c.Query("is_component"); raw != "" {
		isComponent, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}

		opts.IsComponent = isComponent
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}

		opts.PageIndex = page
	}

	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}

		opts.PageSize = size
	}

	return opts, nil
}

func (h *APIHandlers) CreateDocument(c fiber.Ctx) error {
	var req CreateDocumentRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	id, err := h.documentService.Create(c.Context(), req.IsComponent)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(CreateDocumentResponse{ID: id})
}

func (h *APIHandlers) ImportDocument(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "A file is required")
	}

	isComponent, _ := strconv.ParseBool(c.Query("is_component"))

	file, err := header.Open()
	if err != nil {
		return internalError(c, err)
	}
	defer file.Close()

	id, err := h.documentService.Import(c.Context(), header.Filename, header.Header.Get("Content-Type"), file, isComponent)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(CreateDocumentResponse{ID: id})
}

func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	doc, ok := h.registry.Get(c.Params("id"))
	if !ok {
		return notFound(c, "Document not found")
	}

	return c.JSON(doc)
}

func (h *APIHandlers) UpdateDocument(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated := h.registry.Update(c.Context(), id, func(doc *models.FlowDocument) {
		if req.Name != nil {
			doc.Name = *req.Name
		}

		if req.Description != nil {
			doc.Description = *req.Description
		}

		if req.Data != nil {
			doc.Data = req.Data
		}
	})
	if !updated {
		return notFound(c, "Document not found")
	}

	doc, _ := h.registry.Get(id)

	return c.JSON(doc)
}

func (h *APIHandlers) DeleteDocument(c fiber.Ctx) error {
	id := c.Params("id")

	if err := h.documentService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	h.sessions.Close(id)

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SaveDocument(c fiber.Ctx) error {
	doc, err := h.documentService.Save(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) GetActive(c fiber.Ctx) error {
	doc, ok := h.registry.Active()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) SetActive(c fiber.Ctx) error {
	var req SetActiveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	h.registry.SetActive(c.Context(), req.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ExportDocument(c fiber.Ctx) error {
	doc, ok := h.registry.Get(c.Params("id"))
	if !ok {
		return notFound(c, "Document not found")
	}

	var buf bytes.Buffer
	if err := store.Export(&buf, doc); err != nil {
		return internalError(c, err)
	}

	c.Attachment(doc.Name + ".json")

	return c.Send(buf.Bytes())
}

func fieldRef(c fiber.Ctx) models.FieldRef {
	return models.FieldRef{
		DocumentID: c.Params("id"),
		NodeID:     c.Params("nodeId"),
		Field:      c.Params("field"),
	}
}

func (h *APIHandlers) SubmitCode(c fiber.Ctx) error {
	var req SubmitCodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.adapter.Submit(c.Context(), fieldRef(c), req.Code)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(outcome)
}

func (h *APIHandlers) AttachFile(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "A file is required")
	}

	file, err := header.Open()
	if err != nil {
		return internalError(c, err)
	}
	defer file.Close()

	ref := fieldRef(c)
	if err := h.documentService.AttachFile(c.Context(), ref, header.Filename, file); err != nil {
		return handleServiceError(c, err)
	}

	doc, _ := h.registry.Get(ref.DocumentID)

	return c.JSON(doc)
}

func (h *APIHandlers) ListNotifications(c fiber.Ctx) error {
	return c.JSON(NotificationsResponse{
		Items:      h.notifications.Items(),
		Unread:     h.notifications.Unread(),
		CenterOpen: h.notifications.CenterOpen(),
	})
}

func (h *APIHandlers) PushNotification(c fiber.Ctx) error {
	var req PushNotificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.Unique {
		item, pushed := h.notifications.PushUnique(c.Context(), req.Kind, req.Title, req.List...)
		if !pushed {
			return c.JSON(item)
		}

		return c.Status(fiber.StatusCreated).JSON(item)
	}

	item := h.notifications.Push(c.Context(), req.Kind, req.Title, req.List...)

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *APIHandlers) RemoveNotification(c fiber.Ctx) error {
	h.notifications.Remove(c.Context(), c.Params("nid"))

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ClearNotifications(c fiber.Ctx) error {
	h.notifications.Clear(c.Context())

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SetCenter(c fiber.Ctx) error {
	var req CenterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	h.notifications.SetCenterOpen(req.Open)

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) OpenPublishSession(c fiber.Ctx) error {
	session, err := h.sessions.Open(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session.Snapshot())
}

func (h *APIHandlers) session(c fiber.Ctx) (*store.Session, error) {
	session, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return nil, notFound(c, "No publish session for this document")
	}

	return session, nil
}

func (h *APIHandlers) GetPublishSession(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	return c.JSON(session.Snapshot())
}

func (h *APIHandlers) ClosePublishSession(c fiber.Ctx) error {
	if !h.sessions.Close(c.Params("id")) {
		return notFound(c, "No publish session for this document")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Publish(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	var req PublishRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := session.Publish(c.Context(), store.PublishRequest{Tags: req.Tags, Public: req.Public})

	return h.attemptResponse(c, session, state, err)
}

func (h *APIHandlers) ConfirmReplace(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	state, err := session.ConfirmReplace(c.Context())

	return h.attemptResponse(c, session, state, err)
}

func (h *APIHandlers) CancelPublish(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	if err := session.Cancel(); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(session.Snapshot())
}

// attemptResponse reports a finished attempt. Submission failures were already
// surfaced as notifications, so a Failed attempt is a normal response.
func (h *APIHandlers) attemptResponse(c fiber.Ctx, session *store.Session, state store.State, err error) error {
	switch {
	case err == nil, state == store.StateFailed:
		return c.JSON(session.Snapshot())
	case errors.Is(err, store.ErrAttemptInProgress),
		errors.Is(err, store.ErrNotAwaitingConfirmation),
		errors.Is(err, store.ErrUnknownDocument):
		return handleServiceError(c, err)
	case state == store.StateIdle:
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
