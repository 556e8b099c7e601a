// Package web provides HTTP handlers and REST API endpoints for flow
// management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/registry"
	"github.com/maqel/zapflow/pkg/services"
)

type APIHandlers struct {
	flowService    *services.Flow
	graphService   *services.Graph
	contactService *services.Contact
	validator      *validator.Validate
	registry       *registry.Registry
}

func NewAPIHandlers(
	flowService *services.Flow,
	graphService *services.Graph,
	contactService *services.Contact,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		flowService:    flowService,
		graphService:   graphService,
		contactService: contactService,
		validator:      validator,
		registry:       registry,
	}
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	req, err := h.parseListFlowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.flowService.ListFlows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows":         result.Flows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

func (h *APIHandlers) parseListFlowsRequest(c fiber.Ctx) (*services.ListFlowsRequest, error) {
	req := &services.ListFlowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.FlowStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowService.Create(c.Context(), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) RenameFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req RenameFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	renamed, err := h.flowService.Rename(c.Context(), id, req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(renamed)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.flowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateFlow runs the graph validator and reports findings without
// changing anything.
func (h *APIHandlers) ValidateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	result, err := h.flowService.Validate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid":    result.Valid(),
		"findings": result.Findings,
	})
}

// ActivateFlow switches a flow to active when validation passes; otherwise
// the blocking findings come back with a conflict status.
func (h *APIHandlers) ActivateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, result, err := h.flowService.Activate(c.Context(), id)
	if err != nil {
		if result != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":    "flow failed validation and cannot be activated",
				"findings": result.Findings,
			})
		}

		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registry.ValidateConfig(models.NodeKind(req.Kind), req.Config); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.graphService.AddNode(c.Context(), id,
		models.NodeKind(req.Kind), req.Position, req.Config)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) UpdateNodeConfig(c fiber.Ctx) error {
	id, nodeID := c.Params("id"), c.Params("nodeId")
	if id == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	var req UpdateNodeConfigRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.graphService.UpdateNodeConfig(c.Context(), id, nodeID, req.Config)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) ChangeNodeKind(c fiber.Ctx) error {
	id, nodeID := c.Params("id"), c.Params("nodeId")
	if id == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	var req ChangeNodeKindRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registry.ValidateConfig(models.NodeKind(req.Kind), req.Config); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.graphService.ChangeNodeKind(c.Context(), id, nodeID,
		models.NodeKind(req.Kind), req.Config)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) MoveNode(c fiber.Ctx) error {
	id, nodeID := c.Params("id"), c.Params("nodeId")
	if id == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	var req MoveNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.graphService.MoveNode(c.Context(), id, nodeID, req.Position); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	id, nodeID := c.Params("id"), c.Params("nodeId")
	if id == "" || nodeID == "" {
		return badRequest(c, "Flow ID and node ID are required")
	}

	if err := h.graphService.RemoveNode(c.Context(), id, nodeID); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateEdge(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req CreateEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := h.graphService.AddEdge(c.Context(), id, req.Source, req.Target, req.SourceOutputID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	id, edgeID := c.Params("id"), c.Params("edgeId")
	if id == "" || edgeID == "" {
		return badRequest(c, "Flow ID and edge ID are required")
	}

	if err := h.graphService.RemoveEdge(c.Context(), id, edgeID); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListContacts(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	activations, err := h.contactService.List(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"contacts":    activations,
		"total_count": len(activations),
	})
}

func (h *APIHandlers) AdmitContact(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req AdmitContactRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	activation, admitted, err := h.contactService.Admit(c.Context(), id, req.Contact, req.EntryNodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	status := fiber.StatusOK
	if admitted {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(activation)
}

func (h *APIHandlers) AdvanceContact(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req AdvanceContactRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	activation, err := h.contactService.Advance(c.Context(), id, req.Contact, req.NodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activation)
}

func (h *APIHandlers) ClearContacts(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.contactService.ClearAll(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetNodeKinds returns the closed catalog of node kinds with their config
// schemas.
func (h *APIHandlers) GetNodeKinds(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"kinds": h.registry.Kinds(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Zapflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Zapflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
