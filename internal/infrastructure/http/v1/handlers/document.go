package handlers

import (
	"github.com/gin-gonic/gin"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/domain"
	"stockd/internal/domain/approval"
	"stockd/internal/domain/audit"
	"stockd/internal/domain/documents"
	"stockd/internal/infrastructure/http/v1/dto"
)

// DocumentHandler serves inventory document endpoints: the read surface
// plus the approve and cancel state transitions.
type DocumentHandler struct {
	*BaseHandler
	docs   *documents.Service
	engine *approval.Engine
	audit  *audit.Service
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(base *BaseHandler, docs *documents.Service, engine *approval.Engine, auditSvc *audit.Service) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler: base,
		docs:        docs,
		engine:      engine,
		audit:       auditSvc,
	}
}

// List returns documents matching the filter.
func (h *DocumentHandler) List(c *gin.Context) {
	var req dto.ListDocumentsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter := documents.ListFilter{
		ListFilter: domain.DefaultListFilter(),
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
	}
	filter.Search = req.Search
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.Limit > 0 {
		filter.Limit = req.Limit
	}
	filter.Offset = req.Offset

	if req.Type != "" {
		docType := documents.DocumentType(req.Type)
		if !docType.IsValid() {
			h.Error(c, apperror.NewValidation("invalid document type").WithDetail("value", req.Type))
			return
		}
		filter.Type = &docType
	}
	if req.WarehouseID != "" {
		warehouseID, err := id.Parse(req.WarehouseID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid warehouse id").WithDetail("value", req.WarehouseID))
			return
		}
		filter.WarehouseID = &warehouseID
	}
	if req.Status != "" {
		filter.Status = &req.Status
	}

	result, err := h.docs.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DocumentResponse, 0, len(result.Items))
	for _, doc := range result.Items {
		items = append(items, dto.FromDocument(doc))
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get returns one document with lines.
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.docs.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// GetByNumber returns one document with lines by its unique number.
func (h *DocumentHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.Error(c, apperror.NewValidation("number is required"))
		return
	}

	doc, err := h.docs.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Approve runs the approval state transition and returns the updated
// header.
func (h *DocumentHandler) Approve(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.engine.Approve(c.Request.Context(), docID, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Cancel moves a draft document to its cancelled terminal status.
func (h *DocumentHandler) Cancel(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.engine.Cancel(c.Request.Context(), docID, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Movements returns the document's stock movement audit trail.
func (h *DocumentHandler) Movements(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	movements, err := h.audit.MovementsByDocument(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, dto.FromMovement(m))
	}
	h.OK(c, items)
}

// Activity returns the document's activity audit trail.
func (h *DocumentHandler) Activity(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	entries, err := h.audit.ActivityByDocument(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, a := range entries {
		items = append(items, dto.FromActivity(a))
	}
	h.OK(c, items)
}

func (h *DocumentHandler) parseID(c *gin.Context) (id.ID, bool) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document id").WithDetail("value", c.Param("id")))
		return id.Nil(), false
	}
	return docID, true
}
