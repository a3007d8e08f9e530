package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/middleware"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/utils"
	"go.uber.org/zap"
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Query        string     `json:"query" validate:"required"`
	QueryType    string     `json:"query_type" validate:"required,oneof=full_book selection_based"`
	SelectedText string     `json:"selected_text,omitempty"`
	SessionID    *uuid.UUID `json:"session_id,omitempty"`
}

// ToQuery converts the request into a pipeline query
func (r ChatRequest) ToQuery() models.Query {
	return models.Query{
		Text:      r.Query,
		Mode:      models.QueryMode(r.QueryType),
		Selection: r.SelectedText,
		SessionID: r.SessionID,
	}
}

// QueryProcessor runs questions through the answering pipeline
type QueryProcessor interface {
	// ValidateQuery rejects caller input errors before a run starts
	ValidateQuery(q models.Query) error

	// Process runs a query to a terminal state
	Process(ctx context.Context, q models.Query) models.Response
}

// ChatHandler handles question answering requests
type ChatHandler struct {
	processor QueryProcessor
	logger    *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(processor QueryProcessor, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleChat handles POST /api/chat. Input errors are answered with 400;
// every pipeline outcome, including refusals and errors, is a 200 carrying
// the typed status.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Debug("invalid chat request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleValidationError(w, utils.NewFieldError("body", "request body must be valid JSON"), h.logger)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	q := req.ToQuery()
	if err := h.processor.ValidateQuery(q); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	resp := h.processor.Process(ctx, q)

	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write chat response",
			zap.String("query_id", resp.QueryID.String()),
			zap.Error(err))
	}
}
