package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/ingest"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/pkg/response"
)

const unknownSource = "Could not find a source"

type IngestHandler struct {
	dispatcher *ingest.Dispatcher
}

func NewIngestHandler(dispatcher *ingest.Dispatcher) *IngestHandler {
	return &IngestHandler{dispatcher: dispatcher}
}

func (h *IngestHandler) Push(c *gin.Context) {
	h.handle(c, false)
}

func (h *IngestHandler) PushBatch(c *gin.Context) {
	h.handle(c, true)
}

func (h *IngestHandler) handle(c *gin.Context, batch bool) {
	namespace := c.Param("vector_name")

	var req model.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("bad push envelope",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		response.Error(c, err.Error())
		return
	}
	if batch {
		if req.Message.Attributes == nil {
			req.Message.Attributes = map[string]string{}
		}
		req.Message.Attributes["processing_mode"] = "batch"
	}

	outcome, err := h.dispatcher.Handle(c.Request.Context(), namespace, req)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("ingestion failed",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		response.Error(c, err.Error())
		return
	}
	writeOutcome(c, outcome)
}

func writeOutcome(c *gin.Context, outcome ingest.Outcome) {
	switch outcome.Status {
	case ingest.StatusNoAction:
		response.NoAction(c, "No action required")
	case ingest.StatusSoftFail:
		response.NoAction(c, outcome.Reason)
	default:
		if outcome.Reason != "" {
			response.SuccessMessage(c, outcome.Reason)
			return
		}
		source := outcome.Source
		if source == "" {
			source = unknownSource
		}
		response.Success(c, source)
	}
}
