package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/ingest"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/pkg/response"
)

type ChunkHandler struct {
	consumer *ingest.Consumer
}

func NewChunkHandler(consumer *ingest.Consumer) *ChunkHandler {
	return &ChunkHandler{consumer: consumer}
}

func (h *ChunkHandler) Push(c *gin.Context) {
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

	outcome := h.consumer.Handle(c.Request.Context(), namespace, req)
	writeOutcome(c, outcome)
}
