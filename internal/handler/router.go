package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Ingest *IngestHandler
	Chunk  *ChunkHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/pubsub_to_store/:vector_name", deps.Ingest.Push)
	api.POST("/pubsub_to_store_batch/:vector_name", deps.Ingest.PushBatch)
	api.POST("/pubsub_chunk_to_store/:vector_name", deps.Chunk.Push)

	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
