package router

import (
	"github.com/gin-gonic/gin"

	"wrenchio.app/dispatch/internal/http/handler"
)

func EventRouter(rg *gin.RouterGroup, h *handler.EventHandler) {
	rg.POST("", h.Ingest)
}
