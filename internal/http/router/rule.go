package router

import (
	"github.com/gin-gonic/gin"

	"wrenchio.app/dispatch/internal/http/handler"
)

func RuleRouter(rg *gin.RouterGroup, h *handler.RuleHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id/active", h.SetActive)
	rg.DELETE("/:id", h.Delete)
}
