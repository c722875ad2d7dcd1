package router

import (
	"github.com/gin-gonic/gin"

	"wrenchio.app/dispatch/internal/http/handler"
)

func SubscriptionRouter(rg *gin.RouterGroup, h *handler.SubscriptionHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id/active", h.SetActive)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/deliveries", h.Deliveries)
	rg.POST("/:id/test", h.TestDeliver)
}
