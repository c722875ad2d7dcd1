package router

import (
	"github.com/gin-gonic/gin"

	"wrenchio.app/dispatch/internal/dispatch"
	"wrenchio.app/dispatch/internal/http/handler"
	"wrenchio.app/dispatch/internal/http/middleware"
	"wrenchio.app/dispatch/internal/service"
	"wrenchio.app/dispatch/internal/webhook"
)

type RouterConfig struct {
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, services *service.Services, coordinator *dispatch.Coordinator, tracker *webhook.Tracker, dispatcher *webhook.Dispatcher, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		eventHandler := handler.NewEventHandler(coordinator)
		EventRouter(v1.Group("/events"), eventHandler)

		admin := v1.Group("")
		admin.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
		{
			ruleHandler := handler.NewRuleHandler(services.Rules())
			RuleRouter(admin.Group("/rules"), ruleHandler)

			subHandler := handler.NewSubscriptionHandler(services.Subscriptions(), tracker, dispatcher)
			SubscriptionRouter(admin.Group("/subscriptions"), subHandler)
		}
	}
}
