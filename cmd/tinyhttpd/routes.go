package main

import (
	"github.com/searchktools/tinyhttp/core"
	"github.com/searchktools/tinyhttp/core/http"
	"github.com/searchktools/tinyhttp/core/middleware"
)

type echoRequest struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// registerRoutes installs the demo application. Scoped middleware applies to
// routes whose static prefix equals the scope, so "/admin/*" guards
// "/admin/:section".
func registerRoutes(e *core.Engine, withStatic bool) {
	e.Use(middleware.RequestID())
	e.UseFor("/api/users/*", middleware.RateLimiter(100))
	e.UseFor("/admin/*", middleware.RequireHeader("Authorization"))

	if withStatic {
		e.Static("/", "index.html")
	}
	e.GET("/", func(ctx http.Context) []byte {
		return ctx.Respond().Text("Welcome to tinyhttp").Build()
	})

	e.GET("/user/:id", func(ctx http.Context) []byte {
		return ctx.Respond().Text(ctx.Param("id")).Build()
	})

	api := e.Group("/api")
	api.GET("/status", func(ctx http.Context) []byte {
		return ctx.Respond().JSON(statusResponse{Status: "ok", Version: Version}).Build()
	})
	api.POST("/echo", func(ctx http.Context) []byte {
		var req echoRequest
		if !ctx.BindJSON(&req) {
			return ctx.Respond().Status(400).Text("expected a JSON body").Build()
		}
		return ctx.Respond().JSON(req).Build()
	})
	api.GET("/users/:id/posts/:post", func(ctx http.Context) []byte {
		return ctx.Respond().JSON(ctx.Params()).Build()
	})
	e.AddGroup(api)

	e.GET("/admin/:section", func(ctx http.Context) []byte {
		return ctx.Respond().Text(ctx.Param("section")).Build()
	})
}
