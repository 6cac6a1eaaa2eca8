package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/mapcrew/backend/api/handler"
)

type Handlers struct {
	Review *apiHandler.ReviewHandler
	Bundle *apiHandler.BundleHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Review queue
	r.GET("/api/v1/review/next", authMiddleware(handlers.Review.NextTask))
	r.GET("/api/v1/review/requested", authMiddleware(handlers.Review.ListRequested))
	r.GET("/api/v1/review/reviewed", authMiddleware(handlers.Review.ListReviewed))
	r.GET("/api/v1/review/metrics", authMiddleware(handlers.Review.Metrics))

	// Per-task review operations
	r.GET("/api/v1/tasks/{id}/review", authMiddleware(handlers.Review.GetTask))
	r.POST("/api/v1/tasks/{id}/review/start", authMiddleware(handlers.Review.StartReview))
	r.DELETE("/api/v1/tasks/{id}/review/claim", authMiddleware(handlers.Review.CancelReview))
	r.PUT("/api/v1/tasks/{id}/review/status", authMiddleware(handlers.Review.SetStatus))
	r.GET("/api/v1/tasks/{id}/review/history", authMiddleware(handlers.Review.TaskHistory))

	// Bundles
	r.POST("/api/v1/bundles", authMiddleware(handlers.Bundle.Create))
	r.GET("/api/v1/bundles/{id}", authMiddleware(handlers.Bundle.Get))
	r.POST("/api/v1/bundles/{id}/unbundle", authMiddleware(handlers.Bundle.Unbundle))
	r.DELETE("/api/v1/bundles/{id}", authMiddleware(handlers.Bundle.Delete))

	return r
}
