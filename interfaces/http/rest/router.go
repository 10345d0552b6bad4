// Package rest exposes the catalog over HTTP.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/interfaces/http/rest/handlers"
	"catalog-backend/interfaces/http/rest/middleware"
	apperrors "catalog-backend/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	products      ports.ProductRepository
	plans         ports.PlanRepository
	resources     ports.ResourceRepository
	subscriptions ports.SubscriptionRepository
	errorHandler  *apperrors.ErrorHandler
	logger        *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	products ports.ProductRepository,
	plans ports.PlanRepository,
	resources ports.ResourceRepository,
	subscriptions ports.SubscriptionRepository,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		products:      products,
		plans:         plans,
		resources:     resources,
		subscriptions: subscriptions,
		errorHandler:  errorHandler,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			productHandler := handlers.NewProductHandler(rt.products, rt.errorHandler, rt.logger)
			r.Post("/", productHandler.CreateProduct)
			r.Get("/", productHandler.ListProducts)
			r.Get("/{productID}", productHandler.GetProduct)
			r.Patch("/{productID}", productHandler.UpdateProduct)
			r.Delete("/{productID}", productHandler.DeleteProduct)
		})

		r.Route("/plans", func(r chi.Router) {
			planHandler := handlers.NewPlanHandler(rt.plans, rt.errorHandler, rt.logger)
			r.Post("/", planHandler.CreatePlan)
			r.Get("/", planHandler.ListPlans)
			r.Get("/{planID}", planHandler.GetPlan)
			r.Patch("/{planID}", planHandler.UpdatePlan)
			r.Delete("/{planID}", planHandler.DeletePlan)
		})

		r.Route("/resources", func(r chi.Router) {
			resourceHandler := handlers.NewResourceHandler(rt.resources, rt.errorHandler, rt.logger)
			r.Post("/", resourceHandler.CreateResource)
			r.Get("/", resourceHandler.ListResources)
			r.Get("/{resourceID}", resourceHandler.GetResource)
			r.Patch("/{resourceID}", resourceHandler.UpdateResource)
			r.Delete("/{resourceID}", resourceHandler.DeleteResource)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			subscriptionHandler := handlers.NewSubscriptionHandler(rt.subscriptions, rt.errorHandler, rt.logger)
			r.Put("/", subscriptionHandler.PutSubscription)
			r.Get("/accounts/{accountID}", subscriptionHandler.ListByAccount)
			r.Get("/plans/{planID}", subscriptionHandler.ListByPlan)
			r.Get("/{accountID}/{planID}", subscriptionHandler.GetSubscription)
			r.Delete("/{accountID}/{planID}", subscriptionHandler.DeleteSubscription)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
