package httpserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter wires routes for the API.
func buildRouter(db *pgxpool.Pool, deps Deps) *gin.Engine {
	if !deps.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), metricsMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	oh := &orderHandlers{orders: deps.Orders, paypalClientID: deps.PayPalClientID, dev: deps.Development}
	nh := &notificationHandlers{notifications: deps.Notifications, hub: deps.Hub, dev: deps.Development}

	// The checkout widget needs the client id before the user signs in.
	router.GET("/api/order/paypal/config", oh.paypalConfig)

	api := router.Group("/api", authRequired(deps.JWTSecret))

	orders := api.Group("/order")
	{
		orders.POST("", oh.create)
		orders.GET("", oh.listMine)
		orders.GET("/all", adminOnly(), oh.listAll)
		orders.GET("/:id", oh.get)
		orders.POST("/:id/paypal/create", oh.createIntent)
		orders.POST("/:id/paypal/capture", oh.captureIntent)
		orders.PUT("/delivery/:id/:status", adminOnly(), oh.advanceDelivery)
		orders.PUT("/:id/:paymentStatus", adminOnly(), oh.markPaymentStatus)
	}

	notifications := api.Group("/notification")
	{
		notifications.POST("", adminOnly(), nh.emit)
		notifications.GET("", nh.listMine)
		notifications.GET("/stream", nh.stream)
		notifications.PUT("/:id/read", nh.markRead)
		notifications.DELETE("/:id", adminOnly(), nh.remove)
	}

	return router
}
