package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"wablast/config"
	"wablast/database"
	"wablast/internal/handler"
	customMiddleware "wablast/internal/middleware"
	"wablast/internal/model"
	"wablast/internal/service"
	"wablast/internal/ws"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func main() {

	// Load .env (abaikan error kalau file tidak ada, misal di production)
	_ = godotenv.Load()

	cfg := config.Load()

	if cfg.DBConnectionString == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// Device/credential store whatsmeow + tabel custom di Postgres yang sama
	database.InitWhatsmeow(cfg.DBConnectionString)
	database.InitAppDB(cfg.DBConnectionString)
	database.EnsureSchema()

	// Inisialisasi WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()

	// **************************
	// main proses.
	//***************************

	sessionStore := &model.PgSessionStore{}
	registry := service.NewSessionRegistry(cfg, sessionStore, hub, service.NewWhatsmeowFactory(sessionStore))
	ledger := service.NewProgressLedger(cfg.BlastProgressRetention)
	engine := service.NewDispatchEngine(cfg, registry, ledger, hub)

	// Reconnect semua session tersimpan
	log.Println("Loading existing sessions...")
	if err := registry.RestoreAll(context.Background()); err != nil {
		log.Printf("Warning: Failed to restore sessions: %v", err)
	}

	sessionHandler := handler.NewSessionHandler(cfg, registry)
	dispatchHandler := handler.NewDispatchHandler(engine, ledger)

	// Setup Echo
	e := echo.New()
	// e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	//env allow ip
	if cfg.CORSAllowOrigins == "" {
		log.Println("CORS_ALLOW_ORIGINS is not set")
	}
	allowOrigins := strings.Split(cfg.CORSAllowOrigins, ",")
	for i, o := range allowOrigins {
		allowOrigins[i] = strings.TrimSpace(o)
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{
			echo.GET,
			echo.POST,
			echo.PUT,
			echo.PATCH,
			echo.DELETE,
			echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestedWith,
			echo.HeaderAuthorization,
		},
		AllowCredentials: true,
	}))
	e.OPTIONS("/*", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimitPerSecond),
				Burst:     cfg.RateLimitBurst,
				ExpiresIn: time.Duration(cfg.RateLimitWindowMin) * time.Minute,
			},
		),
	}))

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := "Internal Server Error"

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = fmt.Sprintf("%v", he.Message)
		}
		// Custom response format
		response := map[string]interface{}{
			"success": false,
			"error":   message,
		}
		// Custom message untuk error tertentu
		switch code {
		case http.StatusUnauthorized:
			response["message"] = "Authentication required. Please login first."
		case http.StatusMethodNotAllowed:
			response["message"] = "Method not allowed for this endpoint"
		case http.StatusNotFound:
			response["message"] = "Endpoint not found"
		}

		_ = c.JSON(code, response)
	}

	// =====================================================
	// PUBLIC ROUTES (No authentication required)
	// =====================================================

	// WebSocket and health check
	e.GET("/ws", handler.WebSocketHandler(hub, registry)) //listen socket gorilla
	e.GET("/", func(c echo.Context) error {               // Health check
		return c.JSON(200, map[string]interface{}{
			"success": true,
			"message": "WA Blast API is running",
			"version": "1.0.0",
		})
	})

	// Daftar group route yang butuh JWT. Tanpa JWT_SECRET group ini terbuka
	// (deployment internal di belakang reverse proxy).
	var api *echo.Group
	if cfg.JWTSecret != "" {
		api = e.Group("/api", customMiddleware.JWTAuthMiddleware(cfg.JWTSecret))
	} else {
		log.Println("JWT_SECRET is not set, /api routes are unauthenticated")
		api = e.Group("/api")
	}

	// =====================================================
	// SESSION CONNECTION ROUTES
	// =====================================================
	api.GET("/status/:sessionId", sessionHandler.GetStatus)
	api.POST("/check/:sessionId", sessionHandler.ForceCheck)
	api.POST("/pair/:sessionId", sessionHandler.RequestPairing)
	api.POST("/reconnect/:sessionId", sessionHandler.Reconnect)
	api.POST("/disconnect/:sessionId", sessionHandler.Disconnect)
	api.POST("/reset/:sessionId", sessionHandler.Reset)

	// =====================================================
	// BULK DISPATCH ROUTES
	// =====================================================
	api.POST("/dispatch/:sessionId", dispatchHandler.Dispatch)
	api.GET("/progress/:sessionId", dispatchHandler.GetProgress)
	api.DELETE("/progress/:sessionId", dispatchHandler.DeleteProgress)

	// log info untuk cek config
	log.Printf("Server starting on port %s", cfg.Port)

	// bind ke semua interface, bukan hanya 127.0.0.1
	log.Fatal(e.Start(":" + cfg.Port))

}
