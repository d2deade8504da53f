package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/rrdigi/internal/config"
	"github.com/example/rrdigi/internal/handlers"
	"github.com/example/rrdigi/internal/metrics"
	"github.com/example/rrdigi/internal/middleware"
	"github.com/example/rrdigi/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	mailer := services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	razorpay := services.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	m := metrics.Registry("rrdigi")

	authHandler := handlers.NewAuthHandler(db, cfg, mailer, m)
	orderHandler := handlers.NewOrderHandler(db, cfg, mailer, m)
	paymentHandler := handlers.NewPaymentHandler(db, cfg, razorpay, m)
	adminHandler := handlers.NewAdminHandler(db)

	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool { return true },
		AllowCredentials: true,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Static("/uploads", cfg.UploadDir)

	api := app.Group("/api", rateLimit(300, 15*time.Minute, "Too many requests. Please try again later."))

	// Auth routes; fine-grained limits mirror the per-endpoint abuse policy.
	auth := api.Group("/auth")
	auth.Post("/is-admin-email", authHandler.IsAdminEmail)
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/check-user", authHandler.CheckUser)
	auth.Post("/login",
		rateLimit(20, 15*time.Minute, "Too many login attempts. Please try again later."),
		authHandler.Login)
	auth.Post("/request-otp",
		rateLimit(5, 15*time.Minute, "Too many OTP requests. Please wait and try again."),
		authHandler.RequestOtp)
	auth.Post("/verify-otp",
		rateLimit(10, 15*time.Minute, "Too many OTP attempts. Please wait and try again."),
		authHandler.VerifyOtp)

	authed := api.Group("", middleware.AuthMiddleware(db, cfg))
	authed.Post("/auth/logout", authHandler.Logout)
	authed.Get("/auth/me", authHandler.Me)
	authed.Post("/auth/update-profile", authHandler.UpdateProfile)

	authed.Post("/orders",
		rateLimit(10, 10*time.Minute, "Too many order requests. Please try again later."),
		orderHandler.CreateOrder)
	authed.Get("/orders/my", orderHandler.MyOrders)

	payments := authed.Group("/payments")
	payments.Post("/razorpay/create", paymentHandler.CreatePaymentIntent)
	payments.Post("/razorpay/verify", paymentHandler.VerifyPayment)

	admin := authed.Group("/admin", middleware.RequireAdmin(cfg))
	admin.Get("/orders", adminHandler.ListOrders)
	admin.Post("/orders/:id/status", adminHandler.UpdateStatus)
	admin.Post("/orders/:id/payment-status", adminHandler.UpdatePaymentStatus)
}

func rateLimit(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": message})
		},
	})
}
