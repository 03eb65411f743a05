package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"paygate/cmd/fx/cache_fx"
	"paygate/cmd/fx/checkout_fx"
	"paygate/cmd/fx/credit_fx"
	"paygate/cmd/fx/db_fx"
	"paygate/internal/api/controllers"
	"paygate/internal/config"
	"paygate/internal/services"
	"paygate/pkg/logger"
	"paygate/pkg/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(logger.New),

		db_fx.Module,
		cache_fx.Module,
		credit_fx.Module,
		checkout_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
		fx.Invoke(StartSweep),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Printf("Starting HTTP server at :%s", cfg.Port)
				if err := engine.Run(":" + cfg.Port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func StartSweep(lc fx.Lifecycle, sweep *services.ReconcileService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweep.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweep.Stop()
			return nil
		},
	})
}

func ProvideRouter(
	checkoutController *controllers.CheckoutController,
	userController *controllers.UserController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware())

	RegisterRoutes(r, checkoutController, userController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	checkoutController *controllers.CheckoutController,
	userController *controllers.UserController) {

	r.POST("/purchase", checkoutController.Purchase)
	r.GET("/gateways", checkoutController.ListGateways)
	r.GET("/packages", checkoutController.ListPackages)
	r.POST("/webhooks/:gateway", checkoutController.HandleWebhook)

	txnGroup := r.Group("/transactions")
	txnGroup.GET("/stats", checkoutController.TransactionStats)
	txnGroup.GET("/user/:email", checkoutController.ListUserTransactions)
	txnGroup.GET("/:id", checkoutController.GetTransaction)
	txnGroup.POST("/:id/refund", checkoutController.RefundTransaction)

	userGroup := r.Group("/users")
	userGroup.POST("", userController.RegisterUser)
	userGroup.GET("/:email", userController.GetUser)
	userGroup.GET("/:email/balance", userController.GetBalance)
	userGroup.POST("/:email/consume", userController.ConsumeCredits)
}
