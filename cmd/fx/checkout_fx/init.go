package checkout_fx

import (
	"log"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"paygate/internal/api/controllers"
	"paygate/internal/config"
	"paygate/internal/gateways"
	"paygate/internal/repositories"
	"paygate/internal/services"
)

var Module = fx.Provide(
	provideTransactionRepository,
	providePackageRepository,
	provideGatewayFactory,
	provideCheckoutService,
	provideReconcileService,
	provideCheckoutController,
)

func provideTransactionRepository(db *gorm.DB) repositories.TransactionRepository {
	return repositories.NewTransactionRepository(db)
}

func providePackageRepository(db *gorm.DB) repositories.PackageRepository {
	return repositories.NewPackageRepository(db)
}

func provideGatewayFactory(
	cfg *config.Config,
	txns repositories.TransactionRepository,
	packages repositories.PackageRepository,
	creditService services.CreditService,
	logger *logrus.Logger,
) services.GatewayProvider {
	factory, err := gateways.NewFactory(cfg, txns, packages, creditService, logger)
	if err != nil {
		log.Fatalf("Error initializing gateway factory: %v", err)
	}
	return factory
}

func provideCheckoutService(
	provider services.GatewayProvider,
	txns repositories.TransactionRepository,
	packages repositories.PackageRepository,
	cfg *config.Config,
	logger *logrus.Logger,
) services.CheckoutService {
	return services.NewCheckoutService(provider, txns, packages, cfg.GatewayTimeout, logger)
}

func provideReconcileService(
	txns repositories.TransactionRepository,
	provider services.GatewayProvider,
	creditService services.CreditService,
	cfg *config.Config,
	logger *logrus.Logger,
) *services.ReconcileService {
	return services.NewReconcileService(
		txns, provider, creditService,
		cfg.StaleWindow, cfg.SweepInterval, cfg.GatewayTimeout, logger)
}

func provideCheckoutController(checkoutService services.CheckoutService) *controllers.CheckoutController {
	return controllers.NewCheckoutController(checkoutService)
}
