package credit_fx

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"paygate/internal/api/controllers"
	"paygate/internal/config"
	"paygate/internal/repositories"
	"paygate/internal/services"
	mem "paygate/pkg/memcache"
)

var Module = fx.Provide(
	provideUserRepository,
	provideCreditService,
	provideUserController,
)

func provideUserRepository(db *gorm.DB) repositories.UserRepository {
	return repositories.NewUserRepository(db)
}

func provideCreditService(
	users repositories.UserRepository,
	cache mem.Store,
	cfg *config.Config,
	log *logrus.Logger,
) services.CreditService {
	return services.NewCreditService(users, cache, cfg.BalanceCacheTTL, log)
}

func provideUserController(creditService services.CreditService) *controllers.UserController {
	return controllers.NewUserController(creditService)
}
