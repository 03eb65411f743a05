package gateways

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"paygate/internal/config"
	"paygate/internal/models/db_models"
	"paygate/internal/repositories"
	"paygate/pkg/utils"
)

// Factory hands out the adapter for each configured provider. Availability is
// a pure function of the config struct built at startup; nothing here reads
// the environment.
type Factory struct {
	adapters map[db_models.GatewayType]PaymentGateway
	ordered  []db_models.GatewayType
}

func NewFactory(
	cfg *config.Config,
	txns repositories.TransactionRepository,
	packages repositories.PackageRepository,
	ledger CreditLedger,
	log *logrus.Logger,
) (*Factory, error) {
	settle := NewSettlement(txns, ledger, log)

	f := &Factory{
		adapters: make(map[db_models.GatewayType]PaymentGateway),
	}

	if cfg.Stripe.APIKey != "" {
		f.adapters[db_models.GatewayStripe] = NewStripeAdapter(
			cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret, packages, settle, log)
		f.ordered = append(f.ordered, db_models.GatewayStripe)
	}

	if cfg.MercadoPago.AccessToken != "" {
		mp, err := NewMercadoPagoAdapter(
			cfg.MercadoPago.AccessToken, cfg.FrontendURL, cfg.APIBaseURL, packages, settle, log)
		if err != nil {
			return nil, err
		}
		f.adapters[db_models.GatewayMercadoPago] = mp
		f.ordered = append(f.ordered, db_models.GatewayMercadoPago)
	}

	return f, nil
}

func (f *Factory) Create(gatewayType db_models.GatewayType) (PaymentGateway, error) {
	adapter, ok := f.adapters[gatewayType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnsupportedGateway, gatewayType)
	}
	return adapter, nil
}

func (f *Factory) AvailableGateways() []db_models.GatewayType {
	out := make([]db_models.GatewayType, len(f.ordered))
	copy(out, f.ordered)
	return out
}

func (f *Factory) IsAvailable(gatewayType db_models.GatewayType) bool {
	_, ok := f.adapters[gatewayType]
	return ok
}
