package cache_fx

import (
	"go.uber.org/fx"

	mem "paygate/pkg/memcache"
)

var Module = fx.Provide(provideBalanceCache)

func provideBalanceCache() mem.Store {
	return mem.NewMemcache()
}
