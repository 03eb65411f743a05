package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"paygate/internal/models/db_models"
	"paygate/internal/repositories"
	mem "paygate/pkg/memcache"
	"paygate/pkg/utils"
)

// CreditService is the credit ledger: atomic per-user add/consume plus a
// cache-first balance read. The cache is advisory only; every mutation
// invalidates the user's entry before returning.
type CreditService interface {
	RegisterUser(ctx context.Context, userEmail string) (*db_models.User, error)
	GetUser(ctx context.Context, userEmail string) (*db_models.User, error)
	AddCredits(ctx context.Context, userEmail string, delta db_models.CreditMap) (db_models.CreditMap, error)
	ConsumeCredits(ctx context.Context, userEmail string, amounts db_models.CreditMap) (db_models.CreditMap, error)
	GetUserBalance(ctx context.Context, userEmail string) (db_models.CreditMap, error)
}

type creditService struct {
	users    repositories.UserRepository
	cache    mem.Store
	cacheTTL time.Duration
	log      *logrus.Logger
}

func NewCreditService(users repositories.UserRepository, cache mem.Store, cacheTTL time.Duration, log *logrus.Logger) CreditService {
	return &creditService{
		users:    users,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func balanceCacheKey(email string) string {
	return "balance:" + email
}

// RegisterUser creates an account explicitly, ahead of any purchase. Grants
// and consumption do not require it; they create the row lazily.
func (s *creditService) RegisterUser(ctx context.Context, userEmail string) (*db_models.User, error) {
	existing, err := s.users.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrUserAlreadyExists, userEmail)
	}

	user := &db_models.User{
		Email:    userEmail,
		Credits:  db_models.CreditMap{db_models.DefaultCreditType: 0},
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	s.log.WithField("user", userEmail).Info("user registered")
	return user, nil
}

func (s *creditService) GetUser(ctx context.Context, userEmail string) (*db_models.User, error) {
	user, err := s.users.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrUserNotFound, userEmail)
	}
	return user, nil
}

func (s *creditService) AddCredits(ctx context.Context, userEmail string, delta db_models.CreditMap) (db_models.CreditMap, error) {
	updated, err := s.users.UpdateCredits(ctx, userEmail, func(current db_models.CreditMap) (db_models.CreditMap, error) {
		next := current.Clone()
		for creditType, amount := range delta {
			next[creditType] += amount
			if next[creditType] < 0 {
				return nil, fmt.Errorf("%w: %s", db_models.ErrNegativeCredits, creditType)
			}
		}
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("add credits for %s: %w", userEmail, err)
	}

	s.cache.Del(balanceCacheKey(userEmail))

	s.log.WithField("user", userEmail).WithField("delta", delta).Info("credits added")
	return updated, nil
}

func (s *creditService) ConsumeCredits(ctx context.Context, userEmail string, amounts db_models.CreditMap) (db_models.CreditMap, error) {
	// Deterministic check order so the reported deficiency is stable.
	types := make([]string, 0, len(amounts))
	for creditType := range amounts {
		types = append(types, creditType)
	}
	sort.Strings(types)

	updated, err := s.users.UpdateCredits(ctx, userEmail, func(current db_models.CreditMap) (db_models.CreditMap, error) {
		// All-or-nothing: validate every type against the locked read before
		// touching anything.
		for _, creditType := range types {
			required := amounts[creditType]
			available := current[creditType]
			if available < required {
				return nil, fmt.Errorf(
					"%w: insufficient %s credits. Required: %d, Available: %d",
					utils.ErrInsufficientCredits, creditType, required, available)
			}
		}

		next := current.Clone()
		for _, creditType := range types {
			next[creditType] -= amounts[creditType]
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Del(balanceCacheKey(userEmail))

	s.log.WithField("user", userEmail).WithField("amounts", amounts).Info("credits consumed")
	return updated, nil
}

func (s *creditService) GetUserBalance(ctx context.Context, userEmail string) (db_models.CreditMap, error) {
	key := balanceCacheKey(userEmail)

	if cached, ok := s.cache.Get(key); ok {
		if balance, ok := cached.(db_models.CreditMap); ok {
			return balance.Clone(), nil
		}
	}

	user, err := s.users.FindByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("read balance for %s: %w", userEmail, err)
	}

	// Absence is not a failure for balance queries.
	balance := db_models.CreditMap{db_models.DefaultCreditType: 0}
	if user != nil && len(user.Credits) > 0 {
		balance = user.Credits.Clone()
	}

	s.cache.Set(key, balance.Clone(), s.cacheTTL)
	return balance, nil
}
