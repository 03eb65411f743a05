package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"paygate/internal/gateways"
	"paygate/internal/models/db_models"
)

var (
	errMockStore   = errors.New("mock store error")
	errMockGateway = errors.New("mock gateway error")
)

// mockTransactionRepository implements repositories.TransactionRepository
// in memory with the same conditional-transition semantics as the real one.
type mockTransactionRepository struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*db_models.Transaction

	createErr error
	findErr   error
	markErr   error

	completedCount int
}

func newMockTransactionRepository() *mockTransactionRepository {
	return &mockTransactionRepository{
		txns: make(map[uuid.UUID]*db_models.Transaction),
	}
}

func (m *mockTransactionRepository) put(txn *db_models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}
	m.txns[txn.ID] = txn
}

func (m *mockTransactionRepository) Create(_ context.Context, txn *db_models.Transaction) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.put(txn)
	return nil
}

func (m *mockTransactionRepository) FindByID(_ context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (m *mockTransactionRepository) FindByTransactionID(_ context.Context, transactionID string) (*db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.txns {
		if txn.TransactionID == transactionID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockTransactionRepository) FindByGatewayTransactionID(_ context.Context, gatewayTxnID string) (*db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.txns {
		if txn.GatewayTransactionID != nil && *txn.GatewayTransactionID == gatewayTxnID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockTransactionRepository) FindByUser(_ context.Context, userID string) ([]db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db_models.Transaction
	for _, txn := range m.txns {
		if txn.UserID == userID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) FindByStatus(_ context.Context, status db_models.TransactionStatus) ([]db_models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db_models.Transaction
	for _, txn := range m.txns {
		if txn.Status == status {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) FindStalePending(_ context.Context, olderThan time.Duration) ([]db_models.Transaction, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db_models.Transaction
	for _, txn := range m.txns {
		if txn.Status == db_models.TxnStatusPending && txn.CreatedAt < cutoff {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) CountByStatus(_ context.Context) (map[db_models.TransactionStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[db_models.TransactionStatus]int64)
	for _, txn := range m.txns {
		counts[txn.Status]++
	}
	return counts, nil
}

func (m *mockTransactionRepository) SetGatewayTransactionID(_ context.Context, id uuid.UUID, gatewayTxnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn, ok := m.txns[id]; ok {
		txn.GatewayTransactionID = &gatewayTxnID
	}
	return nil
}

func (m *mockTransactionRepository) MarkCompleted(_ context.Context, id uuid.UUID, _ []byte) (bool, error) {
	if m.markErr != nil {
		return false, m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != db_models.TxnStatusPending {
		return false, nil
	}
	now := time.Now().Unix()
	txn.Status = db_models.TxnStatusCompleted
	txn.CompletedAt = &now
	m.completedCount++
	return true, nil
}

func (m *mockTransactionRepository) MarkFailed(_ context.Context, id uuid.UUID, reason string, _ []byte) (bool, error) {
	if m.markErr != nil {
		return false, m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != db_models.TxnStatusPending {
		return false, nil
	}
	txn.Status = db_models.TxnStatusFailed
	txn.FailureReason = reason
	return true, nil
}

func (m *mockTransactionRepository) MarkCancelled(_ context.Context, id uuid.UUID, _ []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != db_models.TxnStatusPending {
		return false, nil
	}
	txn.Status = db_models.TxnStatusCancelled
	return true, nil
}

func (m *mockTransactionRepository) MarkRefunded(_ context.Context, id uuid.UUID, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != db_models.TxnStatusCompleted {
		return false, nil
	}
	txn.Status = db_models.TxnStatusRefunded
	return true, nil
}

func (m *mockTransactionRepository) get(id uuid.UUID) *db_models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[id]
}

// mockUserRepository implements repositories.UserRepository. UpdateCredits
// holds the mutex across apply, mirroring the row lock of the real store.
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*db_models.User

	findErr   error
	updateErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*db_models.User),
	}
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*db_models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := *user
	cp.Credits = user.Credits.Clone()
	return &cp, nil
}

func (m *mockUserRepository) Create(_ context.Context, user *db_models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) UpdateCredits(
	_ context.Context,
	email string,
	apply func(current db_models.CreditMap) (db_models.CreditMap, error),
) (db_models.CreditMap, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[email]
	if !ok {
		user = &db_models.User{
			Email:    email,
			Credits:  db_models.CreditMap{db_models.DefaultCreditType: 0},
			IsActive: true,
		}
		m.users[email] = user
	}

	next, err := apply(user.Credits.Clone())
	if err != nil {
		return nil, err
	}
	user.Credits = next
	return next.Clone(), nil
}

// mockPackageRepository implements repositories.PackageRepository.
type mockPackageRepository struct {
	packages map[string]*db_models.CreditPackage
}

func newMockPackageRepository() *mockPackageRepository {
	return &mockPackageRepository{
		packages: make(map[string]*db_models.CreditPackage),
	}
}

func (m *mockPackageRepository) FindActivePackage(_ context.Context, packageID string) (*db_models.CreditPackage, error) {
	pkg, ok := m.packages[packageID]
	if !ok || !pkg.IsActive {
		return nil, nil
	}
	return pkg, nil
}

func (m *mockPackageRepository) FindActivePackages(_ context.Context) ([]db_models.CreditPackage, error) {
	var out []db_models.CreditPackage
	for _, pkg := range m.packages {
		if pkg.IsActive {
			out = append(out, *pkg)
		}
	}
	return out, nil
}

// mockGateway implements gateways.PaymentGateway.
type mockGateway struct {
	createFunc func(ctx context.Context, req gateways.PaymentIntentRequest) (*gateways.PaymentIntentResponse, error)
	webhookFn  func(ctx context.Context, payload []byte, signature string) gateways.WebhookResult
	refundFn   func(ctx context.Context, req gateways.RefundRequest) gateways.RefundResult
	verifyFn   func(ctx context.Context, gatewayTxnID string) (*gateways.PaymentStatus, error)

	createCalls int
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, req gateways.PaymentIntentRequest) (*gateways.PaymentIntentResponse, error) {
	m.createCalls++
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errMockGateway
}

func (m *mockGateway) HandleWebhook(ctx context.Context, payload []byte, signature string) gateways.WebhookResult {
	if m.webhookFn != nil {
		return m.webhookFn(ctx, payload, signature)
	}
	return gateways.WebhookResult{Status: gateways.WebhookSuccess, Message: "ok"}
}

func (m *mockGateway) Refund(ctx context.Context, req gateways.RefundRequest) gateways.RefundResult {
	if m.refundFn != nil {
		return m.refundFn(ctx, req)
	}
	return gateways.RefundResult{Success: true, RefundID: "re_mock"}
}

func (m *mockGateway) VerifyPaymentStatus(ctx context.Context, gatewayTxnID string) (*gateways.PaymentStatus, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, gatewayTxnID)
	}
	return &gateways.PaymentStatus{Status: "unknown"}, nil
}

// mockProvider implements GatewayProvider over a fixed adapter set.
type mockProvider struct {
	adapters map[db_models.GatewayType]gateways.PaymentGateway
}

func newMockProvider(adapters map[db_models.GatewayType]gateways.PaymentGateway) *mockProvider {
	return &mockProvider{adapters: adapters}
}

func (m *mockProvider) Create(gatewayType db_models.GatewayType) (gateways.PaymentGateway, error) {
	adapter, ok := m.adapters[gatewayType]
	if !ok {
		return nil, errMockGateway
	}
	return adapter, nil
}

func (m *mockProvider) AvailableGateways() []db_models.GatewayType {
	var out []db_models.GatewayType
	for gatewayType := range m.adapters {
		out = append(out, gatewayType)
	}
	return out
}

func (m *mockProvider) IsAvailable(gatewayType db_models.GatewayType) bool {
	_, ok := m.adapters[gatewayType]
	return ok
}

// mockLedger implements CreditService with counters for grant assertions.
type mockLedger struct {
	mu     sync.Mutex
	grants []db_models.CreditMap
	users  map[string]db_models.CreditMap
	addErr error
}

func newMockLedger() *mockLedger {
	return &mockLedger{users: make(map[string]db_models.CreditMap)}
}

func (m *mockLedger) AddCredits(_ context.Context, userEmail string, delta db_models.CreditMap) (db_models.CreditMap, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, delta.Clone())
	current, ok := m.users[userEmail]
	if !ok {
		current = db_models.CreditMap{}
	}
	for creditType, amount := range delta {
		current[creditType] += amount
	}
	m.users[userEmail] = current
	return current.Clone(), nil
}

func (m *mockLedger) RegisterUser(_ context.Context, _ string) (*db_models.User, error) {
	return nil, errMockStore
}

func (m *mockLedger) GetUser(_ context.Context, _ string) (*db_models.User, error) {
	return nil, errMockStore
}

func (m *mockLedger) ConsumeCredits(_ context.Context, _ string, _ db_models.CreditMap) (db_models.CreditMap, error) {
	return nil, errMockStore
}

func (m *mockLedger) GetUserBalance(_ context.Context, userEmail string) (db_models.CreditMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if balance, ok := m.users[userEmail]; ok {
		return balance.Clone(), nil
	}
	return db_models.CreditMap{db_models.DefaultCreditType: 0}, nil
}

func (m *mockLedger) grantCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grants)
}
