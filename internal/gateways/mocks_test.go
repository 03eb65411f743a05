package gateways

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"

	"paygate/internal/models/db_models"
)

var errMockAPI = errors.New("mock api error")

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeTxnStore is an in-memory repositories.TransactionRepository with the
// production code's conditional-transition behavior.
type fakeTxnStore struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*db_models.Transaction

	createErr error
	markErr   error
}

func newFakeTxnStore() *fakeTxnStore {
	return &fakeTxnStore{txns: make(map[uuid.UUID]*db_models.Transaction)}
}

func (f *fakeTxnStore) put(txn *db_models.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	f.txns[txn.ID] = txn
}

func (f *fakeTxnStore) get(id uuid.UUID) *db_models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txns[id]
}

func (f *fakeTxnStore) Create(_ context.Context, txn *db_models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.put(txn)
	return nil
}

func (f *fakeTxnStore) FindByID(_ context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeTxnStore) FindByTransactionID(_ context.Context, transactionID string) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.TransactionID == transactionID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTxnStore) FindByGatewayTransactionID(_ context.Context, gatewayTxnID string) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.GatewayTransactionID != nil && *txn.GatewayTransactionID == gatewayTxnID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTxnStore) FindByUser(_ context.Context, _ string) ([]db_models.Transaction, error) {
	return nil, nil
}

func (f *fakeTxnStore) FindByStatus(_ context.Context, _ db_models.TransactionStatus) ([]db_models.Transaction, error) {
	return nil, nil
}

func (f *fakeTxnStore) FindStalePending(_ context.Context, _ time.Duration) ([]db_models.Transaction, error) {
	return nil, nil
}

func (f *fakeTxnStore) CountByStatus(_ context.Context) (map[db_models.TransactionStatus]int64, error) {
	return nil, nil
}

func (f *fakeTxnStore) SetGatewayTransactionID(_ context.Context, id uuid.UUID, gatewayTxnID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[id]; ok {
		txn.GatewayTransactionID = &gatewayTxnID
	}
	return nil
}

func (f *fakeTxnStore) MarkCompleted(_ context.Context, id uuid.UUID, _ []byte) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || txn.Status != db_models.TxnStatusPending {
		return false, nil
	}
	now := time.Now().Unix()
	txn.Status = db_models.TxnStatusCompleted
	txn.CompletedAt = &now
	return true, nil
}

func (f *fakeTxnStore) MarkFailed(_ context.Context, id uuid.UUID, reason string, _ []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || txn.Status != db_models.TxnStatusPending {
		return false, nil
	}
	txn.Status = db_models.TxnStatusFailed
	txn.FailureReason = reason
	return true, nil
}

func (f *fakeTxnStore) MarkCancelled(_ context.Context, id uuid.UUID, _ []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || txn.Status != db_models.TxnStatusPending {
		return false, nil
	}
	txn.Status = db_models.TxnStatusCancelled
	return true, nil
}

func (f *fakeTxnStore) MarkRefunded(_ context.Context, id uuid.UUID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || txn.Status != db_models.TxnStatusCompleted {
		return false, nil
	}
	txn.Status = db_models.TxnStatusRefunded
	return true, nil
}

// fakePackageStore is an in-memory repositories.PackageRepository.
type fakePackageStore struct {
	packages map[string]*db_models.CreditPackage
}

func newFakePackageStore() *fakePackageStore {
	return &fakePackageStore{packages: make(map[string]*db_models.CreditPackage)}
}

func (f *fakePackageStore) FindActivePackage(_ context.Context, packageID string) (*db_models.CreditPackage, error) {
	pkg, ok := f.packages[packageID]
	if !ok || !pkg.IsActive {
		return nil, nil
	}
	return pkg, nil
}

func (f *fakePackageStore) FindActivePackages(_ context.Context) ([]db_models.CreditPackage, error) {
	var out []db_models.CreditPackage
	for _, pkg := range f.packages {
		if pkg.IsActive {
			out = append(out, *pkg)
		}
	}
	return out, nil
}

// fakeLedger counts grants.
type fakeLedger struct {
	mu     sync.Mutex
	grants []db_models.CreditMap
	addErr error
}

func (f *fakeLedger) AddCredits(_ context.Context, _ string, delta db_models.CreditMap) (db_models.CreditMap, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, delta.Clone())
	return delta.Clone(), nil
}

func (f *fakeLedger) grantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grants)
}

// Stripe API doubles.

type fakeStripeIntents struct {
	newFunc func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getFunc func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func (f *fakeStripeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.newFunc != nil {
		return f.newFunc(params)
	}
	return nil, errMockAPI
}

func (f *fakeStripeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.getFunc != nil {
		return f.getFunc(id, params)
	}
	return nil, errMockAPI
}

type fakeStripeRefunds struct {
	newFunc func(params *stripe.RefundParams) (*stripe.Refund, error)
}

func (f *fakeStripeRefunds) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	if f.newFunc != nil {
		return f.newFunc(params)
	}
	return nil, errMockAPI
}

// MercadoPago API doubles.

type fakeMPPreferences struct {
	createFunc func(ctx context.Context, req preference.Request) (*preference.Response, error)
}

func (f *fakeMPPreferences) Create(ctx context.Context, req preference.Request) (*preference.Response, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, req)
	}
	return nil, errMockAPI
}

type fakeMPPayments struct {
	getFunc func(ctx context.Context, id int) (*payment.Response, error)
}

func (f *fakeMPPayments) Get(ctx context.Context, id int) (*payment.Response, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, id)
	}
	return nil, errMockAPI
}
