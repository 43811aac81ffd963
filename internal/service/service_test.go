package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptowallet/wallet-service/internal/models"
)

// fakeStore is an in-memory AccountStore with the same compare-and-set
// semantics as the Postgres repository.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account

	createErr  error
	conflicts  int // number of UpdateBalance calls to fail with a version conflict
	updateErrs int
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[uuid.UUID]*models.Account)}
}

func (f *fakeStore) CreateAccount(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, a := range f.accounts {
		if a.Email == account.Email {
			return models.ErrAccountExists
		}
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeStore) FindAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateBalance(_ context.Context, id uuid.UUID, balance, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		f.updateErrs++
		return models.ErrVersionConflict
	}
	a, ok := f.accounts[id]
	if !ok || a.Version != version {
		return models.ErrVersionConflict
	}
	a.Balance = balance
	a.Version++
	return nil
}

func newTestService(store *fakeStore) *Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(store, nil, log)
}

func TestCreateAccount(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", account.Email)
	assert.Equal(t, int64(0), account.Balance)
	assert.NotEqual(t, uuid.Nil, account.ID)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, models.ErrAccountExists)
	assert.Len(t, store.accounts, 1)
}

func TestCreateAccountConstraintIsFinalArbiter(t *testing.T) {
	// The pre-check passes but the store reports a unique violation, as
	// happens when two registrations race. The caller still sees the
	// duplicate-account error.
	store := newFakeStore()
	store.createErr = models.ErrAccountExists
	svc := newTestService(store)

	_, err := svc.CreateAccount(context.Background(), "race@x.com")
	assert.ErrorIs(t, err, models.ErrAccountExists)
}

func TestCreateAccountInvalidEmail(t *testing.T) {
	svc := newTestService(newFakeStore())

	for _, email := range []string{"", "not-an-email", "missing@tld@x"} {
		_, err := svc.CreateAccount(context.Background(), email)
		assert.ErrorIs(t, err, models.ErrInvalidEmail, "email %q", email)
	}
}

func TestGetBalanceNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.GetBalance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestDepositAndWithdrawFlow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Balance)

	account, err = svc.Deposit(context.Background(), account.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), account.Balance)

	account, err = svc.Withdraw(context.Background(), account.ID, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), account.Balance)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)
	_, err = svc.Deposit(context.Background(), account.ID, 2000)
	require.NoError(t, err)

	_, err = svc.Withdraw(context.Background(), account.ID, 10000)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	current, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), current.Balance)
}

func TestInvalidAmounts(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)

	for _, amount := range []int64{0, -100} {
		_, err := svc.Deposit(context.Background(), account.ID, amount)
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
		_, err = svc.Withdraw(context.Background(), account.ID, amount)
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	}
}

func TestDepositWithdrawConservation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)
	_, err = svc.Deposit(context.Background(), account.ID, 5000)
	require.NoError(t, err)

	for _, amount := range []int64{1, 250, 4999} {
		_, err := svc.Deposit(context.Background(), account.ID, amount)
		require.NoError(t, err)
		current, err := svc.Withdraw(context.Background(), account.ID, amount)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), current.Balance)
	}
}

func TestNotFoundSymmetry(t *testing.T) {
	svc := newTestService(newFakeStore())
	id := uuid.New()

	_, err := svc.GetBalance(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	_, err = svc.Deposit(context.Background(), id, 100)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	_, err = svc.Withdraw(context.Background(), id, 100)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestConcurrentDeposits(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deposit(context.Background(), account.ID, 5000)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	current, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), current.Balance)
}

func TestDepositRetriesOnVersionConflict(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)

	store.conflicts = 2
	current, err := svc.Deposit(context.Background(), account.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), current.Balance)
	assert.Equal(t, 2, store.updateErrs)
}

func TestDepositGivesUpAfterRetries(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	account, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.NoError(t, err)

	store.conflicts = maxUpdateRetries
	_, err = svc.Deposit(context.Background(), account.ID, 100)
	assert.ErrorIs(t, err, models.ErrVersionConflict)
}

func TestStoreFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("connection refused")
	svc := newTestService(store)

	_, err := svc.CreateAccount(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrAccountExists)
}
