package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-topup-wallet/pkg/database/dbtest"
)

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertAmount(t *testing.T, expected string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(amount(expected)), "expected %s, got %s", expected, got)
}

func newRepo(t *testing.T) Repository {
	db := dbtest.Open(t, &Wallet{}, &Transaction{}, &CashbackTransaction{})
	return NewRepository(db)
}

func seed(t *testing.T, repo Repository, main, cashback string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()
	_, err := repo.CreateWallets(ctx, userID, "")
	require.NoError(t, err)
	if a := amount(main); a.IsPositive() {
		require.NoError(t, repo.Credit(ctx, userID, KindMain, a))
	}
	if a := amount(cashback); a.IsPositive() {
		require.NoError(t, repo.Credit(ctx, userID, KindCashback, a))
	}
	return userID
}

func TestCreateWallets(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	w, err := repo.CreateWallets(ctx, userID, "hash")
	require.NoError(t, err)
	assert.Equal(t, KindMain, w.Kind)

	cb, err := repo.GetWallet(ctx, userID, KindCashback)
	require.NoError(t, err)
	assertAmount(t, "0", cb.Balance)

	_, err = repo.CreateWallets(ctx, userID, "hash")
	assert.ErrorIs(t, err, ErrWalletExists)

	_, err = repo.GetWallet(ctx, uuid.New(), KindMain)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestDebitIsConditional(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := seed(t, repo, "500", "0")

	require.NoError(t, repo.Debit(ctx, userID, KindMain, amount("200")))
	assert.ErrorIs(t, repo.Debit(ctx, userID, KindMain, amount("300.01")), ErrInsufficientBalance)
	assert.ErrorIs(t, repo.Debit(ctx, userID, KindMain, amount("0")), ErrInvalidAmount)

	w, err := repo.GetWallet(ctx, userID, KindMain)
	require.NoError(t, err)
	assertAmount(t, "300", w.Balance)

	require.NoError(t, repo.Debit(ctx, userID, KindMain, amount("300")))
	w, _ = repo.GetWallet(ctx, userID, KindMain)
	assertAmount(t, "0", w.Balance)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := seed(t, repo, "5", "0")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Debit(ctx, userID, KindMain, amount("1")); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	w, err := repo.GetWallet(ctx, userID, KindMain)
	require.NoError(t, err)
	assertAmount(t, "0", w.Balance)
}

func TestCreditUnknownWallet(t *testing.T) {
	repo := newRepo(t)
	assert.ErrorIs(t, repo.Credit(context.Background(), uuid.New(), KindMain, amount("10")), ErrWalletNotFound)
}

func TestDrainAndRestoreCashback(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := seed(t, repo, "0", "150")

	assert.ErrorIs(t, repo.DrainCashback(ctx, userID, amount("100")), ErrBalanceChanged)

	require.NoError(t, repo.DrainCashback(ctx, userID, amount("150")))
	cb, err := repo.GetWallet(ctx, userID, KindCashback)
	require.NoError(t, err)
	assertAmount(t, "0", cb.Balance)
	assertAmount(t, "150", cb.TotalWithdrawn)

	require.NoError(t, repo.RestoreCashback(ctx, userID, amount("150")))
	cb, _ = repo.GetWallet(ctx, userID, KindCashback)
	assertAmount(t, "150", cb.Balance)
	assertAmount(t, "0", cb.TotalWithdrawn)
}

func TestTransactionReferenceIsUnique(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	ref := "TXN1"

	first := &Transaction{UserID: userID, Type: TransactionCredit, Category: CategoryDeposit, Amount: amount("1000"), Status: TransactionCompleted, Reference: &ref}
	require.NoError(t, repo.CreateTransaction(ctx, first))

	dup := &Transaction{UserID: userID, Type: TransactionCredit, Category: CategoryDeposit, Amount: amount("1000"), Status: TransactionCompleted, Reference: &ref}
	assert.Error(t, repo.CreateTransaction(ctx, dup))

	found, err := repo.GetTransactionByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.GetTransactionByReference(ctx, "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	// purchases carry no reference, many NULLs are allowed
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.CreateTransaction(ctx, &Transaction{UserID: userID, Type: TransactionDebit, Category: CategoryAirtime, Amount: amount("50"), Status: TransactionFailed}))
	}
	count, err := repo.CountTransactions(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestCashbackHistory(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	for _, typ := range []CashbackType{CashbackEarned, CashbackWithdrawn} {
		require.NoError(t, repo.CreateCashbackTransaction(ctx, &CashbackTransaction{UserID: userID, Type: typ, Amount: amount("20")}))
	}

	txs, total, err := repo.GetCashbackTransactions(ctx, userID, 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, txs, 1)
}
