package cashback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/database/dbtest"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func setup(t *testing.T) (*gorm.DB, wallet.Repository) {
	db := dbtest.Open(t, &wallet.Wallet{}, &wallet.Transaction{}, &wallet.CashbackTransaction{})
	return db, wallet.NewRepository(db)
}

// seed creates both wallets; earned cashback is recorded as total_earned too.
func seed(t *testing.T, db *gorm.DB, repo wallet.Repository, main, cashback string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()
	_, err := repo.CreateWallets(ctx, userID, "")
	require.NoError(t, err)
	require.NoError(t, db.Model(&wallet.Wallet{}).Where("user_id = ? AND kind = ?", userID, wallet.KindMain).
		Update("balance", amount(main)).Error)
	require.NoError(t, db.Model(&wallet.Wallet{}).Where("user_id = ? AND kind = ?", userID, wallet.KindCashback).
		Updates(map[string]interface{}{"balance": amount(cashback), "total_earned": amount(cashback)}).Error)
	return userID
}

func wallets(t *testing.T, repo wallet.Repository, userID uuid.UUID) (*wallet.Wallet, *wallet.Wallet) {
	t.Helper()
	m, err := repo.GetWallet(context.Background(), userID, wallet.KindMain)
	require.NoError(t, err)
	c, err := repo.GetWallet(context.Background(), userID, wallet.KindCashback)
	require.NoError(t, err)
	return m, c
}

type notifyCount struct{ n int }

func (c *notifyCount) Notify(context.Context, uuid.UUID, string, string, string) { c.n++ }

func TestWithdrawMovesWholeBalance(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "50", "150")
	notes := &notifyCount{}
	svc := NewService(repo, notes, amount("100"))

	res, err := svc.Withdraw(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(amount("150")))
	assert.True(t, res.MainBalance.Equal(amount("200")))

	m, c := wallets(t, repo, userID)
	assert.Equal(t, "200.00", m.Balance.StringFixed(2))
	assert.Equal(t, "0.00", c.Balance.StringFixed(2))
	assert.Equal(t, "150.00", c.TotalWithdrawn.StringFixed(2))
	assert.True(t, c.TotalEarned.Sub(c.TotalWithdrawn).Equal(c.Balance))

	cbTxs, count, err := repo.GetCashbackTransactions(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, wallet.CashbackWithdrawn, cbTxs[0].Type)

	txs, err := repo.GetTransactions(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, wallet.TransactionCredit, txs[0].Type)
	assert.Equal(t, wallet.CategoryDeposit, txs[0].Category)

	meta, err := txs[0].DecodeMetadata()
	require.NoError(t, err)
	dm := meta.(*wallet.DepositMetadata)
	assert.Equal(t, wallet.SourceCashback, dm.Source)
	require.NotNil(t, dm.CashbackTransactionID)
	assert.Equal(t, cbTxs[0].ID, *dm.CashbackTransactionID)

	assert.Equal(t, 1, notes.n)
}

func TestWithdrawBelowMinimum(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "50", "99.99")
	svc := NewService(repo, nil, amount("100"))

	_, err := svc.Withdraw(context.Background(), userID)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	m, c := wallets(t, repo, userID)
	assert.Equal(t, "50.00", m.Balance.StringFixed(2))
	assert.Equal(t, "99.99", c.Balance.StringFixed(2))
}

func TestWithdrawZeroBalanceWithZeroMinimum(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "0", "0")
	svc := NewService(repo, nil, decimal.Zero)

	_, err := svc.Withdraw(context.Background(), userID)
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestWithdrawMissingWallet(t *testing.T) {
	_, repo := setup(t)
	svc := NewService(repo, nil, amount("100"))

	_, err := svc.Withdraw(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

// failingCredit refuses to credit the main wallet.
type failingCredit struct {
	wallet.Repository
}

func (failingCredit) Credit(context.Context, uuid.UUID, wallet.Kind, decimal.Decimal) error {
	return errors.New("connection reset")
}

func TestWithdrawRestoresCashbackWhenCreditFails(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "50", "150")
	svc := NewService(failingCredit{repo}, nil, amount("100"))

	_, err := svc.Withdraw(context.Background(), userID)
	assert.ErrorIs(t, err, ErrTransferFailed)

	m, c := wallets(t, repo, userID)
	assert.Equal(t, "50.00", m.Balance.StringFixed(2))
	assert.Equal(t, "150.00", c.Balance.StringFixed(2))
	assert.Equal(t, "0.00", c.TotalWithdrawn.StringFixed(2))

	txs, err := repo.GetTransactions(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// racingEarn credits more cashback between the read and the drain.
type racingEarn struct {
	wallet.Repository
}

func (r racingEarn) DrainCashback(ctx context.Context, userID uuid.UUID, expected decimal.Decimal) error {
	if err := r.Repository.Credit(ctx, userID, wallet.KindCashback, amount("10")); err != nil {
		return err
	}
	return r.Repository.DrainCashback(ctx, userID, expected)
}

func TestWithdrawConcurrentChangeFails(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "50", "150")
	svc := NewService(racingEarn{repo}, nil, amount("100"))

	_, err := svc.Withdraw(context.Background(), userID)
	assert.ErrorIs(t, err, ErrTransferFailed)

	m, c := wallets(t, repo, userID)
	assert.Equal(t, "50.00", m.Balance.StringFixed(2))
	assert.Equal(t, "160.00", c.Balance.StringFixed(2))
}

// depositDuringCredit lands an unrelated deposit alongside the cashback credit.
type depositDuringCredit struct {
	wallet.Repository
}

func (d depositDuringCredit) Credit(ctx context.Context, userID uuid.UUID, kind wallet.Kind, amt decimal.Decimal) error {
	if err := d.Repository.Credit(ctx, userID, wallet.KindMain, amount("40")); err != nil {
		return err
	}
	return d.Repository.Credit(ctx, userID, kind, amt)
}

func TestWithdrawReportsCurrentMainBalance(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "50", "150")
	svc := NewService(depositDuringCredit{repo}, nil, amount("100"))

	res, err := svc.Withdraw(context.Background(), userID)
	require.NoError(t, err)

	m, _ := wallets(t, repo, userID)
	assert.Equal(t, "240.00", m.Balance.StringFixed(2))
	assert.True(t, res.MainBalance.Equal(m.Balance), "got %s", res.MainBalance)
}

func TestWithdrawHandler(t *testing.T) {
	db, repo := setup(t)
	userID := seed(t, db, repo, "0", "40")
	h := NewHandler(NewService(repo, nil, amount("100")))

	call := func(id uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/cashback/withdraw", nil)
		req = req.WithContext(context.WithValue(req.Context(), utils.UserIDCtxKey, id))
		rr := httptest.NewRecorder()
		h.Withdraw(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusBadRequest, call(userID).Code)
	assert.Equal(t, http.StatusNotFound, call(uuid.New()).Code)

	require.NoError(t, repo.Credit(context.Background(), userID, wallet.KindCashback, amount("60")))
	rr := call(userID)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Cashback withdrawn successfully")
}
