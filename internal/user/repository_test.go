package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-topup-wallet/pkg/database/dbtest"
)

func TestRepositoryVirtualAccountLookup(t *testing.T) {
	db := dbtest.Open(t, &User{})
	repo := NewRepository(db)
	ctx := context.Background()

	usr := &User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.CreateUser(ctx, usr))
	assert.NotEqual(t, uuid.Nil, usr.ID)
	assert.False(t, usr.HasVirtualAccount())

	_, err := repo.FindByAccountNumber(ctx, "6600112233")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SetVirtualAccount(ctx, usr.ID, "6600112233", "Ada", "PalmPay"))

	found, err := repo.FindByAccountNumber(ctx, "6600112233")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, found.ID)
	assert.True(t, found.HasVirtualAccount())
	assert.Equal(t, "PalmPay", found.BankName)

	assert.ErrorIs(t, repo.SetVirtualAccount(ctx, uuid.New(), "1", "x", "y"), ErrNotFound)
}
