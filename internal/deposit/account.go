package deposit

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zjoart/go-topup-wallet/internal/provider"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

// AccountIssuer is the provider's virtual account endpoint. *provider.Client satisfies it.
type AccountIssuer interface {
	IssueVirtualAccount(ctx context.Context, req provider.AccountRequest) (*provider.VirtualAccount, error)
}

type AccountService struct {
	Users    user.Repository
	Provider AccountIssuer
}

func NewAccountService(users user.Repository, issuer AccountIssuer) *AccountService {
	return &AccountService{Users: users, Provider: issuer}
}

// VirtualAccount returns the caller's deposit account, issuing one on first use.
func (s *AccountService) VirtualAccount(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.HasVirtualAccount() {
		return u, nil
	}

	acct, err := s.Provider.IssueVirtualAccount(ctx, provider.AccountRequest{
		Reference: u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
	})
	if err != nil {
		logger.Error("Failed to issue virtual account", logger.Merge(logger.WithError(err), logger.Fields{logger.UserIdKey: userID.String()}))
		return nil, err
	}
	if acct.AccountNumber == "" {
		return nil, errors.New("provider returned an empty account number")
	}

	if err := s.Users.SetVirtualAccount(ctx, u.ID, acct.AccountNumber, acct.AccountName, acct.BankName); err != nil {
		return nil, err
	}
	u.AccountNumber = &acct.AccountNumber
	u.AccountName = acct.AccountName
	u.BankName = acct.BankName

	logger.Info("Virtual account issued", logger.Fields{logger.UserIdKey: userID.String(), "bank_name": acct.BankName})
	return u, nil
}
