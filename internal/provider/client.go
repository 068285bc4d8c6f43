package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zjoart/go-topup-wallet/pkg/httpclient"
)

var ErrIssueFailed = errors.New("virtual account issuance failed")

type AccountRequest struct {
	Reference string `json:"reference"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number,omitempty"`
}

type VirtualAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpclient.New(timeout),
	}
}

func (c *Client) IssueVirtualAccount(ctx context.Context, req AccountRequest) (*VirtualAccount, error) {
	status, raw, err := httpclient.Do(ctx, c.http, http.MethodPost, c.baseURL+"/virtual-accounts", c.apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIssueFailed, err)
	}

	var resp struct {
		Status   string           `json:"status"`
		Message  string           `json:"message"`
		Accounts []VirtualAccount `json:"bankAccounts"`
		Account  *VirtualAccount  `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: unreadable response (HTTP %d)", ErrIssueFailed, status)
	}
	if !strings.EqualFold(resp.Status, "success") {
		return nil, fmt.Errorf("%w: %s", ErrIssueFailed, resp.Message)
	}

	switch {
	case resp.Account != nil && resp.Account.AccountNumber != "":
		return resp.Account, nil
	case len(resp.Accounts) > 0:
		return &resp.Accounts[0], nil
	}
	return nil, fmt.Errorf("%w: no account in response", ErrIssueFailed)
}
