package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

// ErrNotFound reports a missing resource on a read-only lookup.
var ErrNotFound = errors.New("resource not found")

const defaultTimeout = 15 * time.Second

// Config carries the HTTP client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is the HTTP implementation of wallet.RemoteAPI. Transport and
// server failures are mapped onto the wallet error taxonomy; server-reported
// reasons travel unmodified in the wrapped message.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New validates the configuration and builds a Client.
func New(cfg Config) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty base url", wallet.ErrInvalidClientConfig)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: malformed base url %q", wallet.ErrInvalidClientConfig, cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: trimmed, httpClient: httpClient}, nil
}

// Authenticate implements wallet.RemoteAPI.
func (client *Client) Authenticate(ctx context.Context, email string, password string) (wallet.AuthResult, error) {
	var response authResponse
	err := client.do(ctx, http.MethodPost, "/api/login", "", loginRequest{Email: email, Password: password}, &response, map[int]error{
		http.StatusUnauthorized: wallet.ErrInvalidCredentials,
		http.StatusNotFound:     wallet.ErrInvalidCredentials,
	})
	if err != nil {
		return wallet.AuthResult{}, err
	}
	return wallet.AuthResult{Token: response.Token, Profile: response.User}, nil
}

// CreateAccount implements wallet.RemoteAPI.
func (client *Client) CreateAccount(ctx context.Context, account wallet.NewAccount) (wallet.RegistrationResult, error) {
	payload := registerRequest{
		FullName: account.FullName,
		Email:    account.Email,
		CNIC:     account.CNIC,
		Password: account.Password,
	}
	var response authResponse
	err := client.do(ctx, http.MethodPost, "/api/register", "", payload, &response, map[int]error{
		http.StatusUnauthorized: wallet.ErrEmailNotVerified,
		http.StatusConflict:     wallet.ErrEmailRegistered,
	})
	if err != nil {
		return wallet.RegistrationResult{}, err
	}
	return wallet.RegistrationResult{
		Token:       response.Token,
		Profile:     response.User,
		RecoveryKey: response.PrivateKey,
	}, nil
}

// FetchProfile implements wallet.RemoteAPI.
func (client *Client) FetchProfile(ctx context.Context, token string) (wallet.Profile, error) {
	var response profileResponse
	if err := client.do(ctx, http.MethodGet, "/api/profile", token, nil, &response, authedOverrides()); err != nil {
		return wallet.Profile{}, err
	}
	return response.User, nil
}

// UpdateProfile implements wallet.RemoteAPI.
func (client *Client) UpdateProfile(ctx context.Context, token string, update wallet.ProfileUpdate) error {
	payload := updateProfileRequest{FullName: update.FullName, CNIC: update.CNIC}
	return client.do(ctx, http.MethodPut, "/api/profile", token, payload, nil, authedOverrides())
}

// SetBeneficiaries implements wallet.RemoteAPI. The full list replaces the
// server-side state in one request.
func (client *Client) SetBeneficiaries(ctx context.Context, token string, list []wallet.Beneficiary) error {
	payload := setBeneficiariesRequest{Beneficiaries: list}
	if payload.Beneficiaries == nil {
		payload.Beneficiaries = []wallet.Beneficiary{}
	}
	return client.do(ctx, http.MethodPut, "/api/beneficiaries", token, payload, nil, authedOverrides())
}

// IssueCode implements wallet.RemoteAPI.
func (client *Client) IssueCode(ctx context.Context, email string) (wallet.IssueReceipt, error) {
	var response otpResponse
	err := client.do(ctx, http.MethodPost, "/api/otp/generate", "", otpRequest{Email: email}, &response, map[int]error{
		http.StatusConflict:        wallet.ErrEmailRegistered,
		http.StatusTooManyRequests: wallet.ErrResendThrottled,
	})
	if err != nil {
		return wallet.IssueReceipt{}, err
	}
	return wallet.IssueReceipt{DevCode: response.OTP}, nil
}

// VerifyCode implements wallet.RemoteAPI.
func (client *Client) VerifyCode(ctx context.Context, email string, code string) error {
	return client.do(ctx, http.MethodPost, "/api/otp/verify", "", verifyOTPRequest{Email: email, OTP: code}, nil, map[int]error{
		http.StatusUnauthorized: wallet.ErrInvalidCode,
		http.StatusGone:         wallet.ErrCodeExpired,
		http.StatusNotFound:     wallet.ErrNoActiveChallenge,
	})
}

// FetchBalance implements wallet.RemoteAPI.
func (client *Client) FetchBalance(ctx context.Context, token string) (float64, error) {
	var response balanceResponse
	if err := client.do(ctx, http.MethodGet, "/api/balance", token, nil, &response, authedOverrides()); err != nil {
		return 0, err
	}
	return response.Balance, nil
}

// ValidateWallet implements wallet.RemoteAPI. An unknown wallet is a valid
// negative answer, not a failure.
func (client *Client) ValidateWallet(ctx context.Context, walletID string) (wallet.WalletCheck, error) {
	var response validateWalletResponse
	path := "/api/wallet/validate/" + url.PathEscape(walletID)
	err := client.do(ctx, http.MethodGet, path, "", nil, &response, nil)
	if err != nil {
		if errorStatus(err) == http.StatusNotFound {
			return wallet.WalletCheck{Valid: false, WalletID: walletID}, nil
		}
		return wallet.WalletCheck{}, err
	}
	return wallet.WalletCheck{
		Valid:      response.Valid,
		WalletID:   response.WalletID,
		HolderName: response.DisplayName,
	}, nil
}

// SubmitTransfer implements wallet.RemoteAPI.
func (client *Client) SubmitTransfer(ctx context.Context, token string, order wallet.TransferOrder) (wallet.Transaction, error) {
	payload := transferRequest{
		ReceiverWalletID: order.ReceiverWalletID,
		Amount:           order.Amount,
		Note:             order.Note,
		PrivateKey:       order.RecoveryKey,
	}
	var response transferResponse
	if err := client.do(ctx, http.MethodPost, "/api/transaction", token, payload, &response, authedOverrides()); err != nil {
		return wallet.Transaction{}, err
	}
	return response.Transaction, nil
}

func authedOverrides() map[int]error {
	return map[int]error{http.StatusUnauthorized: wallet.ErrSessionInvalid}
}

// do issues one request and decodes the response. A non-2xx status resolves
// through the per-call override table and otherwise surfaces as ErrRemote
// carrying the server-reported reason.
func (client *Client) do(ctx context.Context, method string, path string, token string, payload any, out any, overrides map[int]error) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", wallet.ErrRemote, err)
		}
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", wallet.ErrRemote, err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", wallet.ErrRemote, err)
	}
	defer func() { _ = response.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", wallet.ErrRemote, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := serverMessage(raw, response.StatusCode)
		if sentinel, found := overrides[response.StatusCode]; found {
			return statusError{status: response.StatusCode, err: fmt.Errorf("%w: %s", sentinel, message)}
		}
		return statusError{status: response.StatusCode, err: fmt.Errorf("%w: %s", wallet.ErrRemote, message)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", wallet.ErrRemote, err)
	}
	return nil
}

// statusError keeps the HTTP status attached to a mapped failure.
type statusError struct {
	status int
	err    error
}

func (failure statusError) Error() string {
	return failure.err.Error()
}

func (failure statusError) Unwrap() error {
	return failure.err
}

func errorStatus(err error) int {
	var failure statusError
	if errors.As(err, &failure) {
		return failure.status
	}
	return 0
}

func serverMessage(raw []byte, status int) string {
	var decoded errorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	return fmt.Sprintf("http status %d", status)
}
