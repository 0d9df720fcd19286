package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

func mustClient(test *testing.T, baseURL string) *Client {
	test.Helper()
	client, err := New(Config{BaseURL: baseURL})
	if err != nil {
		test.Fatalf("new client: %v", err)
	}
	return client
}

func writeJSON(test *testing.T, writer http.ResponseWriter, status int, payload any) {
	test.Helper()
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		test.Errorf("encode response: %v", err)
	}
}

func TestNewRejectsMalformedBaseURL(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "whitespace", url: "   "},
		{name: "no scheme", url: "localhost:8080"},
		{name: "no host", url: "http://"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if _, err := New(Config{BaseURL: testCase.url}); !errors.Is(err, wallet.ErrInvalidClientConfig) {
				test.Fatalf("expected config error, got %v", err)
			}
		})
	}
}

func TestAuthenticateDecodesSessionPayload(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/api/login" {
			test.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		var payload loginRequest
		if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
			test.Errorf("decode request: %v", err)
		}
		if payload.Email != "a@b.com" || payload.Password != "secret" {
			test.Errorf("unexpected payload: %+v", payload)
		}
		writeJSON(test, writer, http.StatusOK, authResponse{
			User:  wallet.Profile{WalletID: "WALLET-SENDER-0001", FullName: "Asad Test", Email: "a@b.com"},
			Token: "token-1",
		})
	}))
	defer server.Close()

	result, err := mustClient(test, server.URL).Authenticate(context.Background(), "a@b.com", "secret")
	if err != nil {
		test.Fatalf("authenticate: %v", err)
	}
	if result.Token != "token-1" || result.Profile.WalletID != "WALLET-SENDER-0001" {
		test.Fatalf("unexpected result: %+v", result)
	}
}

func TestStatusMappingPerEndpoint(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		status  int
		message string
		call    func(client *Client) error
		wantErr error
	}{
		{
			name: "login wrong password", status: http.StatusUnauthorized, message: "Invalid email or password",
			call: func(client *Client) error {
				_, err := client.Authenticate(context.Background(), "a@b.com", "wrong")
				return err
			},
			wantErr: wallet.ErrInvalidCredentials,
		},
		{
			name: "login unknown user", status: http.StatusNotFound, message: "User doesn't exist. Please sign up first.",
			call: func(client *Client) error {
				_, err := client.Authenticate(context.Background(), "a@b.com", "secret")
				return err
			},
			wantErr: wallet.ErrInvalidCredentials,
		},
		{
			name: "register unverified email", status: http.StatusUnauthorized, message: "Email not verified. Please verify your email first.",
			call: func(client *Client) error {
				_, err := client.CreateAccount(context.Background(), wallet.NewAccount{Email: "a@b.com"})
				return err
			},
			wantErr: wallet.ErrEmailNotVerified,
		},
		{
			name: "register taken email", status: http.StatusConflict, message: "User with this email already exists",
			call: func(client *Client) error {
				_, err := client.CreateAccount(context.Background(), wallet.NewAccount{Email: "a@b.com"})
				return err
			},
			wantErr: wallet.ErrEmailRegistered,
		},
		{
			name: "issue taken email", status: http.StatusConflict, message: "Email already registered",
			call: func(client *Client) error {
				_, err := client.IssueCode(context.Background(), "a@b.com")
				return err
			},
			wantErr: wallet.ErrEmailRegistered,
		},
		{
			name: "issue throttled", status: http.StatusTooManyRequests, message: "Please wait before requesting another code",
			call: func(client *Client) error {
				_, err := client.IssueCode(context.Background(), "a@b.com")
				return err
			},
			wantErr: wallet.ErrResendThrottled,
		},
		{
			name: "verify wrong code", status: http.StatusUnauthorized, message: "Invalid OTP",
			call: func(client *Client) error {
				return client.VerifyCode(context.Background(), "a@b.com", "000000")
			},
			wantErr: wallet.ErrInvalidCode,
		},
		{
			name: "verify expired code", status: http.StatusGone, message: "OTP has expired. Please request a new one.",
			call: func(client *Client) error {
				return client.VerifyCode(context.Background(), "a@b.com", "123456")
			},
			wantErr: wallet.ErrCodeExpired,
		},
		{
			name: "verify no challenge", status: http.StatusNotFound, message: "OTP not found. Please request a new one.",
			call: func(client *Client) error {
				return client.VerifyCode(context.Background(), "a@b.com", "123456")
			},
			wantErr: wallet.ErrNoActiveChallenge,
		},
		{
			name: "profile rejected token", status: http.StatusUnauthorized, message: "Unauthorized",
			call: func(client *Client) error {
				_, err := client.FetchProfile(context.Background(), "stale-token")
				return err
			},
			wantErr: wallet.ErrSessionInvalid,
		},
		{
			name: "submit rejected token", status: http.StatusUnauthorized, message: "Unauthorized",
			call: func(client *Client) error {
				_, err := client.SubmitTransfer(context.Background(), "stale-token", wallet.TransferOrder{})
				return err
			},
			wantErr: wallet.ErrSessionInvalid,
		},
		{
			name: "submit server rejection", status: http.StatusBadRequest, message: "insufficient balance",
			call: func(client *Client) error {
				_, err := client.SubmitTransfer(context.Background(), "token", wallet.TransferOrder{})
				return err
			},
			wantErr: wallet.ErrRemote,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writeJSON(test, writer, testCase.status, errorResponse{Error: testCase.message})
			}))
			defer server.Close()

			err := testCase.call(mustClient(test, server.URL))
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
			if err == nil || err.Error() == "" {
				test.Fatalf("expected server reason preserved")
			}
			if got := err.Error(); !strings.Contains(got, testCase.message) {
				test.Fatalf("server reason %q missing from %q", testCase.message, got)
			}
		})
	}
}

func TestValidateWalletNotFoundIsNegativeAnswer(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(test, writer, http.StatusNotFound, map[string]any{"valid": false, "message": "Invalid Wallet ID"})
	}))
	defer server.Close()

	check, err := mustClient(test, server.URL).ValidateWallet(context.Background(), "WALLET-UNKNOWN-01")
	if err != nil {
		test.Fatalf("validate wallet: %v", err)
	}
	if check.Valid || check.WalletID != "WALLET-UNKNOWN-01" {
		test.Fatalf("expected negative answer, got %+v", check)
	}
}

func TestValidateWalletDecodesHolderName(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/wallet/validate/WALLET-RECEIVER-01" {
			test.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(test, writer, http.StatusOK, validateWalletResponse{Valid: true, WalletID: "WALLET-RECEIVER-01", DisplayName: "Bilqis Test"})
	}))
	defer server.Close()

	check, err := mustClient(test, server.URL).ValidateWallet(context.Background(), "WALLET-RECEIVER-01")
	if err != nil {
		test.Fatalf("validate wallet: %v", err)
	}
	if !check.Valid || check.HolderName != "Bilqis Test" {
		test.Fatalf("unexpected check: %+v", check)
	}
}

func TestSubmitTransferSendsBearerTokenAndOrder(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.Header.Get("Authorization"); got != "Bearer token-1" {
			test.Errorf("unexpected authorization header: %q", got)
		}
		var payload transferRequest
		if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
			test.Errorf("decode request: %v", err)
		}
		if payload.ReceiverWalletID != "WALLET-RECEIVER-01" || payload.Amount != 40 || payload.PrivateKey != "recovery-key-0001" {
			test.Errorf("unexpected payload: %+v", payload)
		}
		writeJSON(test, writer, http.StatusCreated, transferResponse{
			Transaction: wallet.Transaction{Hash: "tx-hash-1", Amount: 40, Status: "confirmed"},
		})
	}))
	defer server.Close()

	order := wallet.TransferOrder{ReceiverWalletID: "WALLET-RECEIVER-01", Amount: 40, RecoveryKey: "recovery-key-0001"}
	transaction, err := mustClient(test, server.URL).SubmitTransfer(context.Background(), "token-1", order)
	if err != nil {
		test.Fatalf("submit transfer: %v", err)
	}
	if transaction.Hash != "tx-hash-1" || transaction.Status != "confirmed" {
		test.Fatalf("unexpected transaction: %+v", transaction)
	}
}

func TestIssueCodeEchoesDevCode(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(test, writer, http.StatusOK, otpResponse{Message: "OTP sent successfully", OTP: "123456", DevMode: true})
	}))
	defer server.Close()

	receipt, err := mustClient(test, server.URL).IssueCode(context.Background(), "a@b.com")
	if err != nil {
		test.Fatalf("issue code: %v", err)
	}
	if receipt.DevCode != "123456" {
		test.Fatalf("expected dev code echo, got %+v", receipt)
	}
}

func TestNetworkFailureMapsToRemoteError(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	if _, err := mustClient(test, server.URL).FetchBalance(context.Background(), "token"); !errors.Is(err, wallet.ErrRemote) {
		test.Fatalf("expected remote error, got %v", err)
	}
}

func TestExplorerReads(test *testing.T) {
	test.Parallel()
	block := Block{Index: 3, Hash: "block-hash-3", PreviousHash: "block-hash-2", TimestampUnixUTC: 1700000000}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/blockchain":
			writeJSON(test, writer, http.StatusOK, chainResponse{Chain: []Block{block}, Length: 1})
		case "/api/blockchain/stats":
			writeJSON(test, writer, http.StatusOK, ChainStats{TotalBlocks: 4, TotalTransactions: 9, TotalSupply: 5000})
		case "/api/block/latest", "/api/block/hash/block-hash-3", "/api/block/index/3":
			writeJSON(test, writer, http.StatusOK, blockResponse{Block: block})
		case "/api/transaction/tx-hash-1":
			writeJSON(test, writer, http.StatusOK, transactionResponse{Transaction: wallet.Transaction{Hash: "tx-hash-1"}})
		case "/api/transactions/pending":
			writeJSON(test, writer, http.StatusOK, transactionsResponse{Transactions: []wallet.Transaction{{Hash: "tx-pending"}}, Count: 1})
		case "/api/zakat/summary":
			writeJSON(test, writer, http.StatusOK, ZakatSummary{TotalDeducted: 12.5, Rate: 0.025})
		default:
			writeJSON(test, writer, http.StatusNotFound, errorResponse{Error: "not found"})
		}
	}))
	defer server.Close()
	client := mustClient(test, server.URL)

	chain, err := client.Chain(context.Background())
	if err != nil || len(chain) != 1 || chain[0].Hash != "block-hash-3" {
		test.Fatalf("chain: %v %+v", err, chain)
	}
	stats, err := client.Stats(context.Background())
	if err != nil || stats.TotalBlocks != 4 {
		test.Fatalf("stats: %v %+v", err, stats)
	}
	if _, err := client.LatestBlock(context.Background()); err != nil {
		test.Fatalf("latest block: %v", err)
	}
	if _, err := client.BlockByHash(context.Background(), "block-hash-3"); err != nil {
		test.Fatalf("block by hash: %v", err)
	}
	if _, err := client.BlockByIndex(context.Background(), 3); err != nil {
		test.Fatalf("block by index: %v", err)
	}
	if _, err := client.TransactionByHash(context.Background(), "tx-hash-1"); err != nil {
		test.Fatalf("transaction by hash: %v", err)
	}
	pending, err := client.PendingTransfers(context.Background())
	if err != nil || len(pending) != 1 {
		test.Fatalf("pending: %v %+v", err, pending)
	}
	summary, err := client.ZakatStanding(context.Background(), "token")
	if err != nil || summary.TotalDeducted != 12.5 {
		test.Fatalf("zakat summary: %v %+v", err, summary)
	}
	if _, err := client.BlockByHash(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		test.Fatalf("expected not found, got %v", err)
	}
}
