package apiclient

import "github.com/BarakahPay/bcwallet/pkg/wallet"

// Wire payloads for the wallet service. Field names follow the service's
// camelCase JSON contract.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	CNIC     string `json:"cnic"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type updateProfileRequest struct {
	FullName string `json:"fullName,omitempty"`
	CNIC     string `json:"cnic,omitempty"`
}

type setBeneficiariesRequest struct {
	Beneficiaries []wallet.Beneficiary `json:"beneficiaries"`
}

type transferRequest struct {
	ReceiverWalletID string  `json:"receiverWalletId"`
	Amount           float64 `json:"amount"`
	Note             string  `json:"note,omitempty"`
	PrivateKey       string  `json:"privateKey"`
}

type authResponse struct {
	User       wallet.Profile `json:"user"`
	Token      string         `json:"token"`
	PrivateKey string         `json:"privateKey,omitempty"`
	Message    string         `json:"message"`
}

type otpResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
	DevMode bool   `json:"dev_mode,omitempty"`
}

type profileResponse struct {
	User wallet.Profile `json:"user"`
}

type balanceResponse struct {
	Balance  float64 `json:"balance"`
	WalletID string  `json:"walletId"`
}

type validateWalletResponse struct {
	Valid       bool   `json:"valid"`
	WalletID    string `json:"walletId"`
	DisplayName string `json:"displayName"`
}

type transferResponse struct {
	Message     string             `json:"message"`
	Transaction wallet.Transaction `json:"transaction"`
}

type transactionsResponse struct {
	Transactions []wallet.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
}

type transactionResponse struct {
	Transaction wallet.Transaction `json:"transaction"`
}

type chainResponse struct {
	Chain  []Block `json:"chain"`
	Length int     `json:"length"`
}

type blockResponse struct {
	Block Block `json:"block"`
}

type zakatHistoryResponse struct {
	History []ZakatRecord `json:"history"`
	Count   int           `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}
