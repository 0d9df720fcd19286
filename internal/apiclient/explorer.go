package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

// Block is one mined block on the chain as reported by the explorer surface.
type Block struct {
	Index            int64                `json:"index"`
	TimestampUnixUTC int64                `json:"timestamp"`
	Transactions     []wallet.Transaction `json:"transactions"`
	PreviousHash     string               `json:"previousHash"`
	Hash             string               `json:"hash"`
	Nonce            int64                `json:"nonce"`
	MinerWalletID    string               `json:"minerWalletId,omitempty"`
}

// ChainStats is the aggregate explorer view.
type ChainStats struct {
	TotalBlocks         int     `json:"totalBlocks"`
	TotalTransactions   int     `json:"totalTransactions"`
	PendingTransactions int     `json:"pendingTransactions"`
	TotalSupply         float64 `json:"totalSupply"`
	LatestBlock         *Block  `json:"latestBlock,omitempty"`
}

// ZakatRecord is one automatic deduction applied to the account.
type ZakatRecord struct {
	TransactionHash   string  `json:"transactionHash"`
	Amount            float64 `json:"amount"`
	DeductedAtUnixUTC int64   `json:"deductedAt"`
}

// ZakatSummary aggregates the account's deductions.
type ZakatSummary struct {
	TotalDeducted        float64 `json:"totalDeducted"`
	MonthlyDeducted      float64 `json:"monthlyDeducted"`
	LastDeductionUnixUTC int64   `json:"lastDeduction"`
	Rate                 float64 `json:"rate"`
}

// Chain returns the full block listing.
func (client *Client) Chain(ctx context.Context) ([]Block, error) {
	var response chainResponse
	if err := client.do(ctx, http.MethodGet, "/api/blockchain", "", nil, &response, nil); err != nil {
		return nil, err
	}
	return response.Chain, nil
}

// Stats returns the aggregate chain statistics.
func (client *Client) Stats(ctx context.Context) (ChainStats, error) {
	var response ChainStats
	if err := client.do(ctx, http.MethodGet, "/api/blockchain/stats", "", nil, &response, nil); err != nil {
		return ChainStats{}, err
	}
	return response, nil
}

// BlockByHash looks a block up by its hash.
func (client *Client) BlockByHash(ctx context.Context, hash string) (Block, error) {
	var response blockResponse
	path := "/api/block/hash/" + url.PathEscape(hash)
	if err := client.do(ctx, http.MethodGet, path, "", nil, &response, notFoundOverride()); err != nil {
		return Block{}, err
	}
	return response.Block, nil
}

// BlockByIndex looks a block up by its position on the chain.
func (client *Client) BlockByIndex(ctx context.Context, index int64) (Block, error) {
	var response blockResponse
	path := fmt.Sprintf("/api/block/index/%d", index)
	if err := client.do(ctx, http.MethodGet, path, "", nil, &response, notFoundOverride()); err != nil {
		return Block{}, err
	}
	return response.Block, nil
}

// LatestBlock returns the chain head.
func (client *Client) LatestBlock(ctx context.Context) (Block, error) {
	var response blockResponse
	if err := client.do(ctx, http.MethodGet, "/api/block/latest", "", nil, &response, notFoundOverride()); err != nil {
		return Block{}, err
	}
	return response.Block, nil
}

// TransactionByHash looks a confirmed transaction up by its hash.
func (client *Client) TransactionByHash(ctx context.Context, hash string) (wallet.Transaction, error) {
	var response transactionResponse
	path := "/api/transaction/" + url.PathEscape(hash)
	if err := client.do(ctx, http.MethodGet, path, "", nil, &response, notFoundOverride()); err != nil {
		return wallet.Transaction{}, err
	}
	return response.Transaction, nil
}

// PendingTransfers returns the unconfirmed pool.
func (client *Client) PendingTransfers(ctx context.Context) ([]wallet.Transaction, error) {
	var response transactionsResponse
	if err := client.do(ctx, http.MethodGet, "/api/transactions/pending", "", nil, &response, nil); err != nil {
		return nil, err
	}
	return response.Transactions, nil
}

// History returns the authenticated account's transfer history.
func (client *Client) History(ctx context.Context, token string) ([]wallet.Transaction, error) {
	var response transactionsResponse
	if err := client.do(ctx, http.MethodGet, "/api/transactions", token, nil, &response, authedOverrides()); err != nil {
		return nil, err
	}
	return response.Transactions, nil
}

// ZakatHistory returns the account's deduction records.
func (client *Client) ZakatHistory(ctx context.Context, token string) ([]ZakatRecord, error) {
	var response zakatHistoryResponse
	if err := client.do(ctx, http.MethodGet, "/api/zakat/history", token, nil, &response, authedOverrides()); err != nil {
		return nil, err
	}
	return response.History, nil
}

// ZakatStanding returns the account's aggregate deduction summary.
func (client *Client) ZakatStanding(ctx context.Context, token string) (ZakatSummary, error) {
	var response ZakatSummary
	if err := client.do(ctx, http.MethodGet, "/api/zakat/summary", token, nil, &response, authedOverrides()); err != nil {
		return ZakatSummary{}, err
	}
	return response, nil
}

func notFoundOverride() map[int]error {
	return map[int]error{http.StatusNotFound: ErrNotFound}
}
