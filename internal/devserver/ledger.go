package devserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BarakahPay/bcwallet/internal/apiclient"
	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

type transferRequest struct {
	ReceiverWalletID string  `json:"receiverWalletId" binding:"required,min=10"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	Note             string  `json:"note" binding:"max=500"`
	PrivateKey       string  `json:"privateKey" binding:"required"`
}

func (server *Server) handleBalance(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	server.mu.Lock()
	balance := user.Balance
	walletID := user.WalletID
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"balance": balance, "walletId": walletID})
}

func (server *Server) handleValidateWallet(ctx *gin.Context) {
	walletID := ctx.Param("walletId")
	if walletID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Wallet ID required"})
		return
	}
	server.mu.Lock()
	holder := server.usersByWallet[walletID]
	server.mu.Unlock()
	if holder == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"valid": false, "message": "Invalid Wallet ID"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"walletId":    holder.WalletID,
		"displayName": holder.FullName,
	})
}

func (server *Server) handleSubmitTransfer(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var request transferRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if request.Amount < wallet.MinTransferAmount {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Minimum transaction amount is 0.01 BC"})
		return
	}
	if request.Amount > wallet.MaxTransferAmount {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Maximum transaction amount is 1,000,000 BC"})
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if request.PrivateKey != user.RecoveryKey {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recovery key"})
		return
	}
	receiver := server.usersByWallet[request.ReceiverWalletID]
	if receiver == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Receiver wallet not found"})
		return
	}
	if receiver.WalletID == user.WalletID {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cannot transfer to own wallet"})
		return
	}
	if request.Amount > user.Balance {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "insufficient balance"})
		return
	}

	now := server.nowFn()
	transaction := wallet.Transaction{
		Hash:             hashOf(user.WalletID + receiver.WalletID + uuid.NewString()),
		SenderWalletID:   user.WalletID,
		ReceiverWalletID: receiver.WalletID,
		Amount:           request.Amount,
		Note:             request.Note,
		Status:           "confirmed",
		TimestampUnixUTC: now,
	}
	user.Balance -= request.Amount
	receiver.Balance += request.Amount
	server.appendBlockLocked([]wallet.Transaction{transaction}, user.WalletID)
	server.transactions[transaction.Hash] = transaction

	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "Transaction successful",
		"transaction": transaction,
		"block":       server.chain[len(server.chain)-1],
	})
}

func (server *Server) handleTransactionHistory(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	server.mu.Lock()
	history := make([]wallet.Transaction, 0)
	for _, block := range server.chain {
		for _, transaction := range block.Transactions {
			if transaction.SenderWalletID == user.WalletID || transaction.ReceiverWalletID == user.WalletID {
				history = append(history, transaction)
			}
		}
	}
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"transactions": history, "count": len(history)})
}

func (server *Server) handleTransactionByHash(ctx *gin.Context) {
	hash := ctx.Param("hash")
	server.mu.Lock()
	transaction, found := server.transactions[hash]
	server.mu.Unlock()
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

func (server *Server) handlePendingTransactions(ctx *gin.Context) {
	// Transfers confirm synchronously here; the pool is always empty.
	ctx.JSON(http.StatusOK, gin.H{"transactions": []wallet.Transaction{}, "count": 0})
}

func (server *Server) handleChain(ctx *gin.Context) {
	server.mu.Lock()
	chain := append([]apiclient.Block(nil), server.chain...)
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"chain": chain, "length": len(chain)})
}

func (server *Server) handleStats(ctx *gin.Context) {
	server.mu.Lock()
	defer server.mu.Unlock()
	totalTransactions := 0
	for _, block := range server.chain {
		totalTransactions += len(block.Transactions)
	}
	var totalSupply float64
	for _, user := range server.usersByEmail {
		totalSupply += user.Balance
	}
	latest := server.chain[len(server.chain)-1]
	ctx.JSON(http.StatusOK, apiclient.ChainStats{
		TotalBlocks:         len(server.chain),
		TotalTransactions:   totalTransactions,
		PendingTransactions: 0,
		TotalSupply:         totalSupply,
		LatestBlock:         &latest,
	})
}

func (server *Server) handleBlockByHash(ctx *gin.Context) {
	hash := ctx.Param("hash")
	server.mu.Lock()
	defer server.mu.Unlock()
	for _, block := range server.chain {
		if block.Hash == hash {
			ctx.JSON(http.StatusOK, gin.H{"block": block})
			return
		}
	}
	ctx.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
}

func (server *Server) handleBlockByIndex(ctx *gin.Context) {
	index, err := strconv.ParseInt(ctx.Param("index"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block index"})
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	if index < 0 || index >= int64(len(server.chain)) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"block": server.chain[index]})
}

func (server *Server) handleLatestBlock(ctx *gin.Context) {
	server.mu.Lock()
	latest := server.chain[len(server.chain)-1]
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"block": latest})
}

func (server *Server) handleZakatHistory(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	server.mu.Lock()
	history := append([]apiclient.ZakatRecord(nil), user.ZakatRecords...)
	server.mu.Unlock()
	if history == nil {
		history = []apiclient.ZakatRecord{}
	}
	ctx.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

func (server *Server) handleZakatSummary(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	summary := apiclient.ZakatSummary{Rate: zakatRate}
	for _, record := range user.ZakatRecords {
		summary.TotalDeducted += record.Amount
		if record.DeductedAtUnixUTC > summary.LastDeductionUnixUTC {
			summary.LastDeductionUnixUTC = record.DeductedAtUnixUTC
		}
	}
	ctx.JSON(http.StatusOK, summary)
}

func (server *Server) handleZakatDeduct(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	amount := user.Balance * zakatRate
	if amount <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to deduct"})
		return
	}
	now := server.nowFn()
	transaction := wallet.Transaction{
		Hash:             hashOf(user.WalletID + "zakat" + uuid.NewString()),
		SenderWalletID:   user.WalletID,
		ReceiverWalletID: "ZAKAT-POOL",
		Amount:           amount,
		Status:           "confirmed",
		TimestampUnixUTC: now,
	}
	user.Balance -= amount
	user.ZakatRecords = append(user.ZakatRecords, apiclient.ZakatRecord{
		TransactionHash:   transaction.Hash,
		Amount:            amount,
		DeductedAtUnixUTC: now,
	})
	server.appendBlockLocked([]wallet.Transaction{transaction}, user.WalletID)
	server.transactions[transaction.Hash] = transaction
	ctx.JSON(http.StatusOK, gin.H{"message": "Zakat deduction processed successfully"})
}

func (server *Server) appendBlockLocked(transactions []wallet.Transaction, minerWalletID string) {
	previous := server.chain[len(server.chain)-1]
	block := apiclient.Block{
		Index:            previous.Index + 1,
		TimestampUnixUTC: server.nowFn(),
		Transactions:     transactions,
		PreviousHash:     previous.Hash,
		MinerWalletID:    minerWalletID,
	}
	block.Hash = hashOf(fmt.Sprintf("%d|%s|%d", block.Index, block.PreviousHash, block.TimestampUnixUTC) + uuid.NewString())
	server.chain = append(server.chain, block)
}

func hashOf(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
