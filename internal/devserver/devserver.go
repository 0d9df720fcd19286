package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/BarakahPay/bcwallet/internal/apiclient"
	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

const (
	defaultListenAddr  = ":8080"
	defaultSeedBalance = 1000.0
	defaultSigningKey  = "bcwallet-dev-signing-key"
	tokenTTLSeconds    = 24 * 60 * 60
	zakatRate          = 0.025
	claimsContextKey   = "auth_claims"
)

// Config carries the development server settings.
type Config struct {
	ListenAddr     string
	SigningKey     string
	AllowedOrigins []string
	SeedBalance    float64
	Now            func() int64
	Logger         *zap.Logger
}

// Server is an in-memory stand-in for the wallet service. It signs real
// tokens, enforces the service-side validation rules, and echoes issued
// verification codes the way the real service does without a mail transport.
// State lives in process memory and is lost on restart.
type Server struct {
	mu         sync.Mutex
	nowFn      func() int64
	logger     *zap.Logger
	signingKey []byte
	listenAddr string
	origins    []string
	seed       float64

	usersByEmail  map[string]*userRecord
	usersByWallet map[string]*userRecord
	challenges    map[string]*challengeRecord
	chain         []apiclient.Block
	transactions  map[string]wallet.Transaction
}

type userRecord struct {
	ID            string
	Email         string
	PasswordHash  []byte
	FullName      string
	CNIC          string
	WalletID      string
	RecoveryKey   string
	Balance       float64
	Beneficiaries []wallet.Beneficiary
	ZakatRecords  []apiclient.ZakatRecord
}

type challengeRecord struct {
	Code             string
	IssuedAtUnixUTC  int64
	ExpiresAtUnixUTC int64
	Verified         bool
}

// New validates the configuration and builds a Server with a genesis block.
func New(cfg Config) (*Server, error) {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().UTC().Unix() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	signingKey := cfg.SigningKey
	if signingKey == "" {
		signingKey = defaultSigningKey
	}
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}
	seed := cfg.SeedBalance
	if seed <= 0 {
		seed = defaultSeedBalance
	}
	server := &Server{
		nowFn:         nowFn,
		logger:        logger,
		signingKey:    []byte(signingKey),
		listenAddr:    listenAddr,
		origins:       cfg.AllowedOrigins,
		seed:          seed,
		usersByEmail:  make(map[string]*userRecord),
		usersByWallet: make(map[string]*userRecord),
		challenges:    make(map[string]*challengeRecord),
		transactions:  make(map[string]wallet.Transaction),
	}
	server.chain = []apiclient.Block{{
		Index:            0,
		TimestampUnixUTC: nowFn(),
		Transactions:     []wallet.Transaction{},
		PreviousHash:     "0",
		Hash:             hashOf("genesis"),
	}}
	return server, nil
}

// Router builds the gin engine with all routes mounted.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(server.origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     server.origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "bcwallet-devserver"})
	})

	api := router.Group("/api")
	{
		api.POST("/register", server.handleRegister)
		api.POST("/login", server.handleLogin)
		api.POST("/otp/generate", server.handleGenerateOTP)
		api.POST("/otp/verify", server.handleVerifyOTP)
		api.GET("/otp/check", server.handleCheckVerification)

		api.GET("/wallet/validate/:walletId", server.handleValidateWallet)

		api.GET("/blockchain", server.handleChain)
		api.GET("/blockchain/stats", server.handleStats)
		api.GET("/block/hash/:hash", server.handleBlockByHash)
		api.GET("/block/index/:index", server.handleBlockByIndex)
		api.GET("/block/latest", server.handleLatestBlock)
		api.GET("/transaction/:hash", server.handleTransactionByHash)
		api.GET("/transactions/pending", server.handlePendingTransactions)

		protected := api.Group("/")
		protected.Use(server.authMiddleware())
		{
			protected.GET("/profile", server.handleProfile)
			protected.PUT("/profile", server.handleUpdateProfile)
			protected.PUT("/beneficiaries", server.handleSetBeneficiaries)
			protected.GET("/balance", server.handleBalance)
			protected.POST("/transaction", server.handleSubmitTransfer)
			protected.GET("/transactions", server.handleTransactionHistory)
			protected.GET("/zakat/history", server.handleZakatHistory)
			protected.GET("/zakat/summary", server.handleZakatSummary)
			protected.POST("/zakat/deduct", server.handleZakatDeduct)
		}
	}
	return router
}

// Run serves until the context is canceled.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.listenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("devserver listening", zap.String("addr", server.listenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("devserver shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (server *Server) mintToken(userID string, email string) (string, error) {
	now := server.nowFn()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now,
		"exp":   now + tokenTTLSeconds,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(server.signingKey)
}

func (server *Server) authMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return server.signingKey, nil
		}, jwt.WithTimeFunc(func() time.Time { return time.Unix(server.nowFn(), 0).UTC() }))
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		email, _ := claims["email"].(string)
		server.mu.Lock()
		user := server.usersByEmail[strings.ToLower(email)]
		server.mu.Unlock()
		if user == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx.Set(claimsContextKey, user)
		ctx.Next()
	}
}

func currentUser(ctx *gin.Context) *userRecord {
	value, found := ctx.Get(claimsContextKey)
	if !found {
		return nil
	}
	user, _ := value.(*userRecord)
	return user
}

func (user *userRecord) profile() wallet.Profile {
	beneficiaries := append([]wallet.Beneficiary(nil), user.Beneficiaries...)
	if beneficiaries == nil {
		beneficiaries = []wallet.Beneficiary{}
	}
	return wallet.Profile{
		WalletID:      user.WalletID,
		FullName:      user.FullName,
		Email:         user.Email,
		CNIC:          user.CNIC,
		Beneficiaries: beneficiaries,
	}
}
