package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

var cnicPattern = regexp.MustCompile(`^[0-9]{5}-[0-9]{7}-[0-9]$`)

type registerRequest struct {
	FullName string `json:"fullName" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email"`
	CNIC     string `json:"cnic" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type updateProfileRequest struct {
	FullName string `json:"fullName"`
	CNIC     string `json:"cnic"`
}

type setBeneficiariesRequest struct {
	Beneficiaries []wallet.Beneficiary `json:"beneficiaries"`
}

func (server *Server) handleGenerateOTP(ctx *gin.Context) {
	var request otpRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(request.Email)

	server.mu.Lock()
	defer server.mu.Unlock()
	if _, exists := server.usersByEmail[email]; exists {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	now := server.nowFn()
	if challenge, exists := server.challenges[email]; exists {
		if now < challenge.IssuedAtUnixUTC+wallet.ResendCooldownSeconds && now < challenge.ExpiresAtUnixUTC {
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait before requesting another code"})
			return
		}
	}
	code, err := randomCode(6)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate OTP"})
		return
	}
	server.challenges[email] = &challengeRecord{
		Code:             code,
		IssuedAtUnixUTC:  now,
		ExpiresAtUnixUTC: now + wallet.VerificationTTLSeconds,
	}

	// No mail transport: the code travels in the response, as the real
	// service does in development mode.
	ctx.JSON(http.StatusOK, gin.H{
		"message":  "OTP sent successfully",
		"otp":      code,
		"dev_mode": true,
	})
}

func (server *Server) handleVerifyOTP(ctx *gin.Context) {
	var request verifyOTPRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(request.Email)

	server.mu.Lock()
	defer server.mu.Unlock()
	challenge, exists := server.challenges[email]
	if !exists {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "OTP not found. Please request a new one."})
		return
	}
	if server.nowFn() >= challenge.ExpiresAtUnixUTC {
		delete(server.challenges, email)
		ctx.JSON(http.StatusGone, gin.H{"error": "OTP has expired. Please request a new one."})
		return
	}
	if challenge.Code != request.OTP {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid OTP"})
		return
	}
	challenge.Verified = true
	ctx.JSON(http.StatusOK, gin.H{"message": "Email verified successfully", "verified": true})
}

func (server *Server) handleCheckVerification(ctx *gin.Context) {
	email := strings.ToLower(ctx.Query("email"))
	if email == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	challenge, exists := server.challenges[email]
	verified := exists && challenge.Verified && server.nowFn() < challenge.ExpiresAtUnixUTC
	ctx.JSON(http.StatusOK, gin.H{"verified": verified})
}

func (server *Server) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if !cnicPattern.MatchString(request.CNIC) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CNIC format. Expected format: 12345-1234567-1"})
		return
	}
	email := strings.ToLower(request.Email)

	server.mu.Lock()
	defer server.mu.Unlock()
	challenge, exists := server.challenges[email]
	if !exists || !challenge.Verified {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Email not verified. Please verify your email first."})
		return
	}
	if _, taken := server.usersByEmail[email]; taken {
		ctx.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}
	recoveryKey, err := randomHex(64)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate recovery key"})
		return
	}
	user := &userRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     request.FullName,
		CNIC:         request.CNIC,
		WalletID:     "BC-" + strings.ToUpper(uuid.NewString()),
		RecoveryKey:  recoveryKey,
		Balance:      server.seed,
	}
	server.usersByEmail[email] = user
	server.usersByWallet[user.WalletID] = user
	delete(server.challenges, email)

	token, err := server.mintToken(user.ID, user.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"user":       user.profile(),
		"token":      token,
		"privateKey": recoveryKey,
		"message":    "User registered successfully. Please save your recovery key securely!",
	})
}

func (server *Server) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(request.Email)

	server.mu.Lock()
	user := server.usersByEmail[email]
	server.mu.Unlock()
	if user == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User doesn't exist. Please sign up first."})
		return
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(request.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	token, err := server.mintToken(user.ID, user.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"user":    user.profile(),
		"token":   token,
		"message": "Login successful",
	})
}

func (server *Server) handleProfile(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	server.mu.Lock()
	profile := user.profile()
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"user": profile})
}

func (server *Server) handleUpdateProfile(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var request updateProfileRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(request.FullName) == "" && strings.TrimSpace(request.CNIC) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}
	if request.CNIC != "" && !cnicPattern.MatchString(request.CNIC) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CNIC format. Expected format: 12345-1234567-1"})
		return
	}

	server.mu.Lock()
	if request.FullName != "" {
		user.FullName = request.FullName
	}
	if request.CNIC != "" {
		user.CNIC = request.CNIC
	}
	profile := user.profile()
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": profile})
}

func (server *Server) handleSetBeneficiaries(ctx *gin.Context) {
	user := currentUser(ctx)
	if user == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var request setBeneficiariesRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var total float64
	for _, entry := range request.Beneficiaries {
		if strings.TrimSpace(entry.Name) == "" || strings.TrimSpace(entry.Relationship) == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Beneficiary name and relationship are required"})
			return
		}
		if entry.Percentage <= 0 || entry.Percentage > 100 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Beneficiary percentage must be in (0, 100]"})
			return
		}
		total += entry.Percentage
	}
	if total > 100 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Beneficiary allocation exceeds 100 percent"})
		return
	}

	server.mu.Lock()
	user.Beneficiaries = append([]wallet.Beneficiary(nil), request.Beneficiaries...)
	list := user.profile().Beneficiaries
	server.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{"message": "Beneficiaries updated successfully", "beneficiaries": list})
}

func randomCode(length int) (string, error) {
	const digits = "0123456789"
	code := make([]byte, length)
	for position := range code {
		index, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[position] = digits[index.Int64()]
	}
	return string(code), nil
}

func randomHex(bytes int) (string, error) {
	raw := make([]byte, bytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
