package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"CoolerPoker/internal/utils"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var ErrBadSignature = errors.New("bad signature")

type LoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
}

type Handler struct {
	store    NonceStore
	secret   []byte
	nonceTTL time.Duration
	tokenTTL time.Duration
	log      *log.Logger
}

// 工厂方法：创建 handler
func NewHandler(store NonceStore, secret []byte, tokenTTL time.Duration) *Handler {
	return &Handler{
		store:    store,
		secret:   secret,
		nonceTTL: 5 * time.Minute,
		tokenTTL: tokenTTL,
		log:      utils.Log.WithPrefix("auth"),
	}
}

// Register 挂 /auth 路由
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/nonce", h.Nonce)
	r.POST("/nonce", h.Nonce)
	r.POST("/login", h.Login)
}

// LoginMessage 前端 personal_sign 的原文
func LoginMessage(nonce string) string {
	return "Sign this message to authenticate with CoolerPoker. Nonce: " + nonce
}

// RecoverAddress 按 MetaMask personal_sign 规则恢复签名者地址
func RecoverAddress(msg, signature string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrBadSignature
	}
	// 修正 V 值
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// IssueToken HS256，sub 为钱包地址
func IssueToken(secret []byte, address string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	// 检查 nonce 是否有效（只允许一次）
	ok, err := h.store.Consume(c.Request.Context(), req.Nonce)
	if err != nil {
		h.log.Error("consume nonce failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "nonce store unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid nonce"})
		return
	}

	// -------------------
	// 恢复签名者地址 (核心)
	// -------------------
	recovered, err := RecoverAddress(LoginMessage(req.Nonce), req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verify failed"})
		return
	}
	if !strings.EqualFold(recovered.Hex(), req.Address) {
		h.log.Warn("signature mismatch", "claimed", req.Address, "recovered", recovered.Hex())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature mismatch"})
		return
	}

	// -----------------------------
	// ✓ 签名验证成功 → 生成 JWT
	// -----------------------------
	jwtStr, err := IssueToken(h.secret, recovered.Hex(), h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt generation failed"})
		return
	}
	h.log.Info("login", "address", recovered.Hex())

	c.JSON(http.StatusOK, gin.H{"jwt": jwtStr})
}
