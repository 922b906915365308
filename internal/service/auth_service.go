package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrMerchantExists     = errors.New("merchant account already exists")
	ErrMerchantNotFound   = errors.New("merchant account not found")
)

// Claims represents the JWT claims issued to a merchant session
type Claims struct {
	MerchantID uuid.UUID `json:"merchant_id"`
	Role       string    `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles the merchant account and its sessions. The account
// lives under the `user` storage key; issued refresh tokens under
// `refreshTokens`.
type AuthService struct {
	kv        storage.KV
	jwtSecret string
}

// NewAuthService creates a new AuthService over the durable medium
func NewAuthService(kv storage.KV, jwtSecret string) *AuthService {
	return &AuthService{kv: kv, jwtSecret: jwtSecret}
}

// Register creates the merchant account with a hashed password. Each shop
// deployment has exactly one merchant.
func (s *AuthService) Register(ctx context.Context, email, password, shopName, whatsappNumber string) (*domain.Merchant, error) {
	existing, err := s.Merchant(ctx)
	if err != nil && err != ErrMerchantNotFound {
		return nil, fmt.Errorf("failed to check existing merchant: %w", err)
	}
	if existing != nil {
		return nil, ErrMerchantExists
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	merchant := &domain.Merchant{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   string(hashedBytes),
		ShopName:       shopName,
		WhatsAppNumber: whatsappNumber,
		Role:           "merchant",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.saveMerchant(ctx, merchant); err != nil {
		return nil, fmt.Errorf("failed to save merchant: %w", err)
	}

	return merchant, nil
}

// Login authenticates the merchant and returns a token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, merchant *domain.Merchant, err error) {
	merchant, err = s.Merchant(ctx)
	if err != nil {
		if err == ErrMerchantNotFound {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to load merchant: %w", err)
	}

	if merchant.Email != email {
		return "", "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(merchant.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err = s.generateAccessToken(merchant)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, merchant)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, merchant, nil
}

// Logout revokes the refresh token. Revoking an unknown token is treated
// as already logged out.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokens, err := s.loadTokens(ctx)
	if err != nil {
		return err
	}

	for i := range tokens {
		if tokens[i].Token == refreshToken {
			if tokens[i].Revoked {
				return nil
			}
			tokens[i].Revoked = true
			return s.saveTokens(ctx, tokens)
		}
	}
	return nil
}

// RefreshToken issues a new access token for a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	tokens, err := s.loadTokens(ctx)
	if err != nil {
		return "", err
	}

	var found *domain.RefreshToken
	for i := range tokens {
		if tokens[i].Token == refreshTokenString {
			found = &tokens[i]
			break
		}
	}
	if found == nil || found.Revoked {
		return "", ErrInvalidToken
	}
	if time.Now().After(found.ExpiresAt) {
		return "", ErrTokenExpired
	}

	merchant, err := s.Merchant(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load merchant: %w", err)
	}
	if merchant.ID != found.MerchantID {
		return "", ErrInvalidToken
	}

	return s.generateAccessToken(merchant)
}

// ValidateToken parses an access token and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Merchant loads the merchant account
func (s *AuthService) Merchant(ctx context.Context) (*domain.Merchant, error) {
	raw, err := s.kv.Get(ctx, storage.KeyUser)
	if err == storage.ErrKeyNotFound {
		return nil, ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}

	var merchant domain.Merchant
	if err := json.Unmarshal([]byte(raw), &merchant); err != nil {
		return nil, fmt.Errorf("failed to decode merchant: %w", err)
	}
	return &merchant, nil
}

func (s *AuthService) saveMerchant(ctx context.Context, merchant *domain.Merchant) error {
	data, err := json.Marshal(merchant)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.KeyUser, string(data))
}

func (s *AuthService) generateAccessToken(merchant *domain.Merchant) (string, error) {
	expirationTime := time.Now().Add(AccessTokenExpiration)
	claims := &Claims{
		MerchantID: merchant.ID,
		Role:       merchant.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, merchant *domain.Merchant) (string, error) {
	tokens, err := s.loadTokens(ctx)
	if err != nil {
		return "", err
	}

	tokenString := uuid.New().String()
	tokens = append(tokens, domain.RefreshToken{
		ID:         uuid.New(),
		MerchantID: merchant.ID,
		Token:      tokenString,
		ExpiresAt:  time.Now().Add(RefreshTokenExpiration),
		CreatedAt:  time.Now(),
		Revoked:    false,
	})

	if err := s.saveTokens(ctx, tokens); err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *AuthService) loadTokens(ctx context.Context) ([]domain.RefreshToken, error) {
	raw, err := s.kv.Get(ctx, storage.KeyRefreshTokens)
	if err == storage.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tokens []domain.RefreshToken
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode refresh tokens: %w", err)
	}
	return tokens, nil
}

func (s *AuthService) saveTokens(ctx context.Context, tokens []domain.RefreshToken) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.KeyRefreshTokens, string(data))
}
