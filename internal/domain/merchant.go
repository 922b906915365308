package domain

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is a shop owner account
type Merchant struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ShopName       string    `json:"shopName"`
	WhatsAppNumber string    `json:"whatsappNumber"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RefreshToken is an issued refresh token for a merchant session
type RefreshToken struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"merchantId"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
	Revoked    bool      `json:"revoked"`
}
