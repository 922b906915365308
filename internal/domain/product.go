package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus marks whether a product can currently be sold
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Valid reports whether the status is one of the known values
func (s ProductStatus) Valid() bool {
	return s == ProductStatusActive || s == ProductStatusInactive
}

// Product represents a product in a merchant's catalog
type Product struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Images      []string      `json:"images"`
	Price       float64       `json:"price"`
	Stock       int           `json:"stock"`
	Status      ProductStatus `json:"status"`
	Category    string        `json:"category"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Purchasable reports whether the product may be added to a cart
func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusActive && p.Stock > 0
}

// PrimaryImage returns the first image URL, or "" when none is set
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductPatch is a field mask for partial product updates. Nil fields
// are left untouched by Apply.
type ProductPatch struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Images      *[]string      `json:"images,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Stock       *int           `json:"stock,omitempty"`
	Status      *ProductStatus `json:"status,omitempty"`
	Category    *string        `json:"category,omitempty"`
}

// Apply merges the set fields of the patch into the product and bumps
// its updated timestamp.
func (patch ProductPatch) Apply(p *Product, now time.Time) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Images != nil {
		p.Images = append([]string(nil), (*patch.Images)...)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	p.UpdatedAt = now
}
