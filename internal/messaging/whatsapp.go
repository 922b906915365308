package messaging

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"savane-boutik/internal/domain"
)

// Shop carries the merchant identity used in outbound messages
type Shop struct {
	Name           string
	WhatsAppNumber string
	Currency       string
}

// Promo is an optional incentive attached to a recovery message
type Promo struct {
	Code            string
	DiscountPercent int
}

// Line is a display line for an outbound order message
type Line struct {
	Name     string
	Quantity int
	Price    float64
}

// FormatAmount renders an amount with space-grouped thousands, the common
// notation for F CFA prices.
func FormatAmount(amount float64, currency string) string {
	raw := strconv.FormatInt(int64(math.Round(amount)), 10)

	negative := strings.HasPrefix(raw, "-")
	digits := strings.TrimPrefix(raw, "-")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}

	if currency == "" {
		currency = "F CFA"
	}
	return b.String() + " " + currency
}

// CheckoutMessage builds the pre-filled order message the customer sends to
// the shop on checkout handoff.
func CheckoutMessage(shop Shop, lines []Line, total float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s ! Je souhaite commander :\n\n", shop.Name)
	for _, line := range lines {
		fmt.Fprintf(&b, "- %s x%d (%s)\n", line.Name, line.Quantity, FormatAmount(line.Price*float64(line.Quantity), shop.Currency))
	}
	fmt.Fprintf(&b, "\nTotal : %s", FormatAmount(total, shop.Currency))
	return b.String()
}

// RecoveryMessage builds the outbound reminder for an abandoned cart,
// listing the snapshot lines so the message stays correct even after the
// catalog changed.
func RecoveryMessage(cart domain.AbandonedCart, shop Shop, promo *Promo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour ! Vous avez laissé des articles dans votre panier chez %s :\n\n", shop.Name)
	quantities := make(map[string]int, len(cart.Items))
	for _, item := range cart.Items {
		quantities[item.ProductID.String()] = item.Quantity
	}
	for _, detail := range cart.ProductDetails {
		quantity := quantities[detail.ID.String()]
		if quantity < 1 {
			quantity = 1
		}
		fmt.Fprintf(&b, "- %s x%d (%s)\n", detail.Name, quantity, FormatAmount(detail.Price*float64(quantity), shop.Currency))
	}
	fmt.Fprintf(&b, "\nTotal : %s", FormatAmount(cart.Total, shop.Currency))
	if promo != nil && promo.Code != "" {
		fmt.Fprintf(&b, "\n\nUtilisez le code %s pour -%d%% sur votre commande !", promo.Code, promo.DiscountPercent)
	}
	b.WriteString("\nRépondez à ce message pour finaliser votre commande.")
	return b.String()
}

// DeepLink builds a wa.me link opening a conversation with the given number
// and the message pre-filled.
func DeepLink(phone, message string) string {
	u := url.URL{
		Scheme:   "https",
		Host:     "wa.me",
		Path:     "/" + normalizePhone(phone),
		RawQuery: "text=" + url.QueryEscape(message),
	}
	return u.String()
}

// normalizePhone strips everything but digits; wa.me wants the number in
// international format without punctuation.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
