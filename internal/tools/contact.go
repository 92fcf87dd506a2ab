package tools

import (
	"context"
	"strings"
)

// Brand is the company contact data shown to users.
type Brand struct {
	Name       string
	Phone      string
	SiteURL    string
	BookingURL string
	AppURL     string
	Email      string
}

// DefaultBrand returns the Taxi Express Patras details.
func DefaultBrand() Brand {
	return Brand{
		Name:       "Taxi Express Πάτρας",
		Phone:      "2610 450000",
		SiteURL:    "https://taxipatras.com",
		BookingURL: "https://booking.infoxoros.com/",
		AppURL:     "https://grtaxi.eu/OsiprERdfdfgfDcfrpod",
		Email:      "customers@taxipatras.com",
	}
}

// ContactCard renders the brand contact lines.
func ContactCard(b Brand) string {
	lines := []string{"📞 Τηλέφωνο: " + b.Phone, "🌐 Ιστότοπος: " + b.SiteURL}
	if b.Email != "" {
		lines = append(lines, "✉️ Email: "+b.Email)
	}
	if b.BookingURL != "" {
		lines = append(lines, "🧾 Online κράτηση: "+b.BookingURL)
	}
	if b.AppURL != "" {
		lines = append(lines, "📱 Εφαρμογή: "+b.AppURL)
	}
	lines = append(lines, "🚖 Εναλλακτικά: Καλέστε μας στο "+strings.ReplaceAll(b.Phone, " ", ""))
	return strings.Join(lines, "\n")
}

// ContactTool answers with the contact card.
type ContactTool struct {
	Brand Brand
}

func (c ContactTool) Name() string { return "taxi_contact" }

func (c ContactTool) Invoke(_ context.Context, _ Request) (Result, error) {
	return Result{Reply: ContactCard(c.Brand)}, nil
}
