package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"rental-assistant/internal/domain"
)

// ContextMode records which kind of product context was injected.
type ContextMode string

const (
	ContextNone    ContextMode = "none"
	ContextDetail  ContextMode = "detail"
	ContextGeneral ContextMode = "general"
)

// ProductSource is the catalog view the context builder needs.
type ProductSource interface {
	All() []domain.Product
	ListAvailable() string
}

var productQueryKeywords = []string{
	"product", "appliance", "washer", "fridge", "oven", "machine",
	"features", "price", "cost", "availability", "stock", "rent",
	"about", "details", "info", "specs",
}

// buildProductContext decides what catalog text, if any, to put in front of
// the user's message.
func buildProductContext(message string, products ProductSource) (string, ContextMode) {
	lower := strings.ToLower(message)
	if !isProductQuery(lower) {
		return "", ContextNone
	}
	if p, ok := identifyProduct(lower, products.All()); ok {
		return productDetailContext(p), ContextDetail
	}
	return generalCatalogContext(products.ListAvailable()), ContextGeneral
}

func isProductQuery(lower string) bool {
	for _, kw := range productQueryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// identifyProduct returns the first product, in catalog order, whose name
// appears in the message or whose id is the message or one of its words.
func identifyProduct(lower string, products []domain.Product) (domain.Product, bool) {
	words := messageWords(lower)
	for _, p := range products {
		if strings.Contains(lower, strings.ToLower(p.Name)) {
			return p, true
		}
		id := strings.ToLower(p.ID)
		if id == lower {
			return p, true
		}
		if _, ok := words[id]; ok {
			return p, true
		}
	}
	return domain.Product{}, false
}

func messageWords(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

func productDetailContext(p domain.Product) string {
	return fmt.Sprintf("Here is specific information about the %s (Product ID: %s):\n", p.Name, p.ID) +
		fmt.Sprintf("Category: %s\n", p.Category) +
		fmt.Sprintf("Brand: %s\n", p.Brand) +
		fmt.Sprintf("Description: %s\n", p.Description) +
		fmt.Sprintf("Price per month: $%.2f\n", p.PricePerMonth) +
		fmt.Sprintf("Availability Status: %s\n", p.AvailabilityStatus) +
		fmt.Sprintf("Current Stock: %d units\n", p.StockCount) +
		fmt.Sprintf("Key Features: %s\n", strings.Join(p.Features, ", ")) +
		fmt.Sprintf("Customer Rating: %s out of 5 stars.\n\n", formatRating(p.Rating)) +
		"Please use this information to answer the user's question. " +
		"If the user asks about details not covered here, state that you only have the provided information.\n\n"
}

func generalCatalogContext(available string) string {
	return "You are an assistant for an appliance rental website. Here is a summary of some products we have available:\n" +
		available + "\n\n" +
		"Please answer general product questions based on this or ask for more specifics. " +
		"If the user asks about products not listed, state that you only have information about the products in your database.\n\n"
}

// formatRating keeps one decimal for whole numbers so 4 reads as "4.0".
func formatRating(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
