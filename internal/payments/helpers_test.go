package payments

import (
	"strings"
	"testing"

	"github.com/communityhub/marketplace-backend/internal/pricing"
	"github.com/shopspring/decimal"
)

func stringsUpper(s string) string {
	return strings.ToUpper(s)
}

func mustEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	engine, err := pricing.NewEngine(decimal.RequireFromString("0.18"))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}
