package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
)

// Last-known market rates shipped with the deployment, used when the live
// quote provider is unreachable. Keyed by pair ("USDKRW", "XAUUSD").
type fallbackRatesFile struct {
	AsOf  string             `json:"as_of"`
	Rates map[string]float64 `json:"rates"`
}

var fallbackRates map[string]float64
var fallbackRatesLoaded bool

// LoadFallbackRates loads the rates file once at startup, after config.
// A missing file is an error the caller may choose to tolerate: the server
// still works, it just has no safety net when the quote provider is down.
func LoadFallbackRates(filePath string) error {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading fallback rates file '%s': %w", filePath, err)
	}

	var parsed fallbackRatesFile
	if err := json.Unmarshal(file, &parsed); err != nil {
		return fmt.Errorf("error unmarshalling fallback rates from '%s': %w", filePath, err)
	}

	fallbackRates = parsed.Rates
	fallbackRatesLoaded = true
	logger.L.Info("Fallback rates loaded", "path", filePath, "asOf", parsed.AsOf, "count", len(parsed.Rates))
	return nil
}

func fallbackRate(pair string) (decimal.Decimal, bool) {
	if !fallbackRatesLoaded {
		return decimal.Zero, false
	}
	rate, ok := fallbackRates[pair]
	if !ok || rate <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(rate), true
}
