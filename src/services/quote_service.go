package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/models"
	"golang.org/x/net/publicsuffix"
)

const (
	fxSymbol   = "KRW=X" // USD/KRW
	goldSymbol = "GC=F"  // gold futures, USD per troy ounce

	fxCacheKey   = "fx:USDKRW"
	goldCacheKey = "gold:spot"

	quoteUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// quoteServiceImpl fetches market data from Yahoo Finance. Quotes are held
// in a TTL cache owned by this service; the TTL is injected so tests and
// deployments can tune staleness without touching the fetch path.
type quoteServiceImpl struct {
	httpClient http.Client
	cache      *cache.Cache

	// crumb is refreshed at request time when the provider session expires,
	// while other requests read it, so access goes through the mutex.
	mu    sync.RWMutex
	crumb string
}

func (s *quoteServiceImpl) currentCrumb() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.crumb
}

func (s *quoteServiceImpl) setCrumb(crumb string) {
	s.mu.Lock()
	s.crumb = crumb
	s.mu.Unlock()
}

// NewQuoteService builds the client with a cookie jar and fetches Yahoo's
// crumb. A failed crumb fetch is logged, not fatal: snapshots degrade to
// the fallback rates file until the session recovers.
func NewQuoteService(cacheTTL, httpTimeout time.Duration) QuoteService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	s := &quoteServiceImpl{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: httpTimeout,
		},
		cache: cache.New(cacheTTL, 2*cacheTTL),
	}

	if err := s.initializeSession(); err != nil {
		logger.L.Error("Failed to initialize quote provider session. Price fetching may fail.", "error", err)
	}
	return s
}

// initializeSession visits a quote page to collect cookies and the crumb
// the v7 quote endpoint requires.
func (s *quoteServiceImpl) initializeSession() error {
	logger.L.Info("Initializing quote provider session...")
	req, err := http.NewRequest("GET", "https://finance.yahoo.com/quote/005930.KS", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make initial request to quote provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read quote provider response body: %w", err)
	}

	re := regexp.MustCompile(`"CrumbStore":{"crumb":"(.*?)"}`)
	matches := re.FindStringSubmatch(string(body))
	if len(matches) < 2 {
		return fmt.Errorf("could not find crumb in quote provider response; the page structure may have changed")
	}

	s.setCrumb(matches[1])
	logger.L.Info("Quote provider crumb obtained.")
	return nil
}

// GetSnapshot assembles the price inputs for one valuation: USD/KRW, gold
// spot, and quotes for the requested equity symbols. Equity symbols that
// cannot be quoted are left out of the map; only a missing FX rate makes
// the snapshot itself unusable, since without it nothing non-KRW can be
// valued at all.
func (s *quoteServiceImpl) GetSnapshot(ctx context.Context, symbols []string) (models.PriceSnapshot, error) {
	snapshot := models.PriceSnapshot{
		EquityQuotes: make(map[string]models.EquityQuote),
	}

	wanted := make([]string, 0, len(symbols)+2)
	if _, found := s.cache.Get(fxCacheKey); !found {
		wanted = append(wanted, fxSymbol)
	}
	if _, found := s.cache.Get(goldCacheKey); !found {
		wanted = append(wanted, goldSymbol)
	}
	for _, symbol := range symbols {
		if cached, found := s.cache.Get(quoteCacheKey(symbol)); found {
			snapshot.EquityQuotes[symbol] = cached.(models.EquityQuote)
		} else {
			wanted = append(wanted, symbol)
		}
	}

	if len(wanted) > 0 {
		fetched, err := s.fetchQuotes(ctx, wanted)
		if err != nil {
			logger.L.Warn("Quote fetch failed, relying on cache and fallback rates", "error", err)
		}
		for symbol, quote := range fetched {
			switch symbol {
			case fxSymbol:
				s.cache.Set(fxCacheKey, quote.Price, cache.DefaultExpiration)
			case goldSymbol:
				s.cache.Set(goldCacheKey, quote.Price, cache.DefaultExpiration)
			default:
				s.cache.Set(quoteCacheKey(symbol), quote, cache.DefaultExpiration)
				snapshot.EquityQuotes[symbol] = quote
			}
		}
	}

	if cached, found := s.cache.Get(fxCacheKey); found {
		snapshot.FxRate = cached.(decimal.Decimal)
	} else if rate, ok := fallbackRate("USDKRW"); ok {
		logger.L.Warn("Using fallback USD/KRW rate", "rate", rate)
		snapshot.FxRate = rate
	} else {
		return models.PriceSnapshot{}, fmt.Errorf("no USD/KRW rate available: live fetch failed and no fallback configured")
	}

	if cached, found := s.cache.Get(goldCacheKey); found {
		snapshot.GoldSpotPrice = cached.(decimal.Decimal)
	} else if rate, ok := fallbackRate("XAUUSD"); ok {
		logger.L.Warn("Using fallback gold spot price", "price", rate)
		snapshot.GoldSpotPrice = rate
	} else {
		// Gold holdings will be valued at zero this round; better a stale
		// dashboard than no dashboard.
		logger.L.Error("No gold spot price available; gold positions valued at zero for this snapshot")
		snapshot.GoldSpotPrice = decimal.Zero
	}

	return snapshot, nil
}

// fetchQuotes batches all wanted symbols into one v7 quote call.
func (s *quoteServiceImpl) fetchQuotes(ctx context.Context, symbols []string) (map[string]models.EquityQuote, error) {
	crumb := s.currentCrumb()
	if crumb == "" {
		logger.L.Warn("Quote provider crumb is missing, attempting to re-initialize session.")
		if err := s.initializeSession(); err != nil {
			return nil, fmt.Errorf("failed to re-initialize quote provider session: %w", err)
		}
		crumb = s.currentCrumb()
	}

	quoteURL := fmt.Sprintf("https://query2.finance.yahoo.com/v7/finance/quote?symbols=%s&crumb=%s",
		strings.Join(symbols, ","), crumb)
	req, err := http.NewRequestWithContext(ctx, "GET", quoteURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call quote API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote API returned non-OK status %d. Body: %s", resp.StatusCode, string(bodyBytes))
	}

	var quoteData yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteData); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if quoteData.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote API returned an error for symbols %v", symbols)
	}

	quotes := make(map[string]models.EquityQuote, len(quoteData.QuoteResponse.Result))
	for _, result := range quoteData.QuoteResponse.Result {
		quotes[result.Symbol] = models.EquityQuote{
			Price:    decimal.NewFromFloat(result.RegularMarketPrice),
			Currency: strings.ToUpper(result.Currency),
		}
	}
	return quotes, nil
}

func quoteCacheKey(symbol string) string {
	return "quote:" + symbol
}
