package services

import (
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

func TestQuoteService_CrumbSafeForConcurrentUse(t *testing.T) {
	s := &quoteServiceImpl{cache: cache.New(time.Minute, time.Minute)}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.setCrumb("abc123")
		}()
		go func() {
			defer wg.Done()
			_ = s.currentCrumb()
		}()
	}
	wg.Wait()

	assert.Equal(t, "abc123", s.currentCrumb())
}

func TestQuoteCacheKey(t *testing.T) {
	assert.Equal(t, "quote:AAPL", quoteCacheKey("AAPL"))
}
