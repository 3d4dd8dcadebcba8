package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "hello world", StripUnprintable("hello\x00 world\x1b"))
	assert.Equal(t, "tabs\tstay", StripUnprintable("tabs\tstay"))
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol("  aapl "))
	assert.Equal(t, "005930.KS", NormalizeSymbol("005930.ks"))
	assert.Equal(t, "BRK-B", NormalizeSymbol("brk-b"))
	assert.Equal(t, "KRW=X", NormalizeSymbol("krw=x"))
}

func TestNormalizeSymbol_TruncatesAtFirstInvalidRune(t *testing.T) {
	// Trailing garbage must not collapse into a different-looking symbol.
	assert.Equal(t, "AAPL", NormalizeSymbol("AAPL;drop table"))
	assert.Equal(t, "AAPL", NormalizeSymbol("aapl us"))
	assert.Equal(t, "", NormalizeSymbol("!AAPL"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my broker", SanitizeName("  my broker \x00"))
}
