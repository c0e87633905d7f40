package retailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	for _, name := range Supported() {
		assert.True(t, IsSupported(name))
	}

	assert.True(t, IsSupported(" Zepto "))
	assert.False(t, IsSupported("dmart"))
	assert.False(t, IsSupported(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "zepto", Normalize("  ZePtO "))
}

func TestCheckoutLinkKnownForAllSupported(t *testing.T) {
	for _, name := range Supported() {
		assert.NotEmpty(t, CheckoutLink(name), "missing checkout link for %s", name)
	}
	assert.Empty(t, CheckoutLink("dmart"))
}

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.GreaterOrEqual(t, c, '0')
			assert.LessOrEqual(t, c, '9')
		}
		seen[code] = true
	}
	// 20 draws from a million codes should not all collide
	assert.Greater(t, len(seen), 1)
}
