package checkout

import (
	"testing"

	"festreg/src/models"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	assert.Equal(t, float64(2999), ParsePrice("₹2,999"))
	assert.Equal(t, float64(499.5), ParsePrice("₹499.50"))
	assert.Equal(t, float64(199), ParsePrice("INR 199"))
	assert.Equal(t, float64(0), ParsePrice("Free"))
	assert.Equal(t, float64(0), ParsePrice("FREE"))
	assert.Equal(t, float64(0), ParsePrice(""))
	assert.Equal(t, float64(0), ParsePrice("TBA"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "138.00", FormatPrice(138))
	assert.Equal(t, "99.99", FormatPrice(99.994))
	assert.Equal(t, "0.00", FormatPrice(0))
}

func TestTotalPrice(t *testing.T) {
	events := []models.EventCatalogItem{
		{ID: 1, Title: "BANDJAM", Price: "₹1,500"},
		{ID: 2, Title: "CODE SPRINT", Price: "₹299.50"},
		{ID: 3, Title: "OPEN MIC", Price: "Free"},
	}
	assert.Equal(t, 1799.50, TotalPrice(events, 0))
	assert.Equal(t, 1937.50, TotalPrice(events, 2))
}

func TestTotalPriceVisitorPassOnly(t *testing.T) {
	assert.Equal(t, 138.00, TotalPrice(nil, 2))
	assert.Equal(t, 207.00, TotalPrice(nil, 3))
}

func TestFinalPrice(t *testing.T) {
	assert.Equal(t, 1000.00, FinalPrice(1500, 500))
	assert.Equal(t, 0.00, FinalPrice(100, 500))
	assert.Equal(t, 0.00, FinalPrice(0, 0))
	assert.Equal(t, 99.01, FinalPrice(199.005, 99.995))
}
