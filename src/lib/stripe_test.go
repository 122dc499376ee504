package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitAmountRoundsToNearestPaisa(t *testing.T) {
	// 1437.49 is not exactly representable; *100 lands just below 143749
	assert.Equal(t, int64(143749), unitAmount(1437.49))
	assert.Equal(t, int64(6900), unitAmount(69))
	assert.Equal(t, int64(30), unitAmount(0.299999999))
	assert.Equal(t, int64(0), unitAmount(0))
}
