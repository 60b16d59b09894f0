package categorize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewWithRules(t *testing.T) {
	c := newWithRules([]Rule{
		{Category: Travel, Keywords: []string{"starbucks"}},
	})

	assert.Equal(t, Travel, c.Categorize("Starbucks", decimal.Zero))
	assert.Equal(t, Other, c.Categorize("Pizza Hut", decimal.Zero))
}
