package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote_ChangePercent(t *testing.T) {
	q := Quote{Price: 110, PreviousClose: 100}
	pct, ok := q.ChangePercent()
	assert.True(t, ok)
	assert.InDelta(t, 10.0, pct, 1e-9)

	_, ok = Quote{Price: 110}.ChangePercent()
	assert.False(t, ok)
}

func TestSnapshot_CurrentPrice(t *testing.T) {
	s := Snapshot{Bars: []Bar{{Close: 10}, {Close: 0}, {Close: 12}}}
	assert.Equal(t, []float64{10, 12}, s.Closes())
	assert.Equal(t, 12.0, s.CurrentPrice())

	s.Quote.Price = 13
	assert.Equal(t, 13.0, s.CurrentPrice())

	empty := Snapshot{}
	assert.Equal(t, 0.0, empty.CurrentPrice())
}
