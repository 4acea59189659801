package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)
	c.Advance(31 * 24 * time.Hour)
	assert.Equal(t, start.AddDate(0, 0, 31), c.Now())
}
