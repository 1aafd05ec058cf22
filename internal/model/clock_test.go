package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewClock(10 * time.Second)
	c.now = func() time.Time { return now }

	assert.Equal(t, 10*time.Second, c.GetTimeLeft())

	c.Start()
	now = now.Add(3 * time.Second)
	assert.Equal(t, 7*time.Second, c.GetTimeLeft())
	c.Start()
	assert.Equal(t, 7*time.Second, c.GetTimeLeft(), "second start is ignored")

	c.Stop()
	now = now.Add(5 * time.Second)
	assert.Equal(t, 7*time.Second, c.GetTimeLeft())
	assert.Equal(t, 70, c.tenths())
	assert.False(t, c.Expired())

	c.Start()
	now = now.Add(8 * time.Second)
	assert.True(t, c.Expired())
	c.Stop()
	assert.Equal(t, -time.Second, c.GetTimeLeft())
}
