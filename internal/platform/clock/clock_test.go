package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"habitkit/internal/platform/clock"
)

func TestStepperAdvances(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := clock.NewStepper(start, time.Minute)

	assert.Equal(t, start, s.Now())
	assert.Equal(t, start.Add(time.Minute), s.Now())
	assert.True(t, s.Now().After(start.Add(time.Minute)))
}

func TestSystemClockIsUTC(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.UTC, clock.SystemClock{}.Now().Location())
}
