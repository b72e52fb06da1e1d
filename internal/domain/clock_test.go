package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimulationClock_Advance(t *testing.T) {
	inf := math.Inf(1)
	cases := []struct {
		name    string
		clock   SimulationClock
		horizon float64
		want    ClockEvent
		wantNow float64
	}{
		{"buyer first", SimulationClock{Now: 1, NextBuyer: 2, NextSeller: 3}, 10, EventBuyer, 2},
		{"seller first", SimulationClock{Now: 1, NextBuyer: 4, NextSeller: 3}, 10, EventSeller, 3},
		{"buyer wins exact tie", SimulationClock{NextBuyer: 5, NextSeller: 5}, 10, EventBuyer, 5},
		{"arrival exactly at horizon is processed", SimulationClock{NextBuyer: 10, NextSeller: inf}, 10, EventBuyer, 10},
		{"seller exactly at horizon is processed", SimulationClock{NextBuyer: inf, NextSeller: 10}, 10, EventSeller, 10},
		{"horizon strictly earlier", SimulationClock{NextBuyer: 10.5, NextSeller: 11}, 10, EventHorizon, 10},
		{"no arrivals scheduled", NewClock(), 7, EventHorizon, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.clock
			assert.Equal(t, tc.want, c.Advance(tc.horizon))
			assert.Equal(t, tc.wantNow, c.Now)
		})
	}
}

func TestSimulationClock_NowNeverDecreases(t *testing.T) {
	c := SimulationClock{Now: 5, NextBuyer: 3, NextSeller: 4}
	assert.Equal(t, EventBuyer, c.Advance(10))
	assert.Equal(t, 5.0, c.Now)
}

func TestSimulationClock_TieSellerFollowsAtSameTime(t *testing.T) {
	c := SimulationClock{NextBuyer: 2, NextSeller: 2}
	assert.Equal(t, EventBuyer, c.Advance(10))
	c.NextBuyer = 3

	assert.Equal(t, EventSeller, c.Advance(10))
	assert.Equal(t, 2.0, c.Now)
}
