package scheduler

import (
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planAnchor is a morning well before the 09:00 window opens
var planAnchor = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

func basePlanRequest(count int) PlanRequest {
	return PlanRequest{
		Now:            planAnchor,
		WindowStart:    "09:00",
		WindowEnd:      "17:00",
		Timezone:       "UTC",
		Count:          count,
		MessagesPerDay: 50,
	}
}

func TestPlanZeroCount(t *testing.T) {
	planner := NewSeededSendWindowPlanner(1)

	planned, err := planner.Plan(basePlanRequest(0))
	require.NoError(t, err)
	assert.Nil(t, planned)
}

func TestPlanProducesRequestedCount(t *testing.T) {
	planner := NewSeededSendWindowPlanner(1)

	planned, err := planner.Plan(basePlanRequest(7))
	require.NoError(t, err)
	assert.Len(t, planned, 7)
}

func TestPlanStaysInsideWindow(t *testing.T) {
	planner := NewSeededSendWindowPlanner(42)

	planned, err := planner.Plan(basePlanRequest(5))
	require.NoError(t, err)

	windowStart := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	for _, ts := range planned {
		assert.False(t, ts.Before(windowStart), "send %s before window start", ts)
		assert.False(t, ts.After(windowEnd), "send %s after window end", ts)
	}
}

func TestPlanRespectsDailyQuota(t *testing.T) {
	planner := NewSeededSendWindowPlanner(7)

	req := basePlanRequest(5)
	req.MessagesPerDay = 2

	planned, err := planner.Plan(req)
	require.NoError(t, err)
	require.Len(t, planned, 5)

	perDay := make(map[string]int)
	for _, ts := range planned {
		perDay[ts.Format("2006-01-02")]++
	}
	for day, n := range perDay {
		assert.LessOrEqual(t, n, 2, "day %s got %d sends", day, n)
	}
	// 5 sends at 2 per day need three days
	assert.Len(t, perDay, 3)
}

func TestPlanQuotaAccountsForSentToday(t *testing.T) {
	planner := NewSeededSendWindowPlanner(7)

	req := basePlanRequest(3)
	req.MessagesPerDay = 3
	req.SentToday = 2

	planned, err := planner.Plan(req)
	require.NoError(t, err)
	require.Len(t, planned, 3)

	// Only one slot remains today; the rest overflow to tomorrow
	today := 0
	for _, ts := range planned {
		if ts.Day() == planAnchor.Day() {
			today++
		}
	}
	assert.Equal(t, 1, today)
}

func TestPlanKeepsMinimumGap(t *testing.T) {
	planner := NewSeededSendWindowPlanner(99)

	planned, err := planner.Plan(basePlanRequest(8))
	require.NoError(t, err)

	for i := 0; i < len(planned); i++ {
		for j := i + 1; j < len(planned); j++ {
			gap := planned[i].Sub(planned[j])
			if gap < 0 {
				gap = -gap
			}
			assert.GreaterOrEqual(t, gap, utils.MinSendGap,
				"sends %s and %s closer than the minimum gap", planned[i], planned[j])
		}
	}
}

func TestPlanNothingBeforeNow(t *testing.T) {
	planner := NewSeededSendWindowPlanner(3)

	// Anchor inside the window: 13:00 of an 09:00-17:00 day
	req := basePlanRequest(4)
	req.Now = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

	planned, err := planner.Plan(req)
	require.NoError(t, err)

	for _, ts := range planned {
		assert.False(t, ts.Before(req.Now), "send %s planned before now", ts)
	}
}

func TestPlanOverflowsWhenWindowHasPassed(t *testing.T) {
	planner := NewSeededSendWindowPlanner(3)

	// 20:00 is past the 17:00 close; everything lands on later days
	req := basePlanRequest(2)
	req.Now = time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	planned, err := planner.Plan(req)
	require.NoError(t, err)
	require.Len(t, planned, 2)

	for _, ts := range planned {
		assert.True(t, ts.After(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
	}
}

func TestPlanWrappingWindow(t *testing.T) {
	planner := NewSeededSendWindowPlanner(11)

	req := basePlanRequest(4)
	req.WindowStart = "22:00"
	req.WindowEnd = "02:00"
	req.Now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	planned, err := planner.Plan(req)
	require.NoError(t, err)
	require.Len(t, planned, 4)

	// Each send sits within four hours of some day's 22:00
	for _, ts := range planned {
		base := time.Date(ts.Year(), ts.Month(), ts.Day(), 22, 0, 0, 0, time.UTC)
		if ts.Before(base) {
			base = base.AddDate(0, 0, -1)
		}
		offset := ts.Sub(base)
		assert.GreaterOrEqual(t, offset, time.Duration(0))
		assert.LessOrEqual(t, offset, 4*time.Hour)
	}
}

func TestPlanDeterministicWithSeed(t *testing.T) {
	first, err := NewSeededSendWindowPlanner(1234).Plan(basePlanRequest(6))
	require.NoError(t, err)

	second, err := NewSeededSendWindowPlanner(1234).Plan(basePlanRequest(6))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPlanInvalidInputs(t *testing.T) {
	planner := NewSeededSendWindowPlanner(1)

	req := basePlanRequest(1)
	req.WindowStart = "25:00"
	_, err := planner.Plan(req)
	assert.Error(t, err)

	req = basePlanRequest(1)
	req.WindowEnd = "nope"
	_, err = planner.Plan(req)
	assert.Error(t, err)

	req = basePlanRequest(1)
	req.Timezone = "Mars/Olympus_Mons"
	_, err = planner.Plan(req)
	assert.Error(t, err)
}

func TestPlanDefaultsMessagesPerDay(t *testing.T) {
	planner := NewSeededSendWindowPlanner(5)

	req := basePlanRequest(1)
	req.MessagesPerDay = 0
	req.SentToday = utils.DefaultMessagesPerDay

	// The default quota is already used up; the send moves to the next day
	planned, err := planner.Plan(req)
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.True(t, planned[0].After(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
}
