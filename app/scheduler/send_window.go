// Package scheduler contains the campaign run loop and the send-time planner
package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/outreachly/outreachly-backend/utils"
)

// PlanRequest describes one planning pass for one sender account
type PlanRequest struct {
	// Now anchors the pass; no timestamp is planned before it
	Now time.Time

	// WindowStart and WindowEnd are "HH:MM" times of day in Timezone. The
	// window wraps past midnight when end is before start.
	WindowStart string
	WindowEnd   string
	Timezone    string

	// Count is the number of timestamps to produce
	Count int

	// MessagesPerDay caps timestamps per calendar day; SentToday is how many
	// sends the account has already used on the current day.
	MessagesPerDay int
	SentToday      int
}

// SendWindowPlanner computes randomized send timestamps inside a campaign's
// daily window. Placement avoids the window edges and keeps a minimum gap
// between timestamps for the same account, so one account's sends do not form
// a detectable fixed cadence.
type SendWindowPlanner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSendWindowPlanner creates a planner seeded from the clock
func NewSendWindowPlanner() *SendWindowPlanner {
	return NewSeededSendWindowPlanner(time.Now().UnixNano())
}

// NewSeededSendWindowPlanner creates a planner with a fixed seed
func NewSeededSendWindowPlanner(seed int64) *SendWindowPlanner {
	return &SendWindowPlanner{rng: rand.New(rand.NewSource(seed))}
}

// Plan returns Count timestamps, ordered by generation, satisfying the daily
// quota, window placement, minimum gap, and jitter rules. The result is pure
// computation; callers persist the values as recipient gate times.
func (p *SendWindowPlanner) Plan(req PlanRequest) ([]time.Time, error) {
	if req.Count <= 0 {
		return nil, nil
	}

	loc := time.UTC
	if req.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", req.Timezone, err)
		}
	}

	startOff, err := utils.ParseClock(req.WindowStart)
	if err != nil {
		return nil, fmt.Errorf("invalid window start %q: %w", req.WindowStart, err)
	}
	endOff, err := utils.ParseClock(req.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid window end %q: %w", req.WindowEnd, err)
	}

	// Wrapping windows (end before start) get the mod-24h duration; equal
	// start and end means the whole day.
	duration := endOff - startOff
	if duration <= 0 {
		duration += 24 * time.Hour
	}

	perDay := req.MessagesPerDay
	if perDay <= 0 {
		perDay = utils.DefaultMessagesPerDay
	}

	now := req.Now.In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	capacity := perDay - req.SentToday
	if capacity < 0 {
		capacity = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	planned := make([]time.Time, 0, req.Count)
	dayIndex := 0
	usedOnDay := 0

	for len(planned) < req.Count {
		if usedOnDay >= capacity {
			dayIndex++
			usedOnDay = 0
			capacity = perDay
			continue
		}

		windowStart := midnight.AddDate(0, 0, dayIndex).Add(startOff)

		// Shrink the sampling range so nothing lands before now; when the
		// current day's usable range is gone, move on to the next day.
		low, high := utils.WindowFractionLow, utils.WindowFractionHigh
		if windowEnd := windowStart.Add(duration); now.After(windowStart) {
			if !now.Before(windowEnd) {
				dayIndex++
				usedOnDay = 0
				capacity = perDay
				continue
			}
			elapsed := float64(now.Sub(windowStart)) / float64(duration)
			if elapsed > low {
				low = elapsed
			}
			if low >= high {
				dayIndex++
				usedOnDay = 0
				capacity = perDay
				continue
			}
		}

		frac := low + p.rng.Float64()*(high-low)
		t := windowStart.Add(time.Duration(frac * float64(duration)))
		t = t.Add(time.Duration(p.rng.Intn(60)) * time.Second)

		t = p.resolveGapConflicts(planned, t)

		planned = append(planned, t.UTC())
		usedOnDay++
	}

	return planned, nil
}

// resolveGapConflicts pushes t past any already-planned timestamp closer than
// the minimum gap, adding a random extra delay so pushed sends do not stack
// at exact multiples of the gap.
func (p *SendWindowPlanner) resolveGapConflicts(planned []time.Time, t time.Time) time.Time {
	for {
		conflicted := false
		for _, q := range planned {
			d := t.Sub(q.In(t.Location()))
			if d < 0 {
				d = -d
			}
			if d < utils.MinSendGap {
				jitter := time.Duration(p.rng.Int63n(int64(utils.GapJitterMax)))
				t = q.In(t.Location()).Add(utils.MinSendGap + jitter)
				conflicted = true
			}
		}
		if !conflicted {
			return t
		}
	}
}
