package aggregate

// rainState tracks a station's cumulative rain counters between observations
// so each reading can be turned into the amount that fell since the last one.
//
// Counter semantics: a value lower than the previous one means the counter
// reset (station reboot, day rollover). The new reading is then taken as the
// amount accumulated since the reset, so rainfall across a reset is counted
// once, never negative and never double. The very first reading only
// establishes the baseline and yields no delta.
type rainState struct {
	lastCum    *float64
	lastDayCum *float64
}

func counterDelta(prev *float64, current float64) (float64, bool) {
	if prev == nil {
		return 0, false
	}
	if current >= *prev {
		return current - *prev, true
	}
	return current, true
}

// deltaCum consumes a lifetime counter reading and returns the millimeters
// fallen since the previous reading.
func (s *rainState) deltaCum(current float64) (float64, bool) {
	d, ok := counterDelta(s.lastCum, current)
	s.lastCum = &current
	return d, ok
}

// deltaDayCum is deltaCum for the since-midnight counter, tracked separately
// because the two counters reset on different schedules.
func (s *rainState) deltaDayCum(current float64) (float64, bool) {
	d, ok := counterDelta(s.lastDayCum, current)
	s.lastDayCum = &current
	return d, ok
}
