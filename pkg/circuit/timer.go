package circuit

// StartTimer arms a timer so AdvanceTimers counts it down.
func (c *Circuit) StartTimer(id string) error {
	_, err := c.apply("start_timer", func(b *batch) error {
		comp, err := c.componentOfType("start_timer", id, TypeTimer)
		if err != nil {
			return err
		}
		if comp.Armed {
			return nil
		}
		comp.Armed = true
		if comp.Properties.TimeLeft <= 0 {
			comp.Properties.TimeLeft = comp.Properties.Interval
		}
		c.logActivity(b, "Timer %q started (%ds)", comp.Name, comp.Properties.Interval)
		return nil
	})
	return err
}

// StopTimer disarms a timer, turns its output off and resets its countdown.
func (c *Circuit) StopTimer(id string) error {
	_, err := c.apply("stop_timer", func(b *batch) error {
		comp, err := c.componentOfType("stop_timer", id, TypeTimer)
		if err != nil {
			return err
		}
		comp.Armed = false
		comp.IsOn = false
		comp.Properties.TimeLeft = comp.Properties.Interval
		c.logActivity(b, "Timer %q stopped", comp.Name)
		c.recompute(b)
		return nil
	})
	return err
}

// AdvanceTimers counts every armed timer down by steps seconds. A timer that
// reaches zero flips its output and restarts from its interval. The whole tick
// is one mutation: if any timer flipped, the circuit is recomputed once. The
// cost per timer does not depend on steps.
func (c *Circuit) AdvanceTimers(steps int) []StateChange {
	changes, _ := c.apply("timer_tick", func(b *batch) error {
		if steps <= 0 {
			return nil
		}
		flipped := false
		for _, timer := range c.registry.OfType(TypeTimer) {
			if !timer.Armed {
				continue
			}
			flips, left := countdown(timer.Properties.TimeLeft, timer.Properties.Interval, steps)
			timer.Properties.TimeLeft = left
			if flips > 0 {
				flipped = true
			}
			if flips%2 == 1 {
				timer.IsOn = !timer.IsOn
			}
		}
		if flipped {
			c.recompute(b)
		}
		return nil
	})
	return changes
}

// countdown advances a timer with timeLeft remaining by steps and returns how
// many times it expired and what is left afterwards. A non-positive timeLeft
// expires on the first step; intervals below one second count as one.
func countdown(timeLeft, interval, steps int) (flips, left int) {
	interval = max(interval, 1)
	first := max(timeLeft, 1)
	if steps < first {
		return 0, timeLeft - steps
	}
	rest := steps - first
	return 1 + rest/interval, interval - rest%interval
}
