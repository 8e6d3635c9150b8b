package booking

import "sort"

// MergeDaySlots collapses one day's declared slots into the minimal
// sorted, non-overlapping set. Slots with start >= end are silently
// dropped. Touching intervals are merged, so the output is an interval
// union. The function is idempotent: merging merged output is a no-op.
func MergeDaySlots(slots []SlotRange) []SlotRange {
	valid := make([]SlotRange, 0, len(slots))
	for _, s := range slots {
		if s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return []SlotRange{}
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Start == valid[j].Start {
			return valid[i].End < valid[j].End
		}
		return valid[i].Start < valid[j].Start
	})

	merged := []SlotRange{valid[0]}
	for _, s := range valid[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}

	return merged
}

// NormalizeWeekly runs MergeDaySlots over every day of a weekly
// schedule. Applied before an AvailabilityProfile is persisted so the
// stored schedule always satisfies the non-overlap invariant.
func NormalizeWeekly(ws WeeklySchedule) WeeklySchedule {
	if ws == nil {
		return nil
	}
	out := make(WeeklySchedule, len(ws))
	for day, sched := range ws {
		out[day] = DaySchedule{
			Enabled: sched.Enabled,
			Slots:   MergeDaySlots(sched.Slots),
		}
	}
	return out
}
