package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func slot(start, end string) SlotRange {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return SlotRange{Start: s, End: e}
}

func TestMergeDaySlots(t *testing.T) {
	cases := []struct {
		name  string
		input []SlotRange
		want  []SlotRange
	}{
		{
			name: "overlapping slots collapse, disjoint stay",
			input: []SlotRange{
				slot("09:00", "10:00"),
				slot("09:30", "11:00"),
				slot("14:00", "15:00"),
			},
			want: []SlotRange{
				slot("09:00", "11:00"),
				slot("14:00", "15:00"),
			},
		},
		{
			name: "touching slots merge",
			input: []SlotRange{
				slot("09:00", "10:00"),
				slot("10:00", "11:00"),
			},
			want: []SlotRange{slot("09:00", "11:00")},
		},
		{
			name: "unsorted input is sorted",
			input: []SlotRange{
				slot("14:00", "15:00"),
				slot("09:00", "10:00"),
			},
			want: []SlotRange{
				slot("09:00", "10:00"),
				slot("14:00", "15:00"),
			},
		},
		{
			name: "contained slot is absorbed",
			input: []SlotRange{
				slot("09:00", "17:00"),
				slot("10:00", "11:00"),
			},
			want: []SlotRange{slot("09:00", "17:00")},
		},
		{
			name: "inverted and empty slots are dropped",
			input: []SlotRange{
				slot("12:00", "09:00"),
				slot("10:00", "10:00"),
				slot("14:00", "15:00"),
			},
			want: []SlotRange{slot("14:00", "15:00")},
		},
		{
			name:  "empty input yields empty set",
			input: nil,
			want:  []SlotRange{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeDaySlots(tc.input))
		})
	}
}

func TestMergeDaySlots_Idempotent(t *testing.T) {
	input := []SlotRange{
		slot("09:00", "10:00"),
		slot("09:30", "11:00"),
		slot("14:00", "15:00"),
	}

	once := MergeDaySlots(input)
	twice := MergeDaySlots(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeWeekly(t *testing.T) {
	ws := WeeklySchedule{
		"monday": {Enabled: true, Slots: []SlotRange{
			slot("10:00", "12:00"),
			slot("09:00", "10:30"),
		}},
		"sunday": {Enabled: false, Slots: []SlotRange{slot("09:00", "10:00")}},
	}

	out := NormalizeWeekly(ws)

	assert.Equal(t, []SlotRange{slot("09:00", "12:00")}, out["monday"].Slots)
	// Disabled days keep their slots; only the merge invariant applies.
	assert.False(t, out["sunday"].Enabled)
	assert.Equal(t, []SlotRange{slot("09:00", "10:00")}, out["sunday"].Slots)
}
