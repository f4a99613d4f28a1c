package monitor

import (
	"fmt"
	"slices"
	"time"
)

// ScheduleField is one calendar constraint: either a wildcard that
// matches everything or an explicit set of accepted values.
type ScheduleField struct {
	Any    bool
	Values []int
}

func (f ScheduleField) matches(value int) bool {
	if f.Any {
		return true
	}
	return slices.Contains(f.Values, value)
}

// Schedule decides when a store is due. All five fields must match
// the current time, this is a plain conjunction and deliberately not
// cron's day-of-month/day-of-week disjunction.
type Schedule struct {
	Minutes ScheduleField
	Hours   ScheduleField
	Days    ScheduleField
	Months  ScheduleField
	Years   ScheduleField
}

// IsDue reports whether a store with this schedule should run at
// `now`. Pure function of its inputs, the orchestrator's tick calls
// it once per store.
func (s Schedule) IsDue(now time.Time) bool {
	return s.Minutes.matches(now.Minute()) &&
		s.Hours.matches(now.Hour()) &&
		s.Days.matches(now.Day()) &&
		s.Months.matches(int(now.Month())) &&
		s.Years.matches(now.Year())
}

// parseScheduleField accepts the two json shapes a schedule field can
// take: the string "*" or a list of integers.
func parseScheduleField(name string, raw any) (ScheduleField, error) {
	switch v := raw.(type) {
	case nil:
		return ScheduleField{}, fmt.Errorf("schedule field %q is missing", name)
	case string:
		if v != "*" {
			return ScheduleField{}, fmt.Errorf("schedule field %q: expected \"*\" or a list of integers, got %q", name, v)
		}
		return ScheduleField{Any: true}, nil
	case []any:
		if len(v) == 0 {
			return ScheduleField{}, fmt.Errorf("schedule field %q: empty list matches nothing", name)
		}
		values := make([]int, len(v))
		for i, elem := range v {
			num, ok := elem.(float64)
			if !ok || num != float64(int(num)) {
				return ScheduleField{}, fmt.Errorf("schedule field %q: element %d is not an integer", name, i)
			}
			values[i] = int(num)
		}
		return ScheduleField{Values: values}, nil
	default:
		return ScheduleField{}, fmt.Errorf("schedule field %q: unsupported type %T", name, raw)
	}
}

// RawSchedule is the json5 shape of a schedule block before
// validation.
type RawSchedule struct {
	Minutes any `json:"minutes"`
	Hours   any `json:"hours"`
	Days    any `json:"days"`
	Months  any `json:"months"`
	Years   any `json:"years"`
}

func (r RawSchedule) Parse() (Schedule, error) {
	var out Schedule
	var err error
	out.Minutes, err = parseScheduleField("minutes", r.Minutes)
	if err != nil {
		return Schedule{}, err
	}
	out.Hours, err = parseScheduleField("hours", r.Hours)
	if err != nil {
		return Schedule{}, err
	}
	out.Days, err = parseScheduleField("days", r.Days)
	if err != nil {
		return Schedule{}, err
	}
	out.Months, err = parseScheduleField("months", r.Months)
	if err != nil {
		return Schedule{}, err
	}
	out.Years, err = parseScheduleField("years", r.Years)
	if err != nil {
		return Schedule{}, err
	}
	return out, nil
}
