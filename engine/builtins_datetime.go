package engine

import (
	"time"

	"tally/value"
)

// Serial date conversion: the Unix epoch is day 25569 of the spreadsheet
// epoch; one day is 86_400_000 ms.
const (
	epochOffsetDays = 25569.0
	dayMillis       = 86_400_000.0
)

// SerialFromTime converts t to a fractional spreadsheet serial date.
func SerialFromTime(t time.Time) float64 {
	return float64(t.UnixMilli())/dayMillis + epochOffsetDays
}

// TimeFromSerial inverts SerialFromTime, in UTC.
func TimeFromSerial(serial float64) time.Time {
	ms := (serial - epochOffsetDays) * dayMillis
	return time.UnixMilli(int64(ms)).UTC()
}

func registerDateTime(r *Registry) {
	r.Register(&Function{Name: "TODAY", MinArgs: 0, MaxArgs: 0, Fn: fnToday})
	r.Register(&Function{Name: "NOW", MinArgs: 0, MaxArgs: 0, Fn: fnNow})
	r.Register(&Function{Name: "DATE", MinArgs: 3, MaxArgs: 3, Fn: fnDate})
	r.Register(&Function{Name: "YEAR", MinArgs: 1, MaxArgs: 1, Fn: datePart(func(t time.Time) int { return t.Year() })})
	r.Register(&Function{Name: "MONTH", MinArgs: 1, MaxArgs: 1, Fn: datePart(func(t time.Time) int { return int(t.Month()) })})
	r.Register(&Function{Name: "DAY", MinArgs: 1, MaxArgs: 1, Fn: datePart(func(t time.Time) int { return t.Day() })})
}

func fnToday(_ []value.Value) value.Value {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return value.Num(SerialFromTime(midnight))
}

func fnNow(_ []value.Value) value.Value {
	return value.Num(SerialFromTime(time.Now().UTC()))
}

func fnDate(args []value.Value) value.Value {
	year, ok1 := value.AsNumber(args[0])
	month, ok2 := value.AsNumber(args[1])
	day, ok3 := value.AsNumber(args[2])
	if !ok1 || !ok2 || !ok3 {
		return value.NewError(value.ErrValue)
	}
	t := time.Date(int(year), time.Month(int(month)), int(day), 0, 0, 0, 0, time.UTC)
	return value.Num(SerialFromTime(t))
}

func datePart(part func(time.Time) int) func([]value.Value) value.Value {
	return func(args []value.Value) value.Value {
		serial, ok := value.AsNumber(args[0])
		if !ok {
			return value.NewError(value.ErrValue)
		}
		return value.Int(int64(part(TimeFromSerial(serial))))
	}
}
