package usage

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit is the unit a limit is expressed in.
type Unit string

const (
	// UnitCount limits a plain counter ("10").
	UnitCount Unit = "count"
	// UnitGigabytes limits storage ("10GB"); counters hold raw bytes.
	UnitGigabytes Unit = "gigabytes"
	// UnitPerDay limits a request rate ("1000 requests/day").
	UnitPerDay Unit = "per-day"
)

// Limit is a parsed feature limit.
type Limit struct {
	Amount int64
	Unit   Unit
}

// String renders the limit in the same form it was parsed from.
func (l Limit) String() string {
	switch l.Unit {
	case UnitGigabytes:
		return strconv.FormatInt(l.Amount, 10) + "GB"
	case UnitPerDay:
		return strconv.FormatInt(l.Amount, 10) + " requests/day"
	default:
		return strconv.FormatInt(l.Amount, 10)
	}
}

var (
	countPattern   = regexp.MustCompile(`^(\d+)$`)
	storagePattern = regexp.MustCompile(`(?i)^(\d+)\s*gb$`)
	ratePattern    = regexp.MustCompile(`(?i)^(\d+)\s*requests/day$`)
)

// ParseLimit parses one of the three limit forms a plan feature may carry:
// a bare integer, a storage size in gigabytes, or a daily request rate.
// Anything else, including the empty string, reports not ok and is treated
// as unlimited by callers.
func ParseLimit(s string) (Limit, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Limit{}, false
	}
	for _, p := range []struct {
		pattern *regexp.Regexp
		unit    Unit
	}{
		{countPattern, UnitCount},
		{storagePattern, UnitGigabytes},
		{ratePattern, UnitPerDay},
	} {
		m := p.pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Limit{}, false
		}
		return Limit{Amount: amount, Unit: p.unit}, true
	}
	return Limit{}, false
}
