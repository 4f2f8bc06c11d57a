package logger

// Formatting helpers for the tree-stats report (reports.go, instance.go's
// logStats), split out from Logger itself the way the teacher's logger
// package keeps its formatting helpers in their own file.
import (
	"strconv"
	"time"
)

// FormatLeafCount renders a tree's leaf count rounded to the nearest
// Kilo, Mega, ..., or Yotta (halves round up), capped at Yotta so a pathologically large tree
// still prints a short number instead of switching to scientific notation.
func FormatLeafCount(n uint64) string {
	const multipleOf = 1000
	const maxUnit = 'Y'
	var steps, rem uint64
	units := " KMGTPEZY"
	for n >= multipleOf && units[steps] != maxUnit {
		rem = n % multipleOf
		n /= multipleOf
		steps++
	}
	if rem%multipleOf >= multipleOf/2 {
		n++ // round the last
	}
	s := strconv.FormatUint(n, 10)
	if steps > 0 {
		s += units[steps : steps+1]
	}
	return s
}

// FormatSinceLast rounds the gap since a report's previous run down to
// whole seconds, so the line doesn't carry sub-second noise from the
// scheduler's own wake-up slop.
func FormatSinceLast(d time.Duration) string {
	d = d - (d % time.Second)
	return d.String()
}
