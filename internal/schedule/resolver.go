// Package schedule resolves which playlist should be on air at any instant.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/models"
	"github.com/oszuidwest/zwfm-rotator/internal/repository"
)

// Resolve returns the schedule that should be airing at now, or nil when
// none matches. It is a pure function: wall-clock time is converted to the
// station timezone, then each schedule is matched on active flags, weekday
// set, inclusive date range and [start, end) time of day. Among matches the
// highest priority wins; ties break on lowest id for determinism.
//
// End times are exclusive, so adjacent blocks never both claim the
// boundary instant. Blocks do not wrap midnight; an overnight show is two
// schedules.
func Resolve(now time.Time, loc *time.Location, schedules []models.Schedule) *models.Schedule {
	local := now.In(loc)
	day := local.Weekday()
	daySeconds := local.Hour()*3600 + local.Minute()*60 + local.Second()

	var best *models.Schedule
	for i := range schedules {
		s := &schedules[i]
		if !s.IsActive || !s.PlaylistActive {
			continue
		}
		if !s.Weekdays.Matches(day) {
			continue
		}
		if !dateInRange(local, s.StartDate, s.EndDate) {
			continue
		}
		start, err := parseTimeOfDay(s.StartTime)
		if err != nil {
			continue
		}
		end, err := parseTimeOfDay(s.EndTime)
		if err != nil {
			continue
		}
		if daySeconds < start || daySeconds >= end {
			continue
		}
		if best == nil || s.Priority > best.Priority ||
			(s.Priority == best.Priority && s.ID < best.ID) {
			best = s
		}
	}
	return best
}

// dateInRange checks the optional inclusive date bounds against the
// station-local calendar date. Bounds are compared by calendar components,
// never as instants: DATE columns scan in whatever location the driver is
// configured with, and an instant comparison would shift the bounds by the
// offset between that location and the station timezone.
func dateInRange(local time.Time, start, end *time.Time) bool {
	if start != nil && beforeDay(local, *start) {
		return false
	}
	if end != nil && beforeDay(*end, local) {
		return false
	}
	return true
}

// beforeDay reports whether a's calendar date falls before b's, ignoring
// the locations either was observed in.
func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

// parseTimeOfDay converts "HH:MM:SS" or "HH:MM" to seconds since midnight.
func parseTimeOfDay(value string) (int, error) {
	var h, m, s int
	if _, err := fmt.Sscanf(value, "%d:%d:%d", &h, &m, &s); err != nil {
		s = 0
		if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid time of day %q: %w", value, err)
		}
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	return h*3600 + m*60 + s, nil
}

// Resolver answers "what should be airing right now" from the database.
type Resolver struct {
	schedules *repository.Schedules
	loc       *time.Location
}

// NewResolver creates a resolver for the given station timezone.
func NewResolver(schedules *repository.Schedules, timezone string) (*Resolver, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid station timezone %q: %w", timezone, err)
	}
	return &Resolver{schedules: schedules, loc: loc}, nil
}

// Current resolves the schedule that should be airing now, or nil.
func (r *Resolver) Current(ctx context.Context) (*models.Schedule, error) {
	schedules, err := r.schedules.Active(ctx)
	if err != nil {
		return nil, err
	}
	return Resolve(time.Now(), r.loc, schedules), nil
}
