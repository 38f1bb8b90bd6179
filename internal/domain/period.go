package domain

import "time"

// PeriodStatus controls whether journals may be posted into a period.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusClosed PeriodStatus = "closed"
)

// Period is an organization-scoped accounting window. Dates are inclusive.
type Period struct {
	ID             string
	OrganizationID string
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	Status         PeriodStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contains reports whether date falls within the period, by calendar day.
func (p *Period) Contains(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

// Overlaps reports whether two periods share at least one day.
func (p *Period) Overlaps(other *Period) bool {
	return !truncateDay(p.StartDate).After(truncateDay(other.EndDate)) &&
		!truncateDay(other.StartDate).After(truncateDay(p.EndDate))
}

// CheckPeriodOpen enforces period control. With no periods defined the check
// is bypassed; otherwise date must fall in at least one open period.
func CheckPeriodOpen(periods []*Period, date time.Time) error {
	if len(periods) == 0 {
		return nil
	}
	for _, p := range periods {
		if p.Status == PeriodStatusOpen && p.Contains(date) {
			return nil
		}
	}
	return ErrPeriodClosed
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
