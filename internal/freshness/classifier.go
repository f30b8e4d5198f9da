// Package freshness classifies batches by how close they are to their expiry date.
//
// The policy is applied on calendar dates only: a batch expiring today is
// ExpiringSoon, a batch expiring in exactly SoonWindowDays days is still
// ExpiringSoon, and anything before today is Expired.
package freshness

import (
	"time"

	"retailsmart/internal/models"
)

// SoonWindowDays is the inclusive upper bound of the expiring-soon window
const SoonWindowDays = 7

const day = 24 * time.Hour

// DaysUntil returns the number of calendar days from now's date to expiryDate.
// The date is interpreted in now's location. ok is false if expiryDate does not parse.
func DaysUntil(expiryDate string, now time.Time) (days int, ok bool) {
	exp, err := time.Parse(models.DateLayout, expiryDate)
	if err != nil {
		return 0, false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today) / day), true
}

// Classify derives the freshness status of an expiry date at now
func Classify(expiryDate string, now time.Time) models.FreshnessStatus {
	days, ok := DaysUntil(expiryDate, now)
	if !ok {
		return models.StatusUnknown
	}
	return classifyDays(days)
}

func classifyDays(days int) models.FreshnessStatus {
	switch {
	case days < 0:
		return models.StatusExpired
	case days <= SoonWindowDays:
		return models.StatusExpiringSoon
	default:
		return models.StatusFresh
	}
}

// ClassifyBatch is Classify applied to a batch
func ClassifyBatch(b models.Batch, now time.Time) models.FreshnessStatus {
	return Classify(b.ExpiryDate, now)
}

// DateAfter formats now's date plus days in the persisted date layout
func DateAfter(now time.Time, days int) string {
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
}

// ParseStatus maps a filter token to a status. Empty input yields ok=false.
func ParseStatus(token string) (models.FreshnessStatus, bool) {
	switch models.FreshnessStatus(token) {
	case models.StatusFresh, models.StatusExpiringSoon, models.StatusExpired, models.StatusUnknown:
		return models.FreshnessStatus(token), true
	default:
		return "", false
	}
}
