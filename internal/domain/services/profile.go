package services

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"upiguard/internal/domain/models"
)

// ApplyTransaction returns the profile updated with one more transaction. A
// nil profile starts a new one for userID. The input profile is not
// modified.
func ApplyTransaction(profile *models.BehaviorProfile, userID uuid.UUID, amount float64, hour int, deviceID string, now time.Time) models.BehaviorProfile {
	var next models.BehaviorProfile
	if profile != nil {
		next = *profile
		next.TypicalTransactionHours = append([]int(nil), profile.TypicalTransactionHours...)
		next.KnownDevices = append([]string(nil), profile.KnownDevices...)
	}
	next.UserID = userID

	n := decimal.NewFromInt(int64(next.TransactionCount))
	x := decimal.NewFromFloat(amount)
	oldMean := decimal.NewFromFloat(next.AvgTransactionAmount)
	newMean := oldMean.Mul(n).Add(x).Div(n.Add(decimal.NewFromInt(1)))

	// Welford: carry the sum of squared deviations through the running std-dev
	m2 := math.Pow(next.StdDevAmount, 2) * float64(next.TransactionCount)
	m2 += x.Sub(oldMean).InexactFloat64() * x.Sub(newMean).InexactFloat64()
	if m2 < 0 {
		m2 = 0
	}

	next.TransactionCount++
	next.AvgTransactionAmount = newMean.Round(2).InexactFloat64()
	next.StdDevAmount = decimal.NewFromFloat(math.Sqrt(m2 / float64(next.TransactionCount))).Round(2).InexactFloat64()
	if amount > next.MaxTransactionAmount {
		next.MaxTransactionAmount = amount
	}

	if !next.HasHour(hour) {
		next.TypicalTransactionHours = appendBounded(next.TypicalTransactionHours, hour, models.MaxTypicalHours)
	}
	if deviceID != "" && !containsString(next.KnownDevices, deviceID) {
		next.KnownDevices = appendBounded(next.KnownDevices, deviceID, models.MaxKnownDevices)
	}

	if next.KnownDevices == nil {
		next.KnownDevices = []string{}
	}

	ts := now.UTC()
	next.LastTransactionAt = &ts
	next.UpdatedAt = ts
	return next
}

// appendBounded appends v and drops the oldest entries beyond limit
func appendBounded[T any](list []T, v T, limit int) []T {
	list = append(list, v)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
