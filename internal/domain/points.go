package domain

// Point values for player actions. Penalties are negative so every award
// goes through the same ledger append.
const (
	PointsRSVPConfirmed = 10
	PointsRSVPEarly     = 5 // RSVP more than 24h before tip-off
	PointsAttendance    = 20
	PointsBroughtGuest  = 5 // per guest
	PointsLateCancel    = -5
	PointsNoShow        = -10
	PointsStreakBonus   = 5 // per consecutive game beyond the first
)

// EarlyRSVPWindow is how far ahead of tip-off an RSVP must land to count
// as early.
const EarlyRSVPWindowHours = 24

// StreakGapDays is the maximum gap between attended games that still
// extends a streak.
const StreakGapDays = 14

// StreakBonus returns the bonus points for attending with the given
// current streak.
func StreakBonus(streak int) int {
	if streak <= 1 {
		return 0
	}
	return (streak - 1) * PointsStreakBonus
}
