package domain

// Achievement is a static badge definition. Requirement is evaluated
// against a player's current stats; unlocks are one-shot.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Icon        string `json:"icon"`

	Requirement func(PlayerStats) bool `json:"-"`
}

// Achievements lists every badge in unlock-check order.
var Achievements = []Achievement{
	{
		ID:          "first_game",
		Name:        "First Timer",
		Description: "Attended your first game",
		Points:      10,
		Icon:        "🏀",
		Requirement: func(s PlayerStats) bool { return s.GamesAttended >= 1 },
	},
	{
		ID:          "regular",
		Name:        "Court Regular",
		Description: "Attended 10+ games",
		Points:      50,
		Icon:        "⭐",
		Requirement: func(s PlayerStats) bool { return s.GamesAttended >= 10 },
	},
	{
		ID:          "veteran",
		Name:        "Court Veteran",
		Description: "Attended 25+ games",
		Points:      150,
		Icon:        "👑",
		Requirement: func(s PlayerStats) bool { return s.GamesAttended >= 25 },
	},
	{
		ID:          "legend",
		Name:        "Court Legend",
		Description: "Attended 50+ games",
		Points:      300,
		Icon:        "🏆",
		Requirement: func(s PlayerStats) bool { return s.GamesAttended >= 50 },
	},
	{
		ID:          "reliable",
		Name:        "Reliable Player",
		Description: "90%+ attendance rate (min 5 games)",
		Points:      75,
		Icon:        "💎",
		Requirement: func(s PlayerStats) bool { return s.GamesAttended >= 5 && s.AttendanceRate >= 90 },
	},
	{
		ID:          "perfect_attendance",
		Name:        "Perfect Record",
		Description: "100% attendance rate (min 10 games)",
		Points:      200,
		Icon:        "✨",
		Requirement: func(s PlayerStats) bool { return s.GamesAttended >= 10 && s.AttendanceRate == 100 },
	},
	{
		ID:          "hot_streak",
		Name:        "Hot Streak",
		Description: "Attended 5 consecutive games",
		Points:      40,
		Icon:        "🔥",
		Requirement: func(s PlayerStats) bool { return s.CurrentStreak >= 5 },
	},
	{
		ID:          "early_bird",
		Name:        "Early Bird",
		Description: "RSVP'd early 10+ times",
		Points:      30,
		Icon:        "🌅",
		Requirement: func(s PlayerStats) bool { return s.EarlyRSVPs >= 10 },
	},
	{
		ID:          "team_player",
		Name:        "Team Player",
		Description: "Brought 5+ guests",
		Points:      25,
		Icon:        "🤝",
		Requirement: func(s PlayerStats) bool { return s.GuestsBrought >= 5 },
	},
	{
		ID:          "mvp",
		Name:        "Season MVP",
		Description: "Highest attendance this month",
		Points:      100,
		Icon:        "🌟",
		Requirement: func(s PlayerStats) bool { return s.IsMonthlyMVP },
	},
}

// AchievementByID returns the definition for id, or false when unknown.
func AchievementByID(id string) (Achievement, bool) {
	for _, a := range Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
