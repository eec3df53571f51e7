package api

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"empire/internal/models"

	"github.com/google/uuid"
)

// habitDueOn decides whether a habit plan produces a mission on the given
// weekday. Daily plans run every day, weekly plans run on Mondays, and
// times-per-week plans fill the first N weekdays starting Monday.
func habitDueOn(frequency string, timesPerWeek int, weekday time.Weekday) bool {
	switch frequency {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly:
		return weekday == time.Monday
	case models.FrequencyTimesPerWeek:
		idx := (int(weekday) - int(time.Monday) + 7) % 7
		return idx < timesPerWeek
	default:
		return false
	}
}

// habitPoints is the value of a habit mission under the user's settings.
// With difficulty scaling on, goal importance 1..5 maps linearly onto the
// habit_min..habit_max range; otherwise every habit is worth habit_min.
func habitPoints(s models.UserSettings, importance int) int {
	if !s.DifficultyScaling {
		return s.HabitMin
	}
	if importance < 1 {
		importance = 1
	}
	if importance > 5 {
		importance = 5
	}
	return s.HabitMin + (s.HabitMax-s.HabitMin)*(importance-1)/4
}

// GenerateDailyMissions creates the day's habit missions for every active
// habitual goal whose plan is due. The unique index on (habit_plan_id,
// mission_date) makes repeated runs for the same day no-ops, so the worker
// can fire as often as it likes.
func GenerateDailyMissions(db *sql.DB, date time.Time) error {
	dateStr := date.UTC().Format("2006-01-02")
	weekday := date.UTC().Weekday()

	rows, err := db.Query(
		`SELECT hp.id, g.user_id, g.title, g.importance, hp.frequency, hp.times_per_week, hp.period
		FROM habit_plans hp
		JOIN goals g ON g.id = hp.goal_id
		WHERE g.status = 'active' AND g.type = 'habitual'`,
	)
	if err != nil {
		return fmt.Errorf("failed to list habit plans: %w", err)
	}

	type duePlan struct {
		planID     string
		userID     string
		title      string
		importance int
	}
	due := []duePlan{}
	for rows.Next() {
		var planID, userID, title string
		var importance int
		var frequency, period sql.NullString
		var timesPerWeek sql.NullInt64
		if err := rows.Scan(&planID, &userID, &title, &importance, &frequency, &timesPerWeek, &period); err != nil {
			rows.Close()
			return err
		}

		freq := frequency.String
		if freq == "" {
			// Legacy rows carry only the old period column.
			switch period.String {
			case "day":
				freq = models.FrequencyDaily
			case "week":
				freq = models.FrequencyWeekly
			default:
				freq = models.FrequencyDaily
			}
		}

		if habitDueOn(freq, int(timesPerWeek.Int64), weekday) {
			due = append(due, duePlan{planID: planID, userID: userID, title: title, importance: importance})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	settingsCache := map[string]models.UserSettings{}
	created := map[string]int{}
	for _, p := range due {
		settings, ok := settingsCache[p.userID]
		if !ok {
			settings, err = loadSettings(db, p.userID)
			if err != nil {
				return err
			}
			settingsCache[p.userID] = settings
		}

		res, err := db.Exec(
			`INSERT OR IGNORE INTO missions (id, user_id, habit_plan_id, mission_date, type, title, points)
			VALUES (?, ?, ?, ?, 'habit', ?, ?)`,
			uuid.NewString(), p.userID, p.planID, dateStr, p.title, habitPoints(settings, p.importance),
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			created[p.userID]++
		}
	}

	for userID, count := range created {
		payload := PushPayload{
			Title: "Empire — New Missions",
			Body:  fmt.Sprintf("%d habit mission(s) are waiting for you today", count),
			Tag:   "empire-missions-" + dateStr,
		}
		if err := SendPushToUser(db, userID, payload); err != nil {
			log.Printf("Mission push failed for user %s: %v", userID, err)
		}
	}

	if len(created) > 0 {
		log.Printf("Generated habit missions for %s: %d user(s)", dateStr, len(created))
	}
	return nil
}
