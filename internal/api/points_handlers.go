package api

import (
	"database/sql"
	"time"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
)

func loadLevel(db *sql.DB, userID string) (models.EmpireLevel, error) {
	level := models.EmpireLevel{UserID: userID, TotalPoints: 0, Level: 1}
	err := db.QueryRow(
		"SELECT total_points, level FROM empire_levels WHERE user_id = ?", userID,
	).Scan(&level.TotalPoints, &level.Level)
	if err == sql.ErrNoRows {
		return level, nil
	}
	return level, err
}

// currentStreak counts consecutive days ending today on which the user
// completed at least one mission.
func currentStreak(db *sql.DB, userID string, today time.Time) (int, error) {
	rows, err := db.Query(
		`SELECT DISTINCT mission_date FROM missions
		WHERE user_id = ? AND is_completed = 1 AND mission_date <= ?
		ORDER BY mission_date DESC`,
		userID, today.Format("2006-01-02"),
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	streak := 0
	expected := today
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return 0, err
		}
		if d != expected.Format("2006-01-02") {
			// A streak may also end yesterday if today has nothing yet.
			if streak == 0 && d == expected.AddDate(0, 0, -1).Format("2006-01-02") {
				expected = expected.AddDate(0, 0, -1)
			} else {
				break
			}
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak, rows.Err()
}

func GetStatsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		today := time.Now().UTC()

		level, err := loadLevel(db, userID)
		if err != nil {
			return err
		}

		stats := models.UserStats{
			TotalPoints:  level.TotalPoints,
			CurrentLevel: level.Level,
		}

		err = db.QueryRow(
			"SELECT COUNT(*) FROM missions WHERE user_id = ? AND mission_date = ? AND is_completed = 1",
			userID, today.Format("2006-01-02"),
		).Scan(&stats.MissionsCompletedToday)
		if err != nil {
			return err
		}

		err = db.QueryRow(
			"SELECT COUNT(*) FROM goals WHERE user_id = ? AND status = 'completed'", userID,
		).Scan(&stats.GoalsCompleted)
		if err != nil {
			return err
		}

		if stats.CurrentStreak, err = currentStreak(db, userID, today); err != nil {
			return err
		}

		return c.JSON(stats)
	}
}

func GetLedgerHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		rows, err := db.Query(
			`SELECT id, user_id, mission_id, points, reason, occurred_at
			FROM points_ledger WHERE user_id = ? ORDER BY occurred_at DESC, rowid DESC LIMIT ?`,
			userID, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries := []models.PointsEntry{}
		for rows.Next() {
			var e models.PointsEntry
			if err := rows.Scan(&e.ID, &e.UserID, &e.MissionID, &e.Points, &e.Reason, &e.OccurredAt); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(entries)
	}
}

func GetLevelHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		level, err := loadLevel(db, userID)
		if err != nil {
			return err
		}
		return c.JSON(level)
	}
}
