package api

import (
	"database/sql"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
)

// loadSettings returns the user's saved settings, falling back to defaults
// when no row exists yet.
func loadSettings(db *sql.DB, userID string) (models.UserSettings, error) {
	s := models.DefaultSettings(userID)
	err := db.QueryRow(
		`SELECT long_term_months, cycle_days, highlight_points, habit_min, habit_max, extra_points, difficulty_scaling
		FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&s.LongTermMonths, &s.CycleDays, &s.HighlightPoints, &s.HabitMin, &s.HabitMax, &s.ExtraPoints, &s.DifficultyScaling)
	if err == sql.ErrNoRows {
		return models.DefaultSettings(userID), nil
	}
	if err != nil {
		return s, err
	}
	return s, nil
}

func GetSettingsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		settings, err := loadSettings(db, userID)
		if err != nil {
			return err
		}
		return c.JSON(settings)
	}
}

func SaveSettingsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.UserSettings
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		req.UserID = userID

		if req.LongTermMonths < 1 || req.LongTermMonths > 24 {
			return fiber.NewError(fiber.StatusBadRequest, "long_term_months must be between 1 and 24")
		}
		if req.CycleDays < 1 || req.CycleDays > 90 {
			return fiber.NewError(fiber.StatusBadRequest, "cycle_days must be between 1 and 90")
		}
		if req.HighlightPoints < 0 || req.ExtraPoints < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Point values cannot be negative")
		}
		if req.HabitMin < 0 || req.HabitMax < req.HabitMin {
			return fiber.NewError(fiber.StatusBadRequest, "habit_max must be greater than or equal to habit_min")
		}

		_, err := db.Exec(
			`INSERT INTO user_settings (user_id, long_term_months, cycle_days, highlight_points, habit_min, habit_max, extra_points, difficulty_scaling)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				long_term_months = excluded.long_term_months,
				cycle_days = excluded.cycle_days,
				highlight_points = excluded.highlight_points,
				habit_min = excluded.habit_min,
				habit_max = excluded.habit_max,
				extra_points = excluded.extra_points,
				difficulty_scaling = excluded.difficulty_scaling`,
			userID, req.LongTermMonths, req.CycleDays, req.HighlightPoints,
			req.HabitMin, req.HabitMax, req.ExtraPoints, req.DifficultyScaling,
		)
		if err != nil {
			return err
		}

		return c.JSON(req)
	}
}
