package api

import (
	"database/sql"
	"strings"
	"time"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const missionColumns = "id, user_id, cycle_id, task_id, habit_plan_id, mission_date, type, title, is_highlight, points, is_completed, completed_at, created_at"

func scanMission(scan func(dest ...any) error, m *models.Mission) error {
	return scan(
		&m.ID, &m.UserID, &m.CycleID, &m.TaskID, &m.HabitPlanID, &m.MissionDate,
		&m.Type, &m.Title, &m.IsHighlight, &m.Points, &m.IsCompleted,
		&m.CompletedAt, &m.CreatedAt,
	)
}

func resolveMissionDate(raw string) (string, error) {
	if raw == "" {
		return time.Now().UTC().Format("2006-01-02"), nil
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "mission_date must be YYYY-MM-DD")
	}
	return raw, nil
}

func CreateMissionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.CreateMissionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if strings.TrimSpace(req.Title) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Mission title is required")
		}

		missionDate, err := resolveMissionDate(req.MissionDate)
		if err != nil {
			return err
		}

		settings, err := loadSettings(db, userID)
		if err != nil {
			return err
		}

		var points int
		var isHighlight bool
		switch req.Type {
		case models.MissionHighlight:
			points = settings.HighlightPoints
			isHighlight = true
		case models.MissionExtra:
			points = settings.ExtraPoints
		case models.MissionHabit:
			return fiber.NewError(fiber.StatusBadRequest, "Habit missions are generated from habit plans")
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Mission type must be 'highlight' or 'extra'")
		}

		missionID := uuid.NewString()
		_, err = db.Exec(
			`INSERT INTO missions (id, user_id, mission_date, type, title, is_highlight, points)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			missionID, userID, missionDate, req.Type, strings.TrimSpace(req.Title), isHighlight, points,
		)
		if isUniqueViolation(err) {
			return fiber.NewError(fiber.StatusConflict, "You already have a highlight mission for this day")
		}
		if err != nil {
			return err
		}

		var mission models.Mission
		row := db.QueryRow("SELECT "+missionColumns+" FROM missions WHERE id = ?", missionID)
		if err := scanMission(row.Scan, &mission); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(mission)
	}
}

func ListMissionsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		missionDate, err := resolveMissionDate(c.Query("date"))
		if err != nil {
			return err
		}

		rows, err := db.Query(
			"SELECT "+missionColumns+" FROM missions WHERE user_id = ? AND mission_date = ? ORDER BY is_highlight DESC, created_at ASC",
			userID, missionDate,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		missions := []models.Mission{}
		for rows.Next() {
			var m models.Mission
			if err := scanMission(rows.Scan, &m); err != nil {
				return err
			}
			missions = append(missions, m)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(missions)
	}
}

// SuggestHighlightHandler promotes one of the day's open missions to be the
// highlight when none has been chosen yet.
func SuggestHighlightHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.SuggestHighlightRequest
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		missionDate, err := resolveMissionDate(req.MissionDate)
		if err != nil {
			return err
		}

		settings, err := loadSettings(db, userID)
		if err != nil {
			return err
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var existing string
		err = tx.QueryRow(
			"SELECT id FROM missions WHERE user_id = ? AND mission_date = ? AND is_highlight = 1",
			userID, missionDate,
		).Scan(&existing)
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "You already have a highlight mission for this day")
		}
		if err != sql.ErrNoRows {
			return err
		}

		// Prefer higher-value open missions as the suggestion.
		var missionID string
		err = tx.QueryRow(
			`SELECT id FROM missions
			WHERE user_id = ? AND mission_date = ? AND is_completed = 0 AND is_highlight = 0
			ORDER BY points DESC, created_at ASC LIMIT 1`,
			userID, missionDate,
		).Scan(&missionID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "No open missions to suggest for this day")
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(
			"UPDATE missions SET type = 'highlight', is_highlight = 1, points = ? WHERE id = ?",
			settings.HighlightPoints, missionID,
		)
		if err != nil {
			return err
		}

		var mission models.Mission
		row := tx.QueryRow("SELECT "+missionColumns+" FROM missions WHERE id = ?", missionID)
		if err := scanMission(row.Scan, &mission); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		return c.JSON(mission)
	}
}

// CompleteMissionHandler marks a mission completed and credits its points in
// the same transaction. Completion is one-way: completing an already
// completed mission changes nothing and credits nothing. Extra missions stay
// locked until the day's highlight is done.
func CompleteMissionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		missionID := c.Params("id")

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var mission models.Mission
		row := tx.QueryRow(
			"SELECT "+missionColumns+" FROM missions WHERE id = ? AND user_id = ?",
			missionID, userID,
		)
		if err := scanMission(row.Scan, &mission); err != nil {
			if err == sql.ErrNoRows {
				return fiber.NewError(fiber.StatusNotFound, "Mission not found")
			}
			return err
		}

		if mission.IsCompleted {
			return c.JSON(mission)
		}

		if mission.Type == models.MissionExtra {
			var highlightDone bool
			err := tx.QueryRow(
				"SELECT is_completed FROM missions WHERE user_id = ? AND mission_date = ? AND is_highlight = 1",
				userID, mission.MissionDate,
			).Scan(&highlightDone)
			if err == sql.ErrNoRows || (err == nil && !highlightDone) {
				return fiber.NewError(fiber.StatusConflict, "Complete your highlight mission to unlock extra missions")
			}
			if err != nil {
				return err
			}
		}

		if _, err := tx.Exec(
			"UPDATE missions SET is_completed = 1, completed_at = CURRENT_TIMESTAMP WHERE id = ?",
			missionID,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(
			"INSERT INTO points_ledger (id, user_id, mission_id, points, reason) VALUES (?, ?, ?, ?, 'mission_completed')",
			uuid.NewString(), userID, missionID, mission.Points,
		); err != nil {
			return err
		}

		row = tx.QueryRow("SELECT "+missionColumns+" FROM missions WHERE id = ?", missionID)
		if err := scanMission(row.Scan, &mission); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		return c.JSON(mission)
	}
}
