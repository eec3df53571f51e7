package api

import (
	"database/sql"
	"strings"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func validateGoalRequest(req *models.GoalRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Goal title is required")
	}
	if req.Type != models.GoalProgressive && req.Type != models.GoalHabitual {
		return fiber.NewError(fiber.StatusBadRequest, "Goal type must be 'progressive' or 'habitual'")
	}
	if req.CategoryID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Category is required")
	}
	if req.Importance == 0 {
		req.Importance = 3
	}
	if req.Importance < 1 || req.Importance > 5 {
		return fiber.NewError(fiber.StatusBadRequest, "Importance must be between 1 and 5")
	}
	if req.Type == models.GoalHabitual {
		if req.HabitPlan == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Habitual goals require a habit plan")
		}
		if err := validateHabitPlanDraft(req.HabitPlan); err != nil {
			return err
		}
	}
	return nil
}

func validateHabitPlanDraft(p *models.HabitPlanDraft) error {
	switch p.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly:
		p.TimesPerWeek = nil
	case models.FrequencyTimesPerWeek:
		if p.TimesPerWeek == nil || *p.TimesPerWeek < 1 || *p.TimesPerWeek > 7 {
			return fiber.NewError(fiber.StatusBadRequest, "times_per_week must be between 1 and 7")
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Frequency must be 'daily', 'weekly' or 'times_per_week'")
	}
	return nil
}

func requireOwnedCategory(tx *sql.Tx, userID, categoryID string) error {
	var id string
	err := tx.QueryRow("SELECT id FROM categories WHERE id = ? AND user_id = ?", categoryID, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return fiber.NewError(fiber.StatusBadRequest, "Category not found")
	}
	return err
}

type rowQuerier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// scanHabitPlan reads a habit plan row, normalizing legacy rows that only
// carry the old period column: 'day' reads as daily, 'week' as weekly.
func scanHabitPlan(q rowQuerier, goalID string) (*models.HabitPlan, error) {
	var hp models.HabitPlan
	var frequency, period sql.NullString
	var timesPerWeek sql.NullInt64
	err := q.QueryRow(
		"SELECT id, goal_id, frequency, times_per_week, period FROM habit_plans WHERE goal_id = ?",
		goalID,
	).Scan(&hp.ID, &hp.GoalID, &frequency, &timesPerWeek, &period)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch {
	case frequency.Valid:
		hp.Frequency = frequency.String
	case period.String == "day":
		hp.Frequency = models.FrequencyDaily
	case period.String == "week":
		hp.Frequency = models.FrequencyWeekly
	default:
		hp.Frequency = models.FrequencyDaily
	}
	if timesPerWeek.Valid {
		n := int(timesPerWeek.Int64)
		hp.TimesPerWeek = &n
	}
	return &hp, nil
}

func loadMilestones(q rowQuerier, goalID string) ([]models.Milestone, error) {
	rows, err := q.Query(
		"SELECT id, goal_id, title, target_date, order_index, is_completed FROM milestones WHERE goal_id = ? ORDER BY order_index ASC",
		goalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	milestones := []models.Milestone{}
	for rows.Next() {
		var m models.Milestone
		if err := rows.Scan(&m.ID, &m.GoalID, &m.Title, &m.TargetDate, &m.OrderIndex, &m.IsCompleted); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// loadTracking resolves the goal's kind-specific record once, so handlers
// never hand out milestones for a habitual goal or a plan for a progressive
// one.
func loadTracking(q rowQuerier, goal *models.Goal) error {
	switch goal.Type {
	case models.GoalProgressive:
		milestones, err := loadMilestones(q, goal.ID)
		if err != nil {
			return err
		}
		goal.Tracking = &models.Tracking{Milestones: milestones}
	case models.GoalHabitual:
		hp, err := scanHabitPlan(q, goal.ID)
		if err != nil {
			return err
		}
		goal.Tracking = &models.Tracking{HabitPlan: hp}
	}
	return nil
}

func scanGoal(row *sql.Row, goal *models.Goal) error {
	var description sql.NullString
	err := row.Scan(
		&goal.ID, &goal.UserID, &goal.CategoryID, &goal.Title, &description,
		&goal.Type, &goal.Importance, &goal.EffortEstimateHours, &goal.Status,
		&goal.CreatedAt, &goal.UpdatedAt,
	)
	goal.Description = description.String
	return err
}

const goalColumns = "id, user_id, category_id, title, description, type, importance, effort_estimate_hours, status, created_at, updated_at"

func CreateGoalHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.GoalRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateGoalRequest(&req); err != nil {
			return err
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := requireOwnedCategory(tx, userID, req.CategoryID); err != nil {
			return err
		}

		goalID := uuid.NewString()
		_, err = tx.Exec(
			`INSERT INTO goals (id, user_id, category_id, title, description, type, importance, effort_estimate_hours)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			goalID, userID, req.CategoryID, strings.TrimSpace(req.Title), req.Description,
			req.Type, req.Importance, req.EffortEstimateHours,
		)
		if err != nil {
			return err
		}

		if req.Type == models.GoalProgressive {
			for i, draft := range req.Milestones {
				if strings.TrimSpace(draft.Title) == "" {
					return fiber.NewError(fiber.StatusBadRequest, "Milestone title is required")
				}
				_, err := tx.Exec(
					"INSERT INTO milestones (id, goal_id, title, target_date, order_index) VALUES (?, ?, ?, ?, ?)",
					uuid.NewString(), goalID, strings.TrimSpace(draft.Title), draft.TargetDate, i,
				)
				if err != nil {
					return err
				}
			}
		} else {
			_, err := tx.Exec(
				"INSERT INTO habit_plans (id, goal_id, frequency, times_per_week) VALUES (?, ?, ?, ?)",
				uuid.NewString(), goalID, req.HabitPlan.Frequency, req.HabitPlan.TimesPerWeek,
			)
			if err != nil {
				return err
			}
		}

		var goal models.Goal
		if err := scanGoal(tx.QueryRow("SELECT "+goalColumns+" FROM goals WHERE id = ?", goalID), &goal); err != nil {
			return err
		}
		if err := loadTracking(tx, &goal); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(goal)
	}
}

func ListGoalsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		query := "SELECT " + goalColumns + " FROM goals WHERE user_id = ?"
		args := []any{userID}

		if status := c.Query("status"); status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
		if categoryID := c.Query("category_id"); categoryID != "" {
			query += " AND category_id = ?"
			args = append(args, categoryID)
		}
		query += " ORDER BY created_at DESC"

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		goals := []models.Goal{}
		for rows.Next() {
			var goal models.Goal
			var description sql.NullString
			err := rows.Scan(
				&goal.ID, &goal.UserID, &goal.CategoryID, &goal.Title, &description,
				&goal.Type, &goal.Importance, &goal.EffortEstimateHours, &goal.Status,
				&goal.CreatedAt, &goal.UpdatedAt,
			)
			if err != nil {
				return err
			}
			goal.Description = description.String
			goals = append(goals, goal)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(goals)
	}
}

func GetGoalHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		goalID := c.Params("id")

		var goal models.Goal
		err := scanGoal(db.QueryRow(
			"SELECT "+goalColumns+" FROM goals WHERE id = ? AND user_id = ?", goalID, userID,
		), &goal)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Goal not found")
		}
		if err != nil {
			return err
		}
		if err := loadTracking(db, &goal); err != nil {
			return err
		}

		return c.JSON(goal)
	}
}

func UpdateGoalHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		goalID := c.Params("id")

		var req models.GoalRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateGoalRequest(&req); err != nil {
			return err
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var oldType string
		err = tx.QueryRow("SELECT type FROM goals WHERE id = ? AND user_id = ?", goalID, userID).Scan(&oldType)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Goal not found")
		}
		if err != nil {
			return err
		}

		if err := requireOwnedCategory(tx, userID, req.CategoryID); err != nil {
			return err
		}

		_, err = tx.Exec(
			`UPDATE goals SET category_id = ?, title = ?, description = ?, type = ?, importance = ?,
			effort_estimate_hours = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			req.CategoryID, strings.TrimSpace(req.Title), req.Description, req.Type,
			req.Importance, req.EffortEstimateHours, goalID,
		)
		if err != nil {
			return err
		}

		// Switching kind discards the other kind's record.
		if oldType != req.Type {
			if oldType == models.GoalProgressive {
				if _, err := tx.Exec("DELETE FROM milestones WHERE goal_id = ?", goalID); err != nil {
					return err
				}
			} else {
				if _, err := tx.Exec("DELETE FROM habit_plans WHERE goal_id = ?", goalID); err != nil {
					return err
				}
			}
		}

		if req.Type == models.GoalProgressive {
			if err := syncMilestones(tx, goalID, req.Milestones); err != nil {
				return err
			}
		} else {
			// Upsert keeps the plan's id stable so existing missions stay linked.
			var planID string
			err := tx.QueryRow("SELECT id FROM habit_plans WHERE goal_id = ?", goalID).Scan(&planID)
			if err == sql.ErrNoRows {
				_, err = tx.Exec(
					"INSERT INTO habit_plans (id, goal_id, frequency, times_per_week) VALUES (?, ?, ?, ?)",
					uuid.NewString(), goalID, req.HabitPlan.Frequency, req.HabitPlan.TimesPerWeek,
				)
			} else if err == nil {
				_, err = tx.Exec(
					"UPDATE habit_plans SET frequency = ?, times_per_week = ?, period = NULL WHERE id = ?",
					req.HabitPlan.Frequency, req.HabitPlan.TimesPerWeek, planID,
				)
			}
			if err != nil {
				return err
			}
		}

		var goal models.Goal
		if err := scanGoal(tx.QueryRow("SELECT "+goalColumns+" FROM goals WHERE id = ?", goalID), &goal); err != nil {
			return err
		}
		if err := loadTracking(tx, &goal); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		return c.JSON(goal)
	}
}

// syncMilestones reconciles the stored milestones with the submitted list:
// drafts with a known id are updated in place (keeping completion state),
// new ones are inserted, and stored rows missing from the list are removed.
func syncMilestones(tx *sql.Tx, goalID string, drafts []models.MilestoneDraft) error {
	existing := map[string]bool{}
	rows, err := tx.Query("SELECT id FROM milestones WHERE goal_id = ?", goalID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	kept := map[string]bool{}
	for i, draft := range drafts {
		if strings.TrimSpace(draft.Title) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Milestone title is required")
		}
		if draft.ID != "" && existing[draft.ID] {
			_, err := tx.Exec(
				"UPDATE milestones SET title = ?, target_date = ?, order_index = ? WHERE id = ?",
				strings.TrimSpace(draft.Title), draft.TargetDate, i, draft.ID,
			)
			if err != nil {
				return err
			}
			kept[draft.ID] = true
		} else {
			_, err := tx.Exec(
				"INSERT INTO milestones (id, goal_id, title, target_date, order_index) VALUES (?, ?, ?, ?, ?)",
				uuid.NewString(), goalID, strings.TrimSpace(draft.Title), draft.TargetDate, i,
			)
			if err != nil {
				return err
			}
		}
	}

	for id := range existing {
		if !kept[id] {
			if _, err := tx.Exec("DELETE FROM milestones WHERE id = ?", id); err != nil {
				return err
			}
		}
	}
	return nil
}

// CompleteGoalHandler marks a goal completed. Completing an already
// completed goal is a no-op. Goal completion itself does not award points;
// only missions feed the ledger.
func CompleteGoalHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		goalID := c.Params("id")

		res, err := db.Exec(
			"UPDATE goals SET status = 'completed', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
			goalID, userID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Goal not found")
		}

		var goal models.Goal
		if err := scanGoal(db.QueryRow("SELECT "+goalColumns+" FROM goals WHERE id = ?", goalID), &goal); err != nil {
			return err
		}
		if err := loadTracking(db, &goal); err != nil {
			return err
		}

		return c.JSON(goal)
	}
}

func UpdateMilestoneHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		goalID := c.Params("id")
		milestoneID := c.Params("milestoneId")

		var req models.UpdateMilestoneRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		res, err := db.Exec(
			`UPDATE milestones SET is_completed = ?
			WHERE id = ? AND goal_id = ? AND goal_id IN (SELECT id FROM goals WHERE user_id = ?)`,
			req.IsCompleted, milestoneID, goalID, userID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Milestone not found")
		}

		var m models.Milestone
		err = db.QueryRow(
			"SELECT id, goal_id, title, target_date, order_index, is_completed FROM milestones WHERE id = ?",
			milestoneID,
		).Scan(&m.ID, &m.GoalID, &m.Title, &m.TargetDate, &m.OrderIndex, &m.IsCompleted)
		if err != nil {
			return err
		}

		return c.JSON(m)
	}
}

func DeleteGoalHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		goalID := c.Params("id")

		res, err := db.Exec("DELETE FROM goals WHERE id = ? AND user_id = ?", goalID, userID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Goal not found")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
