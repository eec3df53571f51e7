package api

import (
	"database/sql"
	"strings"
	"time"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	planHoursDefault = 5
	planHoursMax     = 50
)

// CreatePlanHandler builds a long-term plan: the plan row, its six two-week
// cycles and every cycle/goal pairing are written in one transaction, so a
// plan never exists half-built.
func CreatePlanHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.CreatePlanRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Plan title is required")
		}
		if len(req.Goals) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Select at least one goal for the plan")
		}
		for _, g := range req.Goals {
			if g.ExpectedHours != nil && (*g.ExpectedHours < 1 || *g.ExpectedHours > planHoursMax) {
				return fiber.NewError(fiber.StatusBadRequest, "expected_hours must be between 1 and 50")
			}
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var activeID string
		err = tx.QueryRow(
			"SELECT id FROM long_terms WHERE user_id = ? AND status = 'active'", userID,
		).Scan(&activeID)
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "You already have an active long-term plan. Archive it first.")
		}
		if err != sql.ErrNoRows {
			return err
		}

		// Every selected goal must exist, belong to the user and still be active.
		for _, g := range req.Goals {
			var status string
			err := tx.QueryRow(
				"SELECT status FROM goals WHERE id = ? AND user_id = ?", g.GoalID, userID,
			).Scan(&status)
			if err == sql.ErrNoRows {
				return fiber.NewError(fiber.StatusBadRequest, "Goal not found: "+g.GoalID)
			}
			if err != nil {
				return err
			}
			if status != "active" {
				return fiber.NewError(fiber.StatusBadRequest, "Completed goals cannot join a plan")
			}
		}

		start := NextMonday(time.Now().UTC())
		planID := uuid.NewString()
		_, err = tx.Exec(
			"INSERT INTO long_terms (id, user_id, title, start_date, end_date) VALUES (?, ?, ?, ?, ?)",
			planID, userID, title, start.Format("2006-01-02"), PlanEndDate(start),
		)
		if err != nil {
			return err
		}

		for _, w := range BuildCycles(start) {
			cycleID := uuid.NewString()
			_, err := tx.Exec(
				"INSERT INTO cycles (id, long_term_id, title, start_date, end_date, order_index) VALUES (?, ?, ?, ?, ?, ?)",
				cycleID, planID, w.Title, w.StartDate, w.EndDate, w.Order,
			)
			if err != nil {
				return err
			}
			for _, g := range req.Goals {
				hours := planHoursDefault
				if g.ExpectedHours != nil {
					hours = *g.ExpectedHours
				}
				_, err := tx.Exec(
					"INSERT INTO cycle_goals (id, cycle_id, goal_id, expected_progress, expected_hours) VALUES (?, ?, ?, ?, ?)",
					uuid.NewString(), cycleID, g.GoalID, g.ExpectedProgress, hours,
				)
				if err != nil {
					return err
				}
			}
		}

		var plan models.LongTerm
		err = tx.QueryRow(
			"SELECT id, user_id, title, start_date, end_date, status, created_at FROM long_terms WHERE id = ?",
			planID,
		).Scan(&plan.ID, &plan.UserID, &plan.Title, &plan.StartDate, &plan.EndDate, &plan.Status, &plan.CreatedAt)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(plan)
	}
}

func ListPlansHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		query := "SELECT id, user_id, title, start_date, end_date, status, created_at FROM long_terms WHERE user_id = ?"
		args := []any{userID}
		if status := c.Query("status"); status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
		query += " ORDER BY created_at DESC"

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		plans := []models.LongTerm{}
		for rows.Next() {
			var p models.LongTerm
			if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt); err != nil {
				return err
			}
			plans = append(plans, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(plans)
	}
}

func ListCyclesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		planID := c.Params("id")

		var owner string
		err := db.QueryRow("SELECT user_id FROM long_terms WHERE id = ?", planID).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != userID) {
			return fiber.NewError(fiber.StatusNotFound, "Plan not found")
		}
		if err != nil {
			return err
		}

		rows, err := db.Query(
			"SELECT id, long_term_id, title, start_date, end_date, order_index FROM cycles WHERE long_term_id = ? ORDER BY order_index ASC",
			planID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		cycles := []models.Cycle{}
		for rows.Next() {
			var cy models.Cycle
			if err := rows.Scan(&cy.ID, &cy.LongTermID, &cy.Title, &cy.StartDate, &cy.EndDate, &cy.OrderIndex); err != nil {
				return err
			}
			cycles = append(cycles, cy)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(cycles)
	}
}

func ListCycleGoalsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		cycleID := c.Params("id")

		var owner string
		err := db.QueryRow(
			`SELECT lt.user_id FROM cycles cy JOIN long_terms lt ON lt.id = cy.long_term_id WHERE cy.id = ?`,
			cycleID,
		).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != userID) {
			return fiber.NewError(fiber.StatusNotFound, "Cycle not found")
		}
		if err != nil {
			return err
		}

		rows, err := db.Query(
			"SELECT id, cycle_id, goal_id, expected_progress, expected_hours FROM cycle_goals WHERE cycle_id = ?",
			cycleID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		goals := []models.CycleGoal{}
		for rows.Next() {
			var cg models.CycleGoal
			if err := rows.Scan(&cg.ID, &cg.CycleID, &cg.GoalID, &cg.ExpectedProgress, &cg.ExpectedHours); err != nil {
				return err
			}
			goals = append(goals, cg)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(goals)
	}
}

func ArchivePlanHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		planID := c.Params("id")

		res, err := db.Exec(
			"UPDATE long_terms SET status = 'archived' WHERE id = ? AND user_id = ?",
			planID, userID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Plan not found")
		}

		var plan models.LongTerm
		err = db.QueryRow(
			"SELECT id, user_id, title, start_date, end_date, status, created_at FROM long_terms WHERE id = ?",
			planID,
		).Scan(&plan.ID, &plan.UserID, &plan.Title, &plan.StartDate, &plan.EndDate, &plan.Status, &plan.CreatedAt)
		if err != nil {
			return err
		}

		return c.JSON(plan)
	}
}
