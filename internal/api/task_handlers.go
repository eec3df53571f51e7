package api

import (
	"database/sql"
	"strings"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const taskColumns = "id, user_id, goal_id, title, due_date, estimated_hours, status, importance, is_generated, completed_at, created_at"

func scanTask(scan func(dest ...any) error, t *models.Task) error {
	return scan(
		&t.ID, &t.UserID, &t.GoalID, &t.Title, &t.DueDate, &t.EstimatedHours,
		&t.Status, &t.Importance, &t.IsGenerated, &t.CompletedAt, &t.CreatedAt,
	)
}

func CreateTaskHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.CreateTaskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Task title is required")
		}

		importance := 3
		if req.Importance != nil {
			if *req.Importance < 1 || *req.Importance > 5 {
				return fiber.NewError(fiber.StatusBadRequest, "Importance must be between 1 and 5")
			}
			importance = *req.Importance
		}

		if req.GoalID != nil {
			var id string
			err := db.QueryRow("SELECT id FROM goals WHERE id = ? AND user_id = ?", *req.GoalID, userID).Scan(&id)
			if err == sql.ErrNoRows {
				return fiber.NewError(fiber.StatusBadRequest, "Goal not found")
			}
			if err != nil {
				return err
			}
		}

		taskID := uuid.NewString()
		_, err := db.Exec(
			`INSERT INTO tasks (id, user_id, goal_id, title, due_date, estimated_hours, importance)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			taskID, userID, req.GoalID, title, req.DueDate, req.EstimatedHours, importance,
		)
		if err != nil {
			return err
		}

		var task models.Task
		row := db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", taskID)
		if err := scanTask(row.Scan, &task); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(task)
	}
}

// ListBacklogTasksHandler returns the backlog: tasks with no due date that
// are still open.
func ListBacklogTasksHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ? AND due_date IS NULL"
		args := []any{userID}
		if !(c.Query("include_done") == "true") {
			query += " AND status NOT IN ('done', 'skipped')"
		}
		query += " ORDER BY importance DESC, created_at ASC"

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tasks := []models.Task{}
		for rows.Next() {
			var t models.Task
			if err := scanTask(rows.Scan, &t); err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return c.JSON(tasks)
	}
}

// UpdateTaskStatusHandler moves a task between statuses. Unlike missions,
// tasks may be reopened: moving a done task back clears its completion time.
func UpdateTaskStatusHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		taskID := c.Params("id")

		var req models.UpdateTaskStatusRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		switch req.Status {
		case "todo", "in_progress", "done", "skipped":
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Status must be one of: todo, in_progress, done, skipped")
		}

		var res sql.Result
		var err error
		if req.Status == "done" {
			res, err = db.Exec(
				"UPDATE tasks SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
				req.Status, taskID, userID,
			)
		} else {
			res, err = db.Exec(
				"UPDATE tasks SET status = ?, completed_at = NULL WHERE id = ? AND user_id = ?",
				req.Status, taskID, userID,
			)
		}
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Task not found")
		}

		var task models.Task
		row := db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", taskID)
		if err := scanTask(row.Scan, &task); err != nil {
			return err
		}

		return c.JSON(task)
	}
}
