package api

import (
	"database/sql"
	"strings"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireTopLevelParent verifies the chosen parent exists, belongs to the
// user and is itself top-level. Categories form a two-level tree: children
// cannot have children.
func requireTopLevelParent(db *sql.DB, userID, parentID string) error {
	var parentOfParent sql.NullString
	err := db.QueryRow(
		"SELECT parent_id FROM categories WHERE id = ? AND user_id = ?",
		parentID, userID,
	).Scan(&parentOfParent)
	if err == sql.ErrNoRows {
		return fiber.NewError(fiber.StatusBadRequest, "Parent category not found")
	}
	if err != nil {
		return err
	}
	if parentOfParent.Valid {
		return fiber.NewError(fiber.StatusBadRequest, "Parent must be a top-level category")
	}
	return nil
}

func CreateCategoryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.CategoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Category name is required")
		}

		if req.ParentID != nil {
			if err := requireTopLevelParent(db, userID, *req.ParentID); err != nil {
				return err
			}
		}

		categoryID := uuid.NewString()
		_, err := db.Exec(
			"INSERT INTO categories (id, user_id, name, parent_id) VALUES (?, ?, ?, ?)",
			categoryID, userID, name, req.ParentID,
		)
		if isUniqueViolation(err) {
			return fiber.NewError(fiber.StatusConflict, "A category with this name already exists under this parent")
		}
		if err != nil {
			return err
		}

		var category models.Category
		err = db.QueryRow(
			"SELECT id, user_id, name, parent_id, created_at FROM categories WHERE id = ?",
			categoryID,
		).Scan(&category.ID, &category.UserID, &category.Name, &category.ParentID, &category.CreatedAt)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(category)
	}
}

func ListCategoriesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		rows, err := db.Query(
			"SELECT id, user_id, name, parent_id, created_at FROM categories WHERE user_id = ? ORDER BY name ASC",
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		categories := []models.Category{}
		for rows.Next() {
			var cat models.Category
			if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.ParentID, &cat.CreatedAt); err != nil {
				return err
			}
			categories = append(categories, cat)
		}

		return c.JSON(categories)
	}
}

func UpdateCategoryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		categoryID := c.Params("id")

		var req models.CategoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Category name is required")
		}

		var exists string
		err := db.QueryRow(
			"SELECT id FROM categories WHERE id = ? AND user_id = ?",
			categoryID, userID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}
		if err != nil {
			return err
		}

		if req.ParentID != nil {
			if *req.ParentID == categoryID {
				return fiber.NewError(fiber.StatusBadRequest, "A category cannot be its own parent")
			}
			if err := requireTopLevelParent(db, userID, *req.ParentID); err != nil {
				return err
			}
			// A category that still has children must stay top-level.
			var childID string
			err := db.QueryRow("SELECT id FROM categories WHERE parent_id = ? LIMIT 1", categoryID).Scan(&childID)
			if err == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Categories with subcategories cannot be moved under a parent")
			}
			if err != sql.ErrNoRows {
				return err
			}
		}

		_, err = db.Exec(
			"UPDATE categories SET name = ?, parent_id = ? WHERE id = ?",
			name, req.ParentID, categoryID,
		)
		if isUniqueViolation(err) {
			return fiber.NewError(fiber.StatusConflict, "A category with this name already exists under this parent")
		}
		if err != nil {
			return err
		}

		var category models.Category
		err = db.QueryRow(
			"SELECT id, user_id, name, parent_id, created_at FROM categories WHERE id = ?",
			categoryID,
		).Scan(&category.ID, &category.UserID, &category.Name, &category.ParentID, &category.CreatedAt)
		if err != nil {
			return err
		}

		return c.JSON(category)
	}
}

func DeleteCategoryHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		categoryID := c.Params("id")

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var exists string
		err = tx.QueryRow(
			"SELECT id FROM categories WHERE id = ? AND user_id = ?",
			categoryID, userID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}
		if err != nil {
			return err
		}

		var childID string
		err = tx.QueryRow("SELECT id FROM categories WHERE parent_id = ? LIMIT 1", categoryID).Scan(&childID)
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "Cannot delete category with subcategories. Delete subcategories first.")
		}
		if err != sql.ErrNoRows {
			return err
		}

		var goalID string
		err = tx.QueryRow("SELECT id FROM goals WHERE category_id = ? LIMIT 1", categoryID).Scan(&goalID)
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "Cannot delete category that is used by goals. Move or delete goals first.")
		}
		if err != sql.ErrNoRows {
			return err
		}

		if _, err := tx.Exec("DELETE FROM categories WHERE id = ?", categoryID); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
