package api

import (
	"database/sql"
	"strings"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
)

func GetUserProfileHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var user models.User
		var profile models.Profile
		err := db.QueryRow(
			`SELECT u.id, u.username, COALESCE(u.email, ''), u.created_at,
				COALESCE(p.display_name, u.username), COALESCE(p.timezone, 'UTC')
			FROM users u LEFT JOIN profiles p ON p.user_id = u.id
			WHERE u.id = ?`,
			userID,
		).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &profile.DisplayName, &profile.Timezone)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"id":           user.ID,
			"username":     user.Username,
			"email":        user.Email,
			"display_name": profile.DisplayName,
			"timezone":     profile.Timezone,
			"created_at":   user.CreatedAt,
		})
	}
}

func UpdateUserProfileHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req models.UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.DisplayName == nil && req.Timezone == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
		}

		if req.Timezone != nil && strings.TrimSpace(*req.Timezone) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Timezone cannot be empty")
		}

		// The profile row exists from registration, but tolerate its absence.
		_, err := db.Exec("INSERT OR IGNORE INTO profiles (user_id) VALUES (?)", userID)
		if err != nil {
			return err
		}

		if req.DisplayName != nil {
			if _, err := db.Exec(
				"UPDATE profiles SET display_name = ? WHERE user_id = ?",
				strings.TrimSpace(*req.DisplayName), userID,
			); err != nil {
				return err
			}
		}
		if req.Timezone != nil {
			if _, err := db.Exec(
				"UPDATE profiles SET timezone = ? WHERE user_id = ?",
				strings.TrimSpace(*req.Timezone), userID,
			); err != nil {
				return err
			}
		}

		var profile models.Profile
		err = db.QueryRow(
			"SELECT user_id, display_name, timezone, created_at FROM profiles WHERE user_id = ?",
			userID,
		).Scan(&profile.UserID, &profile.DisplayName, &profile.Timezone, &profile.CreatedAt)
		if err != nil {
			return err
		}

		return c.JSON(profile)
	}
}

func UpdateUserEmailHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		email := strings.TrimSpace(req.Email)
		if email == "" || !strings.Contains(email, "@") {
			return fiber.NewError(fiber.StatusBadRequest, "A valid email address is required")
		}

		if _, err := db.Exec("UPDATE users SET email = ? WHERE id = ?", email, userID); err != nil {
			return err
		}

		return c.JSON(fiber.Map{"email": email})
	}
}
