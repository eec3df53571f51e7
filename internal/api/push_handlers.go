package api

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
)

type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func SubscribePushHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req pushSubscriptionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Endpoint and keys are required")
		}

		_, err := db.Exec(
			`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, endpoint) DO UPDATE SET p256dh = excluded.p256dh, auth = excluded.auth`,
			userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth,
		)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
	}
}

func UnsubscribePushHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(string)

		var req struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if req.Endpoint == "" {
			// No endpoint means drop every subscription for this user.
			if _, err := db.Exec("DELETE FROM push_subscriptions WHERE user_id = ?", userID); err != nil {
				return err
			}
		} else {
			if _, err := db.Exec(
				"DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?",
				userID, req.Endpoint,
			); err != nil {
				return err
			}
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
