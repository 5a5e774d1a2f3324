// Package httpapi wires the briefing endpoints into the Fiber app.
package httpapi

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/morning-briefing/internal/auth"
	"github.com/i474232898/morning-briefing/internal/briefing"
)

var validate = validator.New()

const indexPage = `<html>
    <head>
        <title>Morning Briefing</title>
        <style>
            body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
            h1 { color: #333; }
            code { background-color: #f5f5f5; padding: 2px 5px; border-radius: 3px; }
        </style>
    </head>
    <body>
        <h1>Morning Briefing</h1>
        <p>This is the backend for your morning briefing. To use it:</p>
        <ol>
            <li>Set up an automation (e.g. an iOS Shortcut) that calls: <code>GET /briefing</code></li>
            <li>Use a "Speak Text" action to have the summary read aloud</li>
        </ol>
        <p>The first time you use this, you may need to authorize calendar access.</p>
    </body>
</html>`

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, agg *briefing.Aggregator, flows *auth.FlowRegistry, creds *auth.Store) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(indexPage)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    "morning-briefing",
			"authorized": creds.Current() != nil,
		})
	})

	app.Get("/briefing", func(c *fiber.Ctx) error {
		result, err := agg.Briefing(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to produce briefing")
		}

		if result.Kind == briefing.KindAuthorizationRequired {
			return c.JSON(fiber.Map{
				"authorization_required": true,
				"authorization_url":      result.AuthorizationURL,
			})
		}
		return c.SendString(result.Text)
	})

	app.Get("/oauth/callback", func(c *fiber.Ctx) error {
		var q callbackQuery
		q.State = c.Query("state")
		q.Code = c.Query("code")
		if err := validate.Struct(q); err != nil {
			return c.Status(fiber.StatusBadRequest).
				SendString("Missing state or code parameter. Please restart authorization from /briefing.")
		}

		newCreds, err := flows.Complete(c.UserContext(), q.State, q.Code)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidState) {
				return c.Status(fiber.StatusBadRequest).
					SendString("This authorization link is invalid or has expired. Please restart authorization from /briefing.")
			}
			log.Printf("oauth callback: code exchange failed: %v", err)
			return c.Status(fiber.StatusBadGateway).
				SendString("Authorization could not be completed. Please try again.")
		}

		if err := creds.Save(newCreds); err != nil {
			log.Printf("oauth callback: cannot persist credentials: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store credentials")
		}

		return c.SendString("Authorization successful! You can close this window and request your briefing now.")
	})
}

// callbackQuery holds the OAuth redirect parameters.
type callbackQuery struct {
	State string `validate:"required"`
	Code  string `validate:"required"`
}
