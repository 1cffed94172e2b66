package middleware

import "github.com/gofiber/fiber/v2"

// AllowFraming lets browsers embed the response (PDF previews) in frames served by the
// listed ancestors. It replaces any X-Frame-Options set earlier in the chain.
func AllowFraming(ancestors string) fiber.Handler {
	if ancestors == "" {
		ancestors = "'self'"
	}
	csp := "frame-ancestors " + ancestors + ";"
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Response().Header.Del(fiber.HeaderXFrameOptions)
		c.Set(fiber.HeaderContentSecurityPolicy, csp)
		return err
	}
}
