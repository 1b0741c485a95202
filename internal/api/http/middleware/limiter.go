package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

// NewLimiterWithRedis throttles per principal rather than per IP, so clinics
// sharing an office gateway do not exhaust each other's budget. Requests
// arriving without an actor claim fall back to the client address.
func NewLimiterWithRedis(rdb *redis.Client) fiber.Handler {
	storage := fiberredis.NewFromConnection(rdb)
	return limiter.New(limiter.Config{
		Storage: storage,

		// Generous for booking flows, tight enough to blunt batch abuse.
		Max:               120,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c fiber.Ctx) string {
			if actor := c.Get(HeaderActorID); actor != "" {
				return actor
			}
			return c.IP()
		},
	})
}
