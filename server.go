package fedguard

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ServerOptions tune the HTTP control surface mounted around an Engine.
type ServerOptions struct {
	// AdminCIDRs restricts mutating endpoints (advance/reset/config) to
	// the listed networks. Empty means unrestricted.
	AdminCIDRs []string
	// MaxAdvancePerMinute throttles round transitions per caller.
	// Zero disables throttling.
	MaxAdvancePerMinute int
	// MaxBatchRounds caps the rounds query on /api/advance.
	MaxBatchRounds int

	Metrics     MetricsCollector
	Ledger      *RoundLedger
	History     HistoryStore
	RateLimiter RateLimiter
}

// NewServer mounts the engine's operations as a Fiber app. The engine has
// no awareness of how its output is displayed; this layer only serializes
// RoundState and forwards configuration.
func NewServer(engine *Engine, opts ServerOptions) *fiber.App {
	if opts.MaxBatchRounds <= 0 {
		opts.MaxBatchRounds = 200
	}
	if opts.RateLimiter == nil && opts.MaxAdvancePerMinute > 0 {
		opts.RateLimiter = NewTokenBucketRateLimiter(opts.MaxAdvancePerMinute, time.Minute)
	}
	adminNets := parseCIDRs(opts.AdminCIDRs)

	app := fiber.New(fiber.Config{
		AppName: "fedguard",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	guardAdmin := func(c *fiber.Ctx) error {
		if len(adminNets) > 0 && !ipInNets(clientIP(c), adminNets) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not allowed from this address"})
		}
		if opts.RateLimiter != nil {
			allowed, _, reset, err := opts.RateLimiter.Allow(clientIP(c))
			if err == nil && !allowed {
				c.Set("Retry-After", time.Until(reset).Round(time.Second).String())
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
			}
		}
		return c.Next()
	}

	app.Get("/api/state", func(c *fiber.Ctx) error {
		return c.JSON(engine.State())
	})

	app.Post("/api/advance", guardAdmin, func(c *fiber.Ctx) error {
		rounds := c.QueryInt("rounds", 1)
		if rounds < 1 || rounds > opts.MaxBatchRounds {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "rounds must be between 1 and " + strconv.Itoa(opts.MaxBatchRounds),
			})
		}
		var state RoundState
		for i := 0; i < rounds; i++ {
			state = engine.Advance()
		}
		return c.JSON(state)
	})

	app.Post("/api/reset", guardAdmin, func(c *fiber.Ctx) error {
		cfg := engine.Config()
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&cfg); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid config payload"})
			}
		}
		if err := engine.Reset(cfg); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(engine.State())
	})

	app.Get("/api/config", func(c *fiber.Ctx) error {
		return c.JSON(engine.Config())
	})

	app.Put("/api/config", guardAdmin, func(c *fiber.Ctx) error {
		cfg := engine.Config()
		if err := c.BodyParser(&cfg); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid config payload"})
		}
		if err := engine.SetConfig(cfg); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(engine.Config())
	})

	app.Get("/api/summary", func(c *fiber.Ctx) error {
		if opts.Ledger == nil {
			return c.JSON(LedgerSummary{Rejections: map[string]int{}})
		}
		return c.JSON(opts.Ledger.Summary())
	})

	app.Get("/api/history", func(c *fiber.Ctx) error {
		if opts.History == nil {
			return c.JSON(engine.State().History)
		}
		limit := c.QueryInt("limit", 0)
		points, err := opts.History.LoadHistory(engine.SessionID(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(points)
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		if opts.Metrics == nil {
			return c.SendString("")
		}
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
		return c.SendString(opts.Metrics.ExportPrometheus())
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":    "ok",
			"session":   engine.SessionID(),
			"timestamp": time.Now().Format(time.RFC3339),
			"services":  fiber.Map{},
		}
		services := health["services"].(fiber.Map)
		check := func(name string, err error) {
			if err != nil {
				health["status"] = "degraded"
				services[name] = fiber.Map{"status": "error", "error": err.Error()}
			} else {
				services[name] = fiber.Map{"status": "ok"}
			}
		}
		if opts.Metrics != nil {
			check("metrics", opts.Metrics.HealthCheck())
		}
		if opts.History != nil {
			check("history", opts.History.HealthCheck())
		}
		if opts.RateLimiter != nil {
			check("rate_limiter", opts.RateLimiter.HealthCheck())
		}
		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	})

	return app
}

func clientIP(c *fiber.Ctx) string {
	if ip := c.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.Get("X-Forwarded-For"); ip != "" {
		return strings.Split(ip, ",")[0]
	}
	return c.IP()
}

func parseCIDRs(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, raw := range cidrs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(trimmed); err == nil && n != nil {
			nets = append(nets, n)
			continue
		}
		// Support single IPs
		if ip := net.ParseIP(trimmed); ip != nil {
			mask := net.CIDRMask(len(ip)*8, len(ip)*8)
			nets = append(nets, &net.IPNet{IP: ip, Mask: mask})
		}
	}
	return nets
}

func ipInNets(ipStr string, nets []*net.IPNet) bool {
	if ipStr == "" {
		return false
	}
	addr := net.ParseIP(ipStr)
	if addr == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}
