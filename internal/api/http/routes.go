package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/poolwatch/poolwatch/internal/occupancy"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *occupancy.Service) {
	api := app.Group("/api")

	api.Get("/data", func(c *fiber.Ctx) error {
		var q historyQuery
		if err := q.bind(c); err != nil {
			return badRequest(c, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return badRequest(c, "hours must be between 1 and 8760")
		}

		samples, err := service.History(c.Context(), q.Hours)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch occupancy history")
		}

		data := make([]sampleResponse, 0, len(samples))
		for _, s := range samples {
			data = append(data, toSampleResponse(s))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    data,
		})
	})

	api.Get("/latest", func(c *fiber.Ctx) error {
		sample, err := service.Latest(c.Context())
		if err != nil {
			if errors.Is(err, occupancy.ErrNoData) {
				// An empty store is a normal state for a fresh
				// deployment, surfaced as an explicit no-data reply.
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"success": false,
					"error":   "no data available",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest sample")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    toSampleResponse(sample),
		})
	})
}

// sampleResponse mirrors the persisted sample plus the derived
// percentage the chart front end plots.
type sampleResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Occupancy  int       `json:"occupancy"`
	Capacity   *int      `json:"capacity,omitempty"`
	Percentage float64   `json:"percentage"`
	RawStatus  string    `json:"raw_status,omitempty"`
}

func toSampleResponse(s occupancy.Sample) sampleResponse {
	return sampleResponse{
		Timestamp:  s.Timestamp,
		Occupancy:  s.Occupancy,
		Capacity:   s.Capacity,
		Percentage: s.Percentage(),
		RawStatus:  s.RawStatus,
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Hours int `validate:"gte=1,lte=8760"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Hours = 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("hours must be a whole number")
		}
		h.Hours = n
	}
	return nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
