// Package api serves the dashboard JSON API on Fiber.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/pipeline"
)

var validate = validator.New()

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewApp builds the Fiber app with every /api/v1 route registered.
func NewApp(explorer *pipeline.Explorer, sessions *pipeline.Sessions, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "rainfall-explorer",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	RegisterRoutes(app, explorer, sessions)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, explorer *pipeline.Explorer, sessions *pipeline.Sessions) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations", func(c *fiber.Ctx) error {
		return c.JSON(explorer.Registry().All())
	})

	v1.Get("/regions/:key", func(c *fiber.Ctx) error {
		key, err := pathParam(c, "key")
		if err != nil {
			return err
		}
		entry, loc, err := explorer.Region(c.UserContext(), key)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"location": loc, "entry": entry})
	})

	v1.Get("/legend/:metric", func(c *fiber.Ctx) error {
		kind, err := domain.ParseMetricKind(c.Params("metric"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{
			"metric":  kind,
			"title":   kind.Title(),
			"entries": domain.Legend(kind),
			"no_data": domain.NoDataColor,
		})
	})

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		s := sessions.Open()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": s.ID, "metric": s.Metric()})
	})

	v1.Delete("/sessions/:id", func(c *fiber.Ctx) error {
		if err := sessions.Close(c.Params("id")); err != nil {
			return mapError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/sessions/:id/metric", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		var req metricRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		kind, err := domain.ParseMetricKind(req.Metric)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		s.SetMetric(kind)
		return c.JSON(fiber.Map{"id": s.ID, "metric": kind})
	})

	v1.Get("/sessions/:id/chart", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		var q chartQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		view, err := s.Select(c.UserContext(), q.Location, domain.Granularity(q.Granularity))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(view)
	})

	v1.Get("/sessions/:id/choropleth", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"metric": s.Metric(), "regions": s.Choropleth()})
	})

	v1.Get("/sessions/:id/map", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		body, err := s.Map()
		if err != nil {
			return mapError(err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(body)
	})
}

// metricRequest is the body of a metric change.
type metricRequest struct {
	Metric string `json:"metric" validate:"required,oneof=amount trend variability"`
}

// chartQuery holds query parameters for the chart endpoint.
type chartQuery struct {
	Location    string `validate:"required"`
	Granularity string `validate:"oneof=yearly monthly daily"`
}

func (q *chartQuery) bind(c *fiber.Ctx) error {
	q.Location = c.Query("location")
	q.Granularity = c.Query("granularity", string(domain.Yearly))
	return validate.Struct(q)
}

func pathParam(c *fiber.Ctx, name string) (string, error) {
	v, err := url.PathUnescape(c.Params(name))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}

// mapError translates domain and pipeline errors to HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownLocation):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSourceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "precipitation archive unavailable, retry later")
	case errors.Is(err, pipeline.ErrNoBoundaries):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "request cancelled")
	default:
		return err
	}
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request error", "path", c.Path(), "method", c.Method(), "status", code, "error", err)
		} else {
			logger.Debug("request rejected", "path", c.Path(), "method", c.Method(), "status", code, "error", err)
		}

		return c.Status(code).JSON(ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
	}
}

// NewHandler exposes the Fiber app as a net/http handler for mounting on the
// service mux.
func NewHandler(explorer *pipeline.Explorer, sessions *pipeline.Sessions, logger *slog.Logger) http.Handler {
	return adaptor.FiberApp(NewApp(explorer, sessions, logger))
}
