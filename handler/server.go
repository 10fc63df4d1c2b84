package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"rental-assistant/internal/usecase"
)

const correlationLocal = "correlation_id"

// NewApp builds the long-running HTTP server over the same services as the
// Lambda handler.
func NewApp(svc Services, opts ...Option) (*fiber.App, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	a := &api{svc: svc, log: o.log}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// API Gateway hands the Lambda adapter decoded paths; match it.
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := http.StatusInternalServerError
			body := errorResponse{Error: msgUnexpected, Code: string(usecase.ErrorInternal)}
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
				switch fe.Code {
				case http.StatusNotFound:
					body = errorResponse{Error: msgRouteNotFound, Code: string(usecase.ErrorNotFound)}
				case http.StatusMethodNotAllowed:
					body = errorResponse{Error: msgMethodNotAllow, Code: "METHOD_NOT_ALLOWED"}
				}
			}
			if status >= http.StatusInternalServerError {
				o.log.Error().Err(err).Str(correlationLocal, correlationID(c)).Msg("unhandled error")
			}
			return c.Status(status).JSON(body)
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20

	app.Use(requestid.New(requestid.Config{
		Header:     correlationHeader,
		Generator:  uuid.NewString,
		ContextKey: correlationLocal,
	}))
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Run the error handler now so the logged status is the final one.
			if herr := app.ErrorHandler(c, err); herr != nil {
				return herr
			}
		}
		route := routeLabel(c, err)
		status := c.Response().StatusCode()
		if o.recorder != nil && route != routeMetrics {
			o.recorder.RecordRequest(route, status, time.Since(start))
		}
		o.log.Info().
			Str(correlationLocal, correlationID(c)).
			Str("method", c.Method()).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request completed")
		return nil
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type," + correlationHeader,
	}))
	app.Use(recover.New())

	app.Post(routeMessage, func(c *fiber.Ctx) error {
		return send(c, a.postMessage(c.UserContext(), c.Get(fiber.HeaderContentType), c.Body()))
	})
	app.Get(routeProducts, func(c *fiber.Ctx) error {
		return send(c, a.listProducts())
	})
	app.Get(routeProductSearch, func(c *fiber.Ctx) error {
		return send(c, a.searchProducts(c.Query("q")))
	})
	app.Get(routeProductByID, func(c *fiber.Ctx) error {
		return send(c, a.getProduct(c.Params("id")))
	})
	app.Get(routeMessagesByUser, func(c *fiber.Ctx) error {
		return send(c, a.listMessages(c.UserContext(), c.Params("userId"), c.Query("limit")))
	})
	app.Get(routeHealth, func(c *fiber.Ctx) error {
		return send(c, a.health())
	})
	if o.metrics != nil {
		app.Get(routeMetrics, adaptor.HTTPHandler(o.metrics))
	}

	return app, nil
}

func send(c *fiber.Ctx, res result) error {
	return c.Status(res.status).JSON(res.body)
}

// routeLabel keeps metric labels bounded: unmatched paths and preflights
// share one label.
func routeLabel(c *fiber.Ctx, err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) && (fe.Code == http.StatusNotFound || fe.Code == http.StatusMethodNotAllowed) {
		return routeUnmatched
	}
	if c.Method() == fiber.MethodOptions {
		return routeUnmatched
	}
	return c.Route().Path
}

func correlationID(c *fiber.Ctx) string {
	id, _ := c.Locals(correlationLocal).(string)
	return id
}
