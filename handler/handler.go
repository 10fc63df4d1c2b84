// Package handler exposes the rental assistant over API Gateway (Lambda) and
// a standalone Fiber server. Both share routing semantics and error mapping.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rental-assistant/internal/usecase"
)

const (
	routeMessage        = "/api/message"
	routeProducts       = "/api/products"
	routeProductSearch  = "/api/products/search"
	routeProductByID    = "/api/products/:id"
	routeMessagesByUser = "/api/messages/:userId"
	routeHealth         = "/healthz"
	routeMetrics        = "/metrics"
	routeUnmatched      = "unmatched"
)

type options struct {
	log      zerolog.Logger
	recorder RequestRecorder
	metrics  http.Handler
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics records per-route request counts and latency.
func WithMetrics(r RequestRecorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithMetricsEndpoint serves h at /metrics. Only the Fiber app mounts it.
func WithMetricsEndpoint(h http.Handler) Option {
	return func(o *options) {
		o.metrics = h
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Handler adapts API Gateway proxy events to the use cases.
type Handler struct {
	api      *api
	log      zerolog.Logger
	recorder RequestRecorder
}

func NewHandler(svc Services, opts ...Option) (*Handler, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Handler{
		api:      &api{svc: svc, log: o.log},
		log:      o.log,
		recorder: o.recorder,
	}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.log.With().Str("correlation_id", correlationID).Logger()

	route, res := h.dispatch(ctx, event)

	resp, err := h.respond(correlationID, res)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	if h.recorder != nil {
		h.recorder.RecordRequest(route, resp.StatusCode, time.Since(start))
	}
	log.Info().
		Str("method", event.HTTPMethod).
		Str("route", route).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")
	return resp, nil
}

func (h *Handler) dispatch(ctx context.Context, event events.APIGatewayProxyRequest) (string, result) {
	method := strings.ToUpper(event.HTTPMethod)
	path := strings.TrimRight(event.Path, "/")
	if path == "" {
		path = "/"
	}

	if method == http.MethodOptions {
		return routeUnmatched, result{status: http.StatusNoContent}
	}

	switch {
	case path == routeMessage:
		if method != http.MethodPost {
			return routeMessage, errorResult(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", msgMethodNotAllow)
		}
		body, err := eventBody(event)
		if err != nil {
			return routeMessage, errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput, msgNotJSON)
		}
		return routeMessage, h.api.postMessage(ctx, headerValue(event.Headers, "Content-Type"), body)

	case path == routeHealth && method == http.MethodGet:
		return routeHealth, h.api.health()

	case path == routeProducts && method == http.MethodGet:
		return routeProducts, h.api.listProducts()

	case path == routeProductSearch && method == http.MethodGet:
		return routeProductSearch, h.api.searchProducts(queryValue(event, "q"))

	case strings.HasPrefix(path, routeProducts+"/") && method == http.MethodGet:
		return routeProductByID, h.api.getProduct(strings.TrimPrefix(path, routeProducts+"/"))

	case strings.HasPrefix(path, "/api/messages/") && method == http.MethodGet:
		return routeMessagesByUser, h.api.listMessages(ctx, strings.TrimPrefix(path, "/api/messages/"), queryValue(event, "limit"))
	}

	return routeUnmatched, errorResult(http.StatusNotFound, usecase.ErrorNotFound, msgRouteNotFound)
}

func (h *Handler) respond(correlationID string, res result) (events.APIGatewayProxyResponse, error) {
	headers := map[string]string{
		correlationHeader:             correlationID,
		"Access-Control-Allow-Origin": "*",
	}
	if res.status == http.StatusNoContent {
		headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
		headers["Access-Control-Allow-Headers"] = "Content-Type," + correlationHeader
		return events.APIGatewayProxyResponse{StatusCode: res.status, Headers: headers}, nil
	}

	raw, err := json.Marshal(res.body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    headers,
		Body:       string(raw),
	}, nil
}

func eventBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if event.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(event.Body)
	}
	return []byte(event.Body), nil
}

func queryValue(event events.APIGatewayProxyRequest, key string) string {
	if v, ok := event.QueryStringParameters[key]; ok {
		return v
	}
	if vs := event.MultiValueQueryStringParameters[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// headerValue looks up key case-insensitively; API Gateway forwards headers
// as sent by the client.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
