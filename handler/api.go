package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rental-assistant/internal/domain"
	"rental-assistant/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"

	msgNotJSON         = "Request must be JSON"
	msgMissingText     = "Missing 'text' in request body"
	msgUpstreamPrefix  = "Failed to get response from AI: "
	msgUnexpected      = "An unexpected error occurred while processing your request."
	msgProductNotFound = "Product not found"
	msgInvalidLimit    = "Query parameter 'limit' must be an integer between 1 and 200"
	msgMissingUserID   = "Missing user id"
	msgRouteNotFound   = "Not found"
	msgMethodNotAllow  = "Method not allowed"
)

// MessageHandler runs one chat turn.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in usecase.MessageInput) (usecase.MessageOutput, error)
}

// ProductBrowser serves the read-only catalog endpoints.
type ProductBrowser interface {
	List() []domain.Product
	Get(id string) (domain.Product, error)
	Search(query string) []domain.Product
}

// MessageLogReader serves the live message log.
type MessageLogReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]domain.LogEntry, error)
}

// RequestRecorder is implemented by metrics.Metrics.
type RequestRecorder interface {
	RecordRequest(route string, status int, duration time.Duration)
}

// Services groups the use cases exposed over HTTP.
type Services struct {
	Messages MessageHandler
	Products ProductBrowser
	Log      MessageLogReader
}

func (s Services) validate() error {
	if s.Messages == nil {
		return errors.New("handler: message handler must not be nil")
	}
	if s.Products == nil {
		return errors.New("handler: product browser must not be nil")
	}
	if s.Log == nil {
		return errors.New("handler: message log reader must not be nil")
	}
	return nil
}

type messageRequest struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

type messageResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// result is a transport-neutral response.
type result struct {
	status int
	body   any
}

type api struct {
	svc Services
	log zerolog.Logger
}

func (a *api) postMessage(ctx context.Context, contentType string, body []byte) result {
	if !isJSON(contentType) {
		return errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput, msgNotJSON)
	}
	var req messageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput, msgNotJSON)
	}

	out, err := a.svc.Messages.HandleMessage(ctx, usecase.MessageInput{Text: req.Text, UserID: req.UserID})
	if err != nil {
		return a.mapError(err)
	}
	return result{status: http.StatusOK, body: messageResponse{Status: "success", Reply: out.Reply}}
}

func (a *api) listProducts() result {
	return result{status: http.StatusOK, body: a.svc.Products.List()}
}

func (a *api) searchProducts(query string) result {
	return result{status: http.StatusOK, body: a.svc.Products.Search(query)}
}

func (a *api) getProduct(id string) result {
	p, err := a.svc.Products.Get(id)
	if err != nil {
		return a.mapError(err)
	}
	return result{status: http.StatusOK, body: p}
}

func (a *api) listMessages(ctx context.Context, userID, rawLimit string) result {
	limit := 0
	if rawLimit = strings.TrimSpace(rawLimit); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 {
			return errorResult(http.StatusBadRequest, usecase.ErrorInvalidInput, msgInvalidLimit)
		}
		limit = n
	}
	entries, err := a.svc.Log.Recent(ctx, userID, limit)
	if err != nil {
		return a.mapError(err)
	}
	return result{status: http.StatusOK, body: entries}
}

func (a *api) health() result {
	return result{status: http.StatusOK, body: healthResponse{OK: true}}
}

// mapError turns use case failures into client-facing responses. Only
// provider errors surface their text; everything else is generic.
func (a *api) mapError(err error) result {
	ucErr, ok := usecase.AsError(err)
	if !ok {
		a.log.Error().Err(err).Msg("unexpected error")
		return errorResult(http.StatusInternalServerError, usecase.ErrorInternal, msgUnexpected)
	}

	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return errorResult(http.StatusBadRequest, ucErr.Code, invalidInputMessage(ucErr.Reason))
	case usecase.ErrorNotFound:
		return errorResult(http.StatusNotFound, ucErr.Code, msgProductNotFound)
	case usecase.ErrorUpstream:
		a.log.Error().Err(err).Str("reason", ucErr.Reason).Msg("model call failed")
		return errorResult(http.StatusInternalServerError, ucErr.Code, msgUpstreamPrefix+ucErr.Detail())
	default:
		a.log.Error().Err(err).Str("reason", ucErr.Reason).Msg("request failed")
		return errorResult(http.StatusInternalServerError, usecase.ErrorInternal, msgUnexpected)
	}
}

func invalidInputMessage(reason string) string {
	switch reason {
	case "missing_text":
		return msgMissingText
	case "missing_user_id":
		return msgMissingUserID
	case "invalid_limit":
		return msgInvalidLimit
	default:
		return "Invalid request"
	}
}

func errorResult(status int, code usecase.ErrorCode, msg string) result {
	return result{status: status, body: errorResponse{Error: msg, Code: string(code)}}
}

// isJSON accepts a missing content type; anything declared must be JSON.
func isJSON(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
