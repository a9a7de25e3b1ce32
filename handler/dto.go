package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"spaceapps-board/internal/domain"
)

const (
	msgFetchFailed    = "Failed to fetch data"
	msgSaveFailed     = "Failed to save data"
	msgDeleteFailed   = "Failed to delete data"
	msgFieldsRequired = "Name and message are required"
	msgInvalidBody    = "Invalid request body"
	msgNotFound       = "Data not found"
	msgDeleted        = "Data deleted successfully"
	msgRouteNotFound  = "Route not found"
	msgInternal       = "Internal server error"

	healthStatus  = "OK"
	healthMessage = "Space Apps board backend is running!"
	probeMessage  = "Hello from the Space Apps board backend!"
	timestampISO  = "2006-01-02T15:04:05.000Z"
	headerCorrID  = "X-Correlation-Id"
	localsCorrID  = "correlationID"
)

var validate = validator.New()

type createRequest struct {
	Name    string `json:"name" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type recordResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errMissingFields = errors.New("handler: name and message are required")

// decodeCreateRequest accepts exactly {name, message}. An empty body counts as
// missing fields; anything that is not that shape is a malformed body.
func decodeCreateRequest(body []byte) (createRequest, error) {
	var req createRequest
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return createRequest{}, fmt.Errorf("handler: decode body: %w", err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return createRequest{}, errors.New("handler: decode body: trailing data")
		}
	}
	if err := validate.Struct(req); err != nil {
		return createRequest{}, errMissingFields
	}
	return req, nil
}

func toRecordResponse(rec domain.Record) recordResponse {
	return recordResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Message:   rec.Message,
		CreatedAt: rec.CreatedAt.UTC(),
	}
}

func toRecordResponses(recs []domain.Record) []recordResponse {
	return lo.Map(recs, func(rec domain.Record, _ int) recordResponse {
		return toRecordResponse(rec)
	})
}
