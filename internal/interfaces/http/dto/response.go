package dto

import (
	"github.com/store/backend/internal/domain/shared"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	Details   []shared.FieldError `json:"details,omitempty"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates a VALIDATION_FAILED response with field details
func NewValidationErrorResponse(message, requestID string, details []shared.FieldError) ErrorResponse {
	return ErrorResponse{
		Code:      shared.CodeValidation,
		Message:   message,
		RequestID: requestID,
		Details:   details,
	}
}

// PageQuery holds the paging parameters of list endpoints: ?page=0&size=20&sort=id,desc
type PageQuery struct {
	Page int      `form:"page" binding:"omitempty,min=0"`
	Size int      `form:"size" binding:"omitempty,min=1"`
	Sort []string `form:"sort"`
}

// ToPageRequest converts the query into a normalized page request
func (q PageQuery) ToPageRequest() shared.PageRequest {
	return shared.PageRequest{
		Page: q.Page,
		Size: q.Size,
		Sort: shared.ParseSort(q.Sort),
	}.Normalize()
}

// SearchQuery adds the query string of the _search endpoints
type SearchQuery struct {
	PageQuery
	Query string `form:"query" binding:"required"`
}

// ReindexQuery selects the index to rebuild; empty means all of them
type ReindexQuery struct {
	Entity string `form:"entity"`
}

// ReindexResponse reports how many documents each rebuilt index holds
type ReindexResponse struct {
	Entity  string `json:"entity"`
	Indexed int64  `json:"indexed"`
}

// SyncStatsResponse counts search sync tasks by status
type SyncStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Done       int64 `json:"done"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
}

// NewSyncStatsResponse fills every status, missing ones as zero
func NewSyncStatsResponse(counts map[shared.SyncStatus]int64) SyncStatsResponse {
	return SyncStatsResponse{
		Pending:    counts[shared.SyncStatusPending],
		Processing: counts[shared.SyncStatusProcessing],
		Done:       counts[shared.SyncStatusDone],
		Failed:     counts[shared.SyncStatusFailed],
		Dead:       counts[shared.SyncStatusDead],
	}
}

// RetryDeadResponse reports how many dead tasks were re-queued
type RetryDeadResponse struct {
	Requeued int64 `json:"requeued"`
}

// ImageURLResponse is returned instead of a redirect when ?redirect=false
type ImageURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status     string            `json:"status"`
	Time       string            `json:"time"`
	Components map[string]string `json:"components"`
}
