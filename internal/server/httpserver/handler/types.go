package handler

import (
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
)

// Response is the standard API response envelope.
// All JSON API responses use this format; downloads, exports and
// /config.json are written bare.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// ListBoardsResponse is the response body for GET /api/v1/boards.
type ListBoardsResponse struct {
	Resident  []service.BoardStats `json:"resident"`
	Persisted []snapshot.Info      `json:"persisted"`
}

// ClientConfig is the body of GET /config.json. Key names match what
// browser clients of earlier releases read.
type ClientConfig struct {
	MaxEmitCount       int      `json:"MAX_EMIT_COUNT"`
	MaxEmitCountPeriod int64    `json:"MAX_EMIT_COUNT_PERIOD"`
	MaxBoardSize       float64  `json:"MAX_BOARD_SIZE"`
	MaxChildren        int      `json:"MAX_CHILDREN"`
	BlockedTools       []string `json:"BLOCKED_TOOLS"`
	AutoFingerWhiteout bool     `json:"AUTO_FINGER_WHITEOUT"`
}
