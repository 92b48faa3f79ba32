package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload    CommandType = "RELOAD"
	CommandGetStatus CommandType = "GET_STATUS"
	CommandGetGrid   CommandType = "GET_GRID"
	CommandRefresh   CommandType = "REFRESH"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Visible       bool  `json:"visible"`
	WindowCount   int   `json:"window_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	DaemonRunning bool  `json:"daemon_running"`
}

// RectData is a pixel rectangle in grid coordinates.
type RectData struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CellData describes one occupied grid cell. Empty cells appear as JSON
// nulls in their column so row indices stay aligned with the live grid.
type CellData struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Window      uint32   `json:"window,omitempty"`
	ExePath     string   `json:"exe_path,omitempty"`
	BeginsGroup bool     `json:"begins_group,omitempty"`
	Selected    bool     `json:"selected,omitempty"`
	Rect        RectData `json:"rect"`
}

// ColumnData is one column of cells, top to bottom.
type ColumnData struct {
	Cells []*CellData `json:"cells"`
}

// GridData represents the data returned by GET_GRID
type GridData struct {
	Visible   bool         `json:"visible"`
	Search    string       `json:"search,omitempty"`
	MruColumn int          `json:"mru_column"`
	Bounds    RectData     `json:"bounds"`
	Columns   []ColumnData `json:"columns"`
}

// RefreshPayload represents the payload for the REFRESH command
type RefreshPayload struct {
	Full bool `json:"full,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
