package models

import (
	"net/http"

	"catabus.org/transit/internal/clock"
)

// ResponseModel Base response structure that can be reused
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data,omitempty"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
}

// NewOKResponse creates a successful response stamped with c's time.
func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return NewResponse(http.StatusOK, data, "OK", c)
}

func NewListResponse(list interface{}, c clock.Clock) ResponseModel {
	data := map[string]interface{}{
		"list": list,
	}
	return NewOKResponse(data, c)
}

func NewEntryResponse(entry interface{}, c clock.Clock) ResponseModel {
	data := map[string]interface{}{
		"entry": entry,
	}
	return NewOKResponse(data, c)
}

// NewResponse creates a standard response using the provided clock.
func NewResponse(code int, data interface{}, text string, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: c.NowUnixMilli(),
		Data:        data,
		Text:        text,
		Version:     2,
	}
}
