package airtable

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ScheduleSync/internal/interfaces"
)

// APIError Airtable 返回的非2xx响应
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	kind       error // 对应的存储错误分类，可能为 nil
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable %d %s", e.StatusCode, e.Type)
}

func (e *APIError) Unwrap() error { return e.kind }

// newAPIError 解析错误响应体；Airtable 的 error 字段可能是对象也可能是字符串
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr.kind = interfaces.ErrStoreUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		apiErr.kind = interfaces.ErrTableNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		apiErr.kind = interfaces.ErrStoreUnavailable
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		apiErr.Type = http.StatusText(resp.StatusCode)
		return apiErr
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Error) == 0 {
		apiErr.Type = http.StatusText(resp.StatusCode)
		return apiErr
	}
	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Type, apiErr.Message = detail.Type, detail.Message
		return apiErr
	}
	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		apiErr.Type = code
	}
	return apiErr
}
