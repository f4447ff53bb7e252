package tools

import (
	"encoding/json"
	"testing"
)

func TestStatusConstants(t *testing.T) {
	t.Parallel()

	if StatusSuccess != "success" {
		t.Errorf("StatusSuccess = %q, want %q", StatusSuccess, "success")
	}
	if StatusError != "error" {
		t.Errorf("StatusError = %q, want %q", StatusError, "error")
	}
}

func TestErrorCodeConstants(t *testing.T) {
	t.Parallel()

	codes := map[ErrorCode]string{
		ErrCodeValidation: "ValidationError",
		ErrCodeNotFound:   "NotFound",
		ErrCodeNetwork:    "NetworkError",
		ErrCodeExecution:  "ExecutionError",
	}

	for code, want := range codes {
		if string(code) != want {
			t.Errorf("ErrorCode(%q) = %q, want %q", code, string(code), want)
		}
	}
}

func TestErrorResult(t *testing.T) {
	t.Parallel()

	result := errorResult(ErrCodeNotFound, "no such article")

	if result.Status != StatusError {
		t.Errorf("errorResult().Status = %q, want %q", result.Status, StatusError)
	}
	if result.Error == nil {
		t.Fatal("errorResult().Error is nil, want non-nil")
	}
	if result.Error.Code != ErrCodeNotFound {
		t.Errorf("errorResult().Error.Code = %q, want %q", result.Error.Code, ErrCodeNotFound)
	}
	if result.Error.Message != "no such article" {
		t.Errorf("errorResult().Error.Message = %q, want %q", result.Error.Message, "no such article")
	}
	if result.Data != nil {
		t.Errorf("errorResult().Data = %v, want nil", result.Data)
	}
}

// The model reads the JSON form of a Result, so the wire shape is part
// of the contract: empty fields must disappear rather than show up as
// nulls the model might echo.
func TestResult_JSONShape(t *testing.T) {
	t.Parallel()

	t.Run("success omits error and message", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(Result{
			Status: StatusSuccess,
			Data:   map[string]any{"summary": "a whale tale"},
		})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if decoded["status"] != "success" {
			t.Errorf("status = %v, want success", decoded["status"])
		}
		if _, ok := decoded["error"]; ok {
			t.Error("error field present on success, want omitted")
		}
		if _, ok := decoded["message"]; ok {
			t.Error("message field present, want omitted")
		}
		if decoded["data"] == nil {
			t.Error("data field missing")
		}
	})

	t.Run("error carries code and message", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(errorResult(ErrCodeNetwork, "searching videos: timeout"))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if decoded["status"] != "error" {
			t.Errorf("status = %v, want error", decoded["status"])
		}
		errField, ok := decoded["error"].(map[string]any)
		if !ok {
			t.Fatalf("error field = %T, want map", decoded["error"])
		}
		if errField["code"] != string(ErrCodeNetwork) {
			t.Errorf("error.code = %v, want %v", errField["code"], ErrCodeNetwork)
		}
		if errField["message"] != "searching videos: timeout" {
			t.Errorf("error.message = %v, want the failure text", errField["message"])
		}
		if _, ok := decoded["data"]; ok {
			t.Error("data field present on error, want omitted")
		}
	})
}
