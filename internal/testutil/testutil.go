// Package testutil provides common test utilities and helpers for SafePath tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SafePath-UK/SafePath/internal/api"
	"github.com/SafePath-UK/SafePath/internal/engine"
	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
	"github.com/SafePath-UK/SafePath/internal/store"
)

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer(t *testing.T) *api.Server {
	t.Helper()
	bank, err := phrasebank.Load()
	if err != nil {
		t.Fatalf("failed to load phrasebank: %v", err)
	}
	st := store.NewInMemoryStore()

	return api.NewServer(engine.New(bank, nil, nil), st)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// AssertResponseCount validates the number of responses in store matches expected.
func AssertResponseCount(t *testing.T, store store.Store, expected int, context string) {
	t.Helper()
	responses, err := store.GetResponses()
	if err != nil {
		t.Fatalf("%s: failed to get responses: %v", context, err)
	}
	if len(responses) != expected {
		t.Errorf("%s: expected %d responses, got %d", context, expected, len(responses))
	}
}

// SeedTestData adds sample directory services and message logs to the store.
func SeedTestData(t *testing.T, store store.Store) {
	t.Helper()

	testServices := []models.Service{
		{Name: "Booth Centre", LocalAuthority: "Manchester", Category: "housing", Phone: "0161 308 2096"},
		{Name: "Coffee4Craig", LocalAuthority: "Manchester", Category: "housing", Phone: "0161 273 3774"},
	}

	for _, svc := range testServices {
		if _, err := store.AddService(svc); err != nil {
			t.Fatalf("failed to add test service: %v", err)
		}
	}

	testResponses := []models.Response{
		{From: "p_447700900123", Body: "test response 1", Time: 10},
		{From: "p_447700900456", Body: "test response 2", Time: 20},
	}

	for _, response := range testResponses {
		if err := store.AddResponse(response); err != nil {
			t.Fatalf("failed to add test response: %v", err)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
