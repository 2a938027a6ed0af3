package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	var out struct {
		Paused bool `json:"paused"`
	}
	if err := PostJSON(context.Background(), srv.URL+"/api/pause", map[string]bool{"paused": true}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if !out.Paused {
		t.Errorf("echo: got %+v", out)
	}

	// no request body, response ignored
	err := PostJSON(context.Background(), srv.URL+"/api/pause", nil, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Errorf("expected 400 StatusError without JSON body, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/labels":
			json.NewEncoder(w).Encode([]string{"car"})
		case r.Method == http.MethodPut && r.URL.Path == "/api/camera":
			var in map[string]interface{}
			json.NewDecoder(r.Body).Decode(&in)
			json.NewEncoder(w).Encode(in)
		case r.URL.Path == "/api/detections":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	var labels []string
	if err := GetJSON(ctx, srv.URL+"/api/labels", &labels); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(labels) != 1 || labels[0] != "car" {
		t.Errorf("labels: got %v", labels)
	}

	var echoed map[string]interface{}
	if err := PutJSON(ctx, srv.URL+"/api/camera", map[string]interface{}{"preset": "fast"}, &echoed); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	if echoed["preset"] != "fast" {
		t.Errorf("echo: got %v", echoed)
	}

	var none map[string]interface{}
	if err := GetJSON(ctx, srv.URL+"/api/detections", &none); err != nil {
		t.Errorf("204 should not be an error: %v", err)
	}

	err := GetJSON(ctx, srv.URL+"/missing", &none)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Body != "nope" {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
}
