package detectlanguage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestDetect_FirstDetectionWins(t *testing.T) {
	t.Parallel()

	var gotQ, gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var req detectRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQ = req.Q
		_, _ = io.WriteString(w, `{"data":{"detections":[
			{"language":"fr","isReliable":true,"confidence":9.1},
			{"language":"en","isReliable":false,"confidence":1.2}
		]}}`)
	}))
	defer srv.Close()

	c, err := New("k3y", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lang, err := c.Detect(context.Background(), "bonjour le monde")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if lang != "fr" {
		t.Errorf("lang = %q; want fr", lang)
	}
	if gotPath != "/0.2/detect" {
		t.Errorf("path = %q; want /0.2/detect", gotPath)
	}
	if gotAuth != "Bearer k3y" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQ != "bonjour le monde" {
		t.Errorf("q = %q", gotQ)
	}
}

func TestDetect_NoDetections(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"detections":[]}}`)
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	if _, err := c.Detect(context.Background(), "???"); !errors.Is(err, ErrUndetermined) {
		t.Errorf("err = %v; want ErrUndetermined", err)
	}
}

func TestDetect_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":1,"message":"Invalid API key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := New("bad", WithBaseURL(srv.URL))
	if _, err := c.Detect(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 401")
	}
}
