package relayclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mfitzp/kropbot/internal/direction"
)

func TestReportRoundTrip(t *testing.T) {
	var gotStatus Status
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/rover/report" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotStatus); err != nil {
			t.Errorf("Bad report body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"ok","data":{"directions":[8,8,2]},"correlationId":"x"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "rover-token", time.Second)

	dirs, err := client.Report(context.Background(), Status{
		Direction:   8,
		Magnitude:   1.5,
		TotalCounts: map[direction.Code]int{8: 2},
		Controllers: 2,
	})
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}

	if len(dirs) != 3 || dirs[0] != 8 || dirs[2] != 2 {
		t.Errorf("Unexpected directions: %v", dirs)
	}
	if gotStatus.Direction != 8 || gotStatus.Controllers != 2 {
		t.Errorf("Unexpected status received: %+v", gotStatus)
	}
	if gotAuth != "Bearer rover-token" {
		t.Errorf("Unexpected auth header: %q", gotAuth)
	}
}

func TestReportCoercesGarbageDirections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"ok","data":{"directions":[4,99,-1]},"correlationId":"x"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)

	dirs, err := client.Report(context.Background(), Status{})
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}

	want := []direction.Code{4, direction.Stop, direction.Stop}
	for i, d := range dirs {
		if d != want[i] {
			t.Errorf("Direction %d: expected %d, got %d", i, want[i], d)
		}
	}
}

func TestReportTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"result":"ok","data":{"directions":[]},"correlationId":"x"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", 50*time.Millisecond)

	start := time.Now()
	_, err := client.Report(context.Background(), Status{})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed > 250*time.Millisecond {
		t.Errorf("Report did not respect poll timeout, took %v", elapsed)
	}
}

func TestReportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)

	if _, err := client.Report(context.Background(), Status{}); err == nil {
		t.Error("Expected error for 503 response")
	}
}

func TestReportUnreachableRelay(t *testing.T) {
	client := New("http://127.0.0.1:1", "", 100*time.Millisecond)

	if _, err := client.Report(context.Background(), Status{}); err == nil {
		t.Error("Expected error for unreachable relay")
	}
}

func TestUploadFrame(t *testing.T) {
	var gotBody []byte
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/rover/frame" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = buf[:n]
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"result":"ok","data":{"bytes":9},"correlationId":"x"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)

	if err := client.UploadFrame(context.Background(), []byte("jpeg-data")); err != nil {
		t.Fatalf("UploadFrame() failed: %v", err)
	}

	if string(gotBody) != "jpeg-data" {
		t.Errorf("Unexpected frame body: %q", gotBody)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("Unexpected content type: %q", gotContentType)
	}
}

func TestUploadFrameRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)

	if err := client.UploadFrame(context.Background(), []byte("x")); err == nil {
		t.Error("Expected error for rejected frame")
	}
}
