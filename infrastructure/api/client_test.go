package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func newTestServer(t *testing.T) (*chi.Mux, *Client) {
	t.Helper()
	router := chi.NewRouter()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return router, NewClient(server.URL, 5*time.Second, staticToken("tok-1"))
}

func TestGetDecodesEnvelope(t *testing.T) {
	router, client := newTestServer(t)
	router.Get("/chats", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"chats":   []map[string]string{{"id": "r1"}},
		})
	})

	var out struct {
		Chats []struct {
			Id string `json:"id"`
		} `json:"chats"`
	}
	if err := client.Get(context.Background(), "/chats", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(out.Chats) != 1 || out.Chats[0].Id != "r1" {
		t.Fatalf("decoded %+v", out)
	}
}

func TestSuccessFalseIsTypedError(t *testing.T) {
	router, client := newTestServer(t)
	router.Post("/chats/create", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "something went wrong",
		})
	})

	err := client.Post(context.Background(), "/chats/create", map[string]string{}, nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v; want *Error", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "something went wrong" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestContactRestrictedSentinel(t *testing.T) {
	router, client := newTestServer(t)
	router.Post("/chats/create", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "This user does not accept messages from you",
		})
	})

	err := client.Post(context.Background(), "/chats/create", map[string]string{}, nil)
	if !errors.Is(err, ErrContactRestricted) {
		t.Fatalf("err = %v; want ErrContactRestricted match", err)
	}
}

func TestOtherDomainErrorIsNotRestricted(t *testing.T) {
	router, client := newTestServer(t)
	router.Delete("/chats/r1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "chat not found",
		})
	})

	err := client.Delete(context.Background(), "/chats/r1", nil)
	if errors.Is(err, ErrContactRestricted) {
		t.Fatalf("err = %v unexpectedly matched ErrContactRestricted", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "chat not found" {
		t.Fatalf("err = %v; want *Error with error field fallback", err)
	}
}

func TestUploadMultipart(t *testing.T) {
	router, client := newTestServer(t)
	router.Put("/chats/media/r1", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("messageType"); got != "image" {
			t.Errorf("messageType = %q", got)
		}
		file, header, err := r.FormFile("media")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "pic.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	err := client.Upload(context.Background(), "/chats/media/r1", "media", "pic.png",
		strings.NewReader("fake-png"), map[string]string{"messageType": "image"}, nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
}
