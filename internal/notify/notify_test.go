package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mmcdole/zenread/internal/domain"
)

type staticSettings domain.Settings

func (s staticSettings) Settings() domain.Settings { return domain.Settings(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleBook = domain.Book{ID: "b1", Title: "Война и мир", CurrentPage: 45, TotalPages: 180, ProgressPercent: 25}

func TestSyncRequiresConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.Settings
	}{
		{"empty token", domain.Settings{TelegramChatID: "42"}},
		{"empty chat", domain.Settings{TelegramBotToken: "123:abc"}},
		{"both empty", domain.Settings{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
			}))
			defer srv.Close()

			n := New(srv.URL, staticSettings(tt.settings), nil, quietLogger())
			err := n.Sync(context.Background(), sampleBook, 180)

			if !errors.Is(err, domain.ErrSyncConfigMissing) {
				t.Errorf("Sync = %v, want ErrSyncConfigMissing", err)
			}
			if domain.KindOf(err) != domain.KindSyncConfigMissing {
				t.Errorf("kind = %q", domain.KindOf(err))
			}
			if calls.Load() != 0 {
				t.Errorf("network calls = %d, want 0", calls.Load())
			}
		})
	}
}

func TestSyncPostsMessage(t *testing.T) {
	var gotPath, gotType string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	settings := staticSettings{TelegramBotToken: "123:abc", TelegramChatID: "42"}
	n := New(srv.URL+"/", settings, srv.Client(), quietLogger())

	if err := n.Sync(context.Background(), sampleBook, 180); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
	if gotBody.ChatID != "42" {
		t.Errorf("chat_id = %q", gotBody.ChatID)
	}
	want := "📖 Reading: \"Война и мир\"\n📍 Page 45 of 180 (25%)"
	if gotBody.Text != want {
		t.Errorf("text = %q, want %q", gotBody.Text, want)
	}
}

func TestSyncIsBestEffortOnAPIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	n := New(srv.URL, staticSettings{TelegramBotToken: "t", TelegramChatID: "c"}, nil, quietLogger())
	if err := n.Sync(context.Background(), sampleBook, 180); err != nil {
		t.Errorf("Sync = %v, want nil for a completed call", err)
	}
}

func TestSyncTransportFailure(t *testing.T) {
	n := New("http://127.0.0.1:1", staticSettings{TelegramBotToken: "secret-token", TelegramChatID: "c"}, nil, quietLogger())

	err := n.Sync(context.Background(), sampleBook, 180)
	if !errors.Is(err, domain.ErrSyncFailed) {
		t.Fatalf("Sync = %v, want ErrSyncFailed", err)
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Errorf("error leaks the bot token: %v", err)
	}
}

func TestFormatMessageBeforePagination(t *testing.T) {
	b := domain.Book{Title: "T", CurrentPage: 1}
	if got := FormatMessage(b, 0); got != "📖 Reading: \"T\"\n📍 Page 1 of 0 (0%)" {
		t.Errorf("FormatMessage = %q", got)
	}
}
