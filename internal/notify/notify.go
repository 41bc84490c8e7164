// Package notify sends reading progress to a Telegram chat through a bot.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/zenread/internal/domain"
)

// DefaultAPIURL is the Telegram Bot API base
const DefaultAPIURL = "https://api.telegram.org"

// SettingsSource supplies the current bot credentials
type SettingsSource interface {
	Settings() domain.Settings
}

// sendMessageRequest is the sendMessage body
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// telegramResponse is the envelope every Bot API call returns
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Notifier posts progress messages. Delivery is best-effort: once the request
// completes the sync counts as done, whatever the bot API answered.
type Notifier struct {
	apiURL   string
	settings SettingsSource
	client   *http.Client
	logger   *slog.Logger
}

// New creates a Notifier. An empty apiURL uses DefaultAPIURL.
func New(apiURL string, settings SettingsSource, client *http.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Notifier{
		apiURL:   strings.TrimRight(apiURL, "/"),
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// FormatMessage renders the progress text sent to the chat
func FormatMessage(book domain.Book, pageCount int) string {
	return fmt.Sprintf("📖 Reading: %q\n📍 Page %d of %d (%d%%)",
		book.Title, book.CurrentPage, pageCount, book.ProgressPercent)
}

// Sync sends book's progress. Missing credentials fail before any request is made.
func (n *Notifier) Sync(ctx context.Context, book domain.Book, pageCount int) error {
	s := n.settings.Settings()
	if !s.HasTelegram() {
		return &domain.SyncError{Kind: domain.KindSyncConfigMissing}
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID: s.TelegramChatID,
		Text:   FormatMessage(book, pageCount),
	})
	if err != nil {
		return &domain.SyncError{Kind: domain.KindSyncFailed, Err: err}
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, s.TelegramBotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &domain.SyncError{Kind: domain.KindSyncFailed, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The token is part of the URL; keep it out of logs and messages
		err = redact(err, s.TelegramBotToken)
		n.logger.Error("failed to send progress", "error", err, "bookID", book.ID)
		return &domain.SyncError{Kind: domain.KindSyncFailed, Err: err}
	}
	defer resp.Body.Close()

	var tr telegramResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &tr); err != nil || !tr.OK {
		n.logger.Warn("telegram did not acknowledge progress",
			"status", resp.StatusCode, "description", tr.Description, "bookID", book.ID)
		return nil
	}

	n.logger.Info("progress synced", "bookID", book.ID, "page", book.CurrentPage, "pages", pageCount)
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "<token>"), err: err}
}
