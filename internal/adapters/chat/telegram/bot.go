// Package telegram is the chat platform adapter: a thin client over the Bot
// API, plus the long-poll loop that turns private messages into commands and
// session replies. No SDK, just the HTTP API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
	"github.com/PabloGalante/hydrolog/internal/observability"
)

const defaultBaseURL = "https://api.telegram.org"

// Handler is what the poll loop needs from the check-in service.
type Handler interface {
	Register(ctx context.Context, id domain.UserID, username string) error
	StartCheckin(ctx context.Context, id domain.UserID) error
	HandleReply(id domain.UserID, text string) bool
}

type Bot struct {
	token   string
	baseURL string
	http    *http.Client
}

func NewBot(token string) *Bot {
	return &Bot{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 65 * time.Second},
	}
}

func (b *Bot) apiURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
}

// SendMessage posts one text message to a chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	buf, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL("sendMessage"), bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

// Send implements domain.Messenger. The user id is the decimal chat id; an
// id that does not parse is a user-resolution failure the caller logs and
// skips.
func (b *Bot) Send(ctx context.Context, id domain.UserID, text string) error {
	chatID, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return fmt.Errorf("resolving chat id %q: %w", id, err)
	}
	return b.SendMessage(ctx, chatID, text)
}

// ─────────────────────────────────────────
// Update polling
// ─────────────────────────────────────────

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
		From *struct {
			FirstName string `json:"first_name"`
			Username  string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// Poll long-polls getUpdates until ctx is cancelled, dispatching each
// private message to h. Commands run in their own goroutine because
// registration and check-ins block on human replies.
func (b *Bot) Poll(ctx context.Context, h Handler) {
	log := observability.Logger()
	log.Info("telegram poller started")

	var offset int64
	for ctx.Err() == nil {
		updates, err := b.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("telegram poll failed", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			b.dispatch(ctx, h, u)
		}
	}
	log.Info("telegram poller stopped")
}

func (b *Bot) getUpdates(ctx context.Context, offset int64) ([]update, error) {
	body := map[string]any{
		"timeout":         50,
		"offset":          offset,
		"allowed_updates": []string{"message"},
	}
	buf, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL("getUpdates"), bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram error: %s", resp.Status)
	}

	var out struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding getUpdates response: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getUpdates returned ok=false")
	}
	return out.Result, nil
}

func (b *Bot) dispatch(ctx context.Context, h Handler, u update) {
	if u.Message == nil || u.Message.Chat.Type != "private" {
		return
	}

	uid := domain.UserID(strconv.FormatInt(u.Message.Chat.ID, 10))
	chatID := u.Message.Chat.ID
	text := strings.TrimSpace(u.Message.Text)

	switch command(text) {
	case "/start", "/setup":
		name := displayName(u)
		go func() {
			// Outcomes are reported to the user by the service itself.
			_ = h.Register(ctx, uid, name)
		}()
	case "/log", "/hydrate":
		go func() {
			_ = h.StartCheckin(ctx, uid)
		}()
	default:
		if !h.HandleReply(uid, text) {
			_ = b.SendMessage(ctx, chatID,
				"No question is waiting for an answer. Use /setup to register or /log to record today's hydration.")
		}
	}
}

func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text, " ")
	// Group-style suffixes ("/log@hydrolog_bot") still resolve.
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

func displayName(u update) string {
	if u.Message.From == nil {
		return "there"
	}
	if u.Message.From.FirstName != "" {
		return u.Message.From.FirstName
	}
	if u.Message.From.Username != "" {
		return u.Message.From.Username
	}
	return "there"
}

var _ domain.Messenger = (*Bot)(nil)
