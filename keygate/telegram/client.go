// Package telegram is the chat transport: a thin Bot API client plus a
// long-poll update source. The core talks to it only through narrow
// interfaces (membership checks, message delivery).
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"keygate-bot/keygate/membership"

	lru "github.com/hashicorp/golang-lru"
)

const defaultAPIBase = "https://api.telegram.org"

type Client struct {
	httpClient *http.Client
	pollClient *http.Client
	apiBase    string
	token      string
	titleCache *lru.Cache // handle -> chat title, for operator listings
}

func NewClient(token string) *Client {
	cache, _ := lru.New(128)
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Long polls hold the connection open for up to pollTimeout;
		// this client must outlive that.
		pollClient: &http.Client{Timeout: 60 * time.Second},
		apiBase:    defaultAPIBase,
		token:      token,
		titleCache: cache,
	}
}

// SetAPIBase overrides the Bot API host (tests).
func (c *Client) SetAPIBase(base string) { c.apiBase = base }

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

func (c *Client) makeRequest(ctx context.Context, client *http.Client, method string, params url.Values, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !apiResp.Ok {
		return fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}
	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(timeoutSec)},
		"allowed_updates": {`["message","callback_query"]`},
	}
	var updates []Update
	if err := c.makeRequest(ctx, c.pollClient, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage delivers text to a chat. The returned message carries
// the delivery reference the core records for the audit trail.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup, parseMode string) (*Message, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	if parseMode != "" {
		params.Set("parse_mode", parseMode)
	}
	if markup != nil {
		encoded, err := json.Marshal(markup)
		if err != nil {
			return nil, fmt.Errorf("failed to encode keyboard: %w", err)
		}
		params.Set("reply_markup", string(encoded))
	}

	msg := new(Message)
	if err := c.makeRequest(ctx, c.httpClient, "sendMessage", params, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup, parseMode string) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"message_id": {strconv.FormatInt(messageID, 10)},
		"text":       {text},
	}
	if parseMode != "" {
		params.Set("parse_mode", parseMode)
	}
	if markup != nil {
		encoded, err := json.Marshal(markup)
		if err != nil {
			return fmt.Errorf("failed to encode keyboard: %w", err)
		}
		params.Set("reply_markup", string(encoded))
	}
	return c.makeRequest(ctx, c.httpClient, "editMessageText", params, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	params := url.Values{
		"callback_query_id": {callbackID},
		"text":              {text},
		"show_alert":        {strconv.FormatBool(showAlert)},
	}
	return c.makeRequest(ctx, c.httpClient, "answerCallbackQuery", params, nil)
}

// CheckMembership implements membership.Checker via getChatMember.
// The member/administrator/creator statuses count as membership; a
// failed lookup (bot not privileged in the channel, network trouble,
// timeout) is reported as StatusLookupFailed, never as a pass.
func (c *Client) CheckMembership(ctx context.Context, channelHandle string, userID int64) membership.Status {
	params := url.Values{
		"chat_id": {channelHandle},
		"user_id": {strconv.FormatInt(userID, 10)},
	}

	var member ChatMember
	if err := c.makeRequest(ctx, c.httpClient, "getChatMember", params, &member); err != nil {
		slog.Warn("getChatMember failed",
			slog.String("type", "tg"),
			slog.String("channel", channelHandle),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return membership.StatusLookupFailed
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return membership.StatusMember
	default:
		return membership.StatusNotMember
	}
}

// GetChatTitle resolves a channel handle to its display title, cached
// per handle. Used only for operator-facing listings; failures fall
// back to the bare handle.
func (c *Client) GetChatTitle(ctx context.Context, handle string) string {
	if title, ok := c.titleCache.Get(handle); ok {
		return title.(string)
	}

	params := url.Values{"chat_id": {handle}}
	var chat Chat
	if err := c.makeRequest(ctx, c.httpClient, "getChat", params, &chat); err != nil {
		return handle
	}
	if chat.Title == "" {
		return handle
	}
	c.titleCache.Add(handle, chat.Title)
	return chat.Title
}
