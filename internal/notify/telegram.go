// Package notify delivers text reports to a Telegram chat through the
// Bot API sendMessage method.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// MaxMessageLength is the Bot API limit for one message, in characters.
const MaxMessageLength = 4096

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// room left in every part for the "[i/n]\n" prefix
const prefixReserve = 16

// ErrEmptyMessage is returned when there is nothing to send.
var ErrEmptyMessage = errors.New("telegram: empty message")

// APIError is a sendMessage call the Bot API answered with ok=false.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s (%d)", e.Description, e.Code)
}

type Bot struct {
	client    *fasthttp.Client
	apiURL    string
	token     string
	parseMode string
	timeout   time.Duration
}

// New creates a Bot. An empty apiURL selects DefaultAPIURL.
func New(apiURL, token string) *Bot {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Bot{
		client:  &fasthttp.Client{Name: "mailprobe"},
		apiURL:  strings.TrimRight(apiURL, "/"),
		token:   token,
		timeout: 30 * time.Second,
	}
}

// WithParseMode sets the Bot API parse_mode ("HTML", "Markdown" or
// "MarkdownV2") sent with every message. Empty sends plain text. The
// caller escapes the text for the chosen mode.
func (b *Bot) WithParseMode(mode string) *Bot {
	b.parseMode = mode
	return b
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send delivers text to chatID and returns the id of the last message.
// Text over MaxMessageLength is split on line boundaries and every part
// is prefixed with "[i/n]". The first failing part stops the delivery.
func (b *Bot) Send(ctx context.Context, chatID, text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyMessage
	}

	parts := Split(text, MaxMessageLength)
	var id int64
	for i, part := range parts {
		if len(parts) > 1 {
			part = fmt.Sprintf("[%d/%d]\n%s", i+1, len(parts), part)
		}
		var err error
		if id, err = b.sendMessage(ctx, chatID, part); err != nil {
			if len(parts) > 1 {
				return 0, errors.Wrapf(err, "part %d/%d", i+1, len(parts))
			}
			return 0, err
		}
	}
	return id, nil
}

func (b *Bot) sendMessage(ctx context.Context, chatID, text string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: b.parseMode})
	if err != nil {
		return 0, errors.Wrap(err, "telegram: encode request")
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(b.apiURL + "/bot" + b.token + "/sendMessage")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := b.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, errors.Wrap(err, "telegram: sendMessage")
	}

	var r sendMessageResponse
	if err := json.Unmarshal(resp.Body(), &r); err != nil {
		return 0, errors.Wrapf(err, "telegram: decode response (HTTP %d)", resp.StatusCode())
	}
	if !r.OK {
		desc := r.Description
		if desc == "" {
			desc = "unknown error"
		}
		return 0, &APIError{Code: r.ErrorCode, Description: desc}
	}
	return r.Result.MessageID, nil
}

// Split cuts text into parts no longer than limit characters, leaving
// room in each for a part prefix once splitting is needed. Cuts happen
// between lines; a single line that does not fit is cut inside.
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	body := limit - prefixReserve
	if body < 1 {
		body = 1
	}

	var parts, cur []string
	size := 0
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.Join(cur, "\n"))
			cur, size = nil, 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > body {
			flush()
			head, tail := cutRunes(line, body)
			parts = append(parts, head)
			line = tail
		}

		add := utf8.RuneCountInString(line)
		if len(cur) > 0 {
			add++
		}
		if size+add > body {
			flush()
			add = utf8.RuneCountInString(line)
		}
		cur = append(cur, line)
		size += add
	}
	flush()
	return parts
}

func cutRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
