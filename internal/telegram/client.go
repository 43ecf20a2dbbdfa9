// client.go is a minimal client of the Telegram Bot API, only the methods the
// bot needs are implemented.

package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

type User struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
}

type Chat struct {
	Id int64 `json:"id"`
}

type Message struct {
	MessageId int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text"`
}

type Update struct {
	UpdateId int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type envelope[T any] struct {
	Ok          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// APIError is a request the Bot API answered with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e APIError) Error() string {
	return fmt.Sprintf("telegram: %s: %d %s", e.Method, e.Code, e.Description)
}

// Client talks to the Bot API over http.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the bot identified by token, baseUrl is the
// API root (ex. https://api.telegram.org). pollTimeout is the longest a
// GetUpdates call may be held open by the server.
func NewClient(baseUrl, token string, pollTimeout time.Duration, tel telemetry.API) *Client {
	assert.NotEmptyStr(baseUrl)
	assert.NotEmptyStr(token)
	assert.NotNil(tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(fmt.Sprintf("%s/bot%s", baseUrl, token))
	httpClient.SetTimeout(pollTimeout + 15*time.Second)

	// the Bot API allows about 30 messages per second across all chats
	rateLimiter := rate.NewLimiter(20, 20)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, telemetry.NewScopedAPI("telegram_client", tel))

	return &Client{http: httpClient}
}

func call[T any](ctx context.Context, req *resty.Request, method string) (T, error) {
	var out envelope[T]
	res, err := req.
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Post("/" + method)
	if err != nil {
		// transport errors carry the full url and with it the bot token
		return out.Result, fmt.Errorf("telegram: %s: %w", method, telemetry.RedactError(err))
	}
	if !out.Ok {
		code := out.ErrorCode
		if code == 0 {
			code = res.StatusCode()
		}
		return out.Result, APIError{Method: method, Code: code, Description: out.Description}
	}
	return out.Result, nil
}

// GetUpdates long polls for updates with an id of at least offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	return call[[]Update](ctx, c.http.R().SetBody(map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}), "getUpdates")
}

func (c *Client) SendMessage(ctx context.Context, chatId int64, text string) error {
	_, err := call[Message](ctx, c.http.R().SetBody(map[string]any{
		"chat_id": chatId,
		"text":    text,
	}), "sendMessage")
	return err
}

// SendPhoto uploads a PNG image to the chat.
func (c *Client) SendPhoto(ctx context.Context, chatId int64, filename string, image []byte, caption string) error {
	fields := map[string]string{"chat_id": strconv.FormatInt(chatId, 10)}
	if caption != "" {
		fields["caption"] = caption
	}
	_, err := call[Message](
		ctx,
		c.http.R().
			SetMultipartFormData(fields).
			SetFileReader("photo", filename, bytes.NewReader(image)),
		"sendPhoto",
	)
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatId, messageId int64) error {
	_, err := call[bool](ctx, c.http.R().SetBody(map[string]any{
		"chat_id":    chatId,
		"message_id": messageId,
	}), "deleteMessage")
	return err
}
