// authapi — HTTP-клиент внешнего auth API (логин и обновление пары токенов).
//
// Клиент НЕ прикладывает Authorization: логин и refresh выполняются до того,
// как у сессии появляется access-токен, поэтому ему передаётся отдельный
// http.Client без authorization-хука.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/backoffice-console/internal/models"
)

const (
	loginPath   = "/v1/auth/login"
	refreshPath = "/v1/auth/refresh"

	// maxBodySize ограничивает чтение ответа: пара токенов занимает единицы КБ.
	maxBodySize = 1 << 20
)

var (
	// ErrUnexpectedStatus — auth API ответил не-2xx.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrInvalidResponse — тело 2xx-ответа не разбирается как пара токенов.
	ErrInvalidResponse = errors.New("invalid response body")
	// ErrInvalidArgument — некорректные входные данные запроса.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Response — конверт ответа auth API: HTTP-статус и (при успехе) пара токенов.
type Response struct {
	Status int
	Body   *models.TokenPair
}

// OK сообщает, что ответ пригоден для переноса в сессию.
func (r *Response) OK() bool {
	return r != nil && r.Status == http.StatusOK && r.Body != nil && !r.Body.Empty()
}

// StatusError — не-2xx ответ auth API.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s: %d %s", e.Op, ErrUnexpectedStatus, e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client вызывает login/refresh эндпойнты.
type Client struct {
	baseURL string
	http    *http.Client
}

// New создаёт клиент. hc == nil — http.DefaultClient.
func New(baseURL string, hc *http.Client) (*Client, error) {
	const op = "authapi.New"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

// Login обменивает логин/пароль на пару токенов.
func (c *Client) Login(ctx context.Context, in models.LoginRequest) (*Response, error) {
	const op = "authapi.Login"

	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, fmt.Errorf("%s: %w: username and password are required", op, ErrInvalidArgument)
	}

	return c.post(ctx, op, loginPath, in)
}

// Refresh обменивает refresh-токен на новую пару.
func (c *Client) Refresh(ctx context.Context, in models.RefreshTokenRequest) (*Response, error) {
	const op = "authapi.Refresh"

	if in.RefreshToken == "" {
		return nil, fmt.Errorf("%s: %w: refresh token is required", op, ErrInvalidArgument)
	}

	return c.post(ctx, op, refreshPath, in)
}

// post отправляет JSON и разбирает ответ.
//
// Контракт:
//  1. транспортная ошибка — (nil, err);
//  2. не-2xx — (&Response{Status}, *StatusError);
//  3. 2xx с битым телом — (&Response{Status}, ErrInvalidResponse);
//  4. 2xx — (&Response{Status, Body}, nil).
func (c *Client) post(ctx context.Context, op, path string, in any) (*Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	out := &Response{Status: resp.StatusCode}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return out, &StatusError{Op: op, Status: resp.StatusCode}
	}

	var pair models.TokenPair
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&pair); err != nil {
		return out, fmt.Errorf("%s: %w: %v", op, ErrInvalidResponse, err)
	}
	if pair.Empty() {
		return out, fmt.Errorf("%s: %w: empty access token", op, ErrInvalidResponse)
	}

	out.Body = &pair
	return out, nil
}
