// errors стандартизирует ответы об ошибках локального HTTP-слоя консоли.
// На вход — доменная ошибка (session, authapi, router, transport) или
// gRPC-статус от back-office, на выход:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/backoffice-console/internal/authapi"
	"github.com/pribylovaa/backoffice-console/internal/clients/transport"
	"github.com/pribylovaa/backoffice-console/internal/router"
	"github.com/pribylovaa/backoffice-console/internal/session"
	"github.com/pribylovaa/backoffice-console/internal/storage"
	"github.com/pribylovaa/backoffice-console/internal/token"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrInvalidArgument — локальная ошибка разбора запроса.
var ErrInvalidArgument = stderrors.New("invalid argument")

// APIError — единый формат ответа.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Порядок:
//  1. err == nil — программная ошибка вызова, 500/internal;
//  2. доменные ошибки (fromDomain);
//  3. gRPC-статус back-office (fromGRPC);
//  4. прочее — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	if httpStatus, code, msg, ok := fromDomain(err); ok {
		return httpStatus, ErrorResponse{Error: APIError{Code: code, Message: msg}}
	}

	if st, ok := status.FromError(err); ok {
		httpStatus, code, msg := fromGRPC(st.Code())
		return httpStatus, ErrorResponse{Error: APIError{Code: code, Message: msg}}
	}

	return internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	httpStatus, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{Code: "internal", Message: "internal error"},
	}
}

// fromDomain — маппинг ошибок консоли:
//   - ErrInvalidArgument, authapi.ErrInvalidArgument -> 400
//   - session.ErrNotAuthenticated, session.ErrRefreshFailed,
//     token.ErrMalformedToken, transport.ErrNoToken -> 401
//   - authapi.StatusError: 400 -> 400, 401/403 -> 401, 429 -> 429, 5xx -> 502
//   - router.ErrRouteNotFound -> 404
//   - router.ErrTooManyRedirects -> 508
//   - storage.ErrCorrupted -> 500
//   - context.DeadlineExceeded -> 504, context.Canceled -> 499
func fromDomain(err error) (int, string, string, bool) {
	var se *authapi.StatusError

	switch {
	case stderrors.Is(err, ErrInvalidArgument), stderrors.Is(err, authapi.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument", true
	case stderrors.Is(err, session.ErrRefreshFailed):
		return http.StatusUnauthorized, "session_expired", "session expired", true
	case stderrors.Is(err, session.ErrNotAuthenticated),
		stderrors.Is(err, token.ErrMalformedToken),
		stderrors.Is(err, transport.ErrNoToken):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated", true
	case stderrors.As(err, &se):
		return fromAuthStatus(se.Status)
	case stderrors.Is(err, authapi.ErrInvalidResponse):
		return http.StatusBadGateway, "bad_gateway", "invalid upstream response", true
	case stderrors.Is(err, router.ErrRouteNotFound):
		return http.StatusNotFound, "not_found", "not found", true
	case stderrors.Is(err, router.ErrTooManyRedirects):
		return http.StatusLoopDetected, "redirect_loop", "too many redirects", true
	case stderrors.Is(err, storage.ErrCorrupted):
		return http.StatusInternalServerError, "internal", "internal error", true
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded", true
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled", true
	}

	return 0, "", "", false
}

func fromAuthStatus(s int) (int, string, string, bool) {
	switch {
	case s == http.StatusBadRequest:
		return http.StatusBadRequest, "invalid_argument", "invalid argument", true
	case s == http.StatusUnauthorized, s == http.StatusForbidden:
		return http.StatusUnauthorized, "unauthenticated", "invalid credentials", true
	case s == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted", true
	case s >= 500:
		return http.StatusBadGateway, "bad_gateway", "auth service unavailable", true
	default:
		return http.StatusBadGateway, "bad_gateway", "unexpected auth response", true
	}
}

// fromGRPC — маппинг gRPC -> HTTP/код/сообщение для вызовов back-office:
//   - InvalidArgument -> 400
//   - NotFound -> 404
//   - AlreadyExists, Aborted -> 409
//   - FailedPrecondition -> 412
//   - Unauthenticated -> 401
//   - PermissionDenied -> 403
//   - ResourceExhausted -> 429
//   - Canceled -> 499
//   - DeadlineExceeded -> 504
//   - Unavailable -> 503
//   - Unimplemented -> 501
//   - прочее -> 500/internal
func fromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.AlreadyExists:
		return http.StatusConflict, "already_exists", "already exists"
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Aborted:
		return http.StatusConflict, "aborted", "aborted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
