// token декодирует полезную нагрузку access-токена без проверки подписи.
//
// Подпись проверяет сервер; клиенту payload нужен только для того, чтобы
// узнать срок действия и имя пользователя. Любая ошибка разбора возвращается
// как *MalformedTokenError, чтобы вызывающий код мог однозначно отличить
// «битый токен» от прочих сбоев.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/backoffice-console/internal/models"
)

// ErrMalformedToken — общий признак битого access-токена (для errors.Is).
var ErrMalformedToken = errors.New("malformed token")

// MalformedTokenError описывает причину, по которой payload не удалось получить.
type MalformedTokenError struct {
	Reason string
	Err    error
}

func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed token: %s: %v", e.Reason, e.Err)
	}

	return "malformed token: " + e.Reason
}

func (e *MalformedTokenError) Unwrap() error { return e.Err }

// Is позволяет сравнивать с ErrMalformedToken.
func (e *MalformedTokenError) Is(target error) bool { return target == ErrMalformedToken }

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode разбирает второй сегмент access-токена в models.TokenPayload.
//
// Контракт:
//  1. пустая строка или не-JWT — *MalformedTokenError;
//  2. отсутствие exp — *MalformedTokenError (без срока нельзя принимать решение
//     об обновлении);
//  3. подпись и временные claims НЕ проверяются.
func Decode(accessToken string) (models.TokenPayload, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return models.TokenPayload{}, &MalformedTokenError{Reason: "empty token"}
	}

	var c claims
	if _, _, err := parser.ParseUnverified(accessToken, &c); err != nil {
		return models.TokenPayload{}, &MalformedTokenError{Reason: "parse payload", Err: err}
	}

	if c.ExpiresAt == nil {
		return models.TokenPayload{}, &MalformedTokenError{Reason: "missing exp claim"}
	}

	p := models.TokenPayload{
		Subject:   c.Subject,
		Issuer:    c.Issuer,
		ExpiresAt: c.ExpiresAt.Unix(),
		ID:        c.ID,
		Username:  c.Username,
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Unix()
	}

	return p, nil
}
