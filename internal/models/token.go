package models

import "time"

// TokenPair — пара токенов, выдаваемая auth API при логине/обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT, прикладывается к запросам как Bearer;
//   - RefreshToken — долгоживущий секрет для выпуска новой пары.
//
// JSON-имена полей совпадают с ответом auth API и с форматом, в котором пара
// лежит в постоянном хранилище.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty сообщает, что пара не содержит access-токена.
func (p TokenPair) Empty() bool { return p.AccessToken == "" }

// TokenPayload — декодированная (без проверки подписи) полезная нагрузка access-токена.
// ExpiresAt и IssuedAt — Unix-секунды.
type TokenPayload struct {
	Subject   string `json:"sub"`
	Issuer    string `json:"iss"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
	ID        string `json:"jti"`
	Username  string `json:"username"`
}

// SecondsToExpiry возвращает число целых секунд до истечения токена относительно now.
// Отрицательное значение — токен уже истёк.
func (p TokenPayload) SecondsToExpiry(now time.Time) int64 {
	return p.ExpiresAt - now.Unix()
}

// Expiry возвращает момент истечения в UTC.
func (p TokenPayload) Expiry() time.Time {
	return time.Unix(p.ExpiresAt, 0).UTC()
}
