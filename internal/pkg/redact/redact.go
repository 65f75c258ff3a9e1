// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов (имя пользователя, токены, пароли).
package redact

import "strings"

// Username маскирует логин менеджера для логирования.
//
// Правила:
//   - логин в виде e-mail маскируется по правилам Email (домен сохраняется);
//   - иначе остаются первые два символа (по рунам) + "***";
//   - логин из ≤ 2 символов и пустой логин — "***".
func Username(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

// Email маскирует e-mail: ровно один '@', иначе "***".
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }
