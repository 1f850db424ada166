// redact маскирует секреты протокола погашения перед записью в лог:
// подписанные токены, одноразовые PIN и display-коды.
package redact

// Token возвращает литерал-заглушку для подписанного токена.
func Token() string { return "[REDACTED_TOKEN]" }

// Pin возвращает литерал-заглушку для одноразового PIN.
func Pin() string { return "[REDACTED_PIN]" }

// Code маскирует display-код, оставляя две последние цифры:
//
//	"123456" -> "****56"
//	"12"     -> "**"
func Code(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return stars(len(r))
	}

	return stars(len(r)-2) + string(r[len(r)-2:])
}

// Nonce укорачивает nonce до первых 8 символов (nonce не секретен, но длинный).
func Nonce(s string) string {
	if len(s) <= 8 {
		return s
	}

	return s[:8] + "…"
}

func stars(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '*'
	}

	return string(b)
}
