// redact — маскировка чувствительных значений перед записью в лог.
//
// Токены и пароли в лог не попадают никогда; email маскируется частично,
// чтобы записи оставались пригодными для поддержки.
package redact

import "strings"

// Email маскирует локальную часть адреса: "maria@zen.cat" -> "ma***@zen.cat".
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
