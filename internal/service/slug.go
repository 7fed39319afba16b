package service

import (
	"strings"
	"unicode"
)

// Slugify 从标题派生 URL 友好的标识符：小写、空白转连字符、剥离标点。
// 纯函数；标题不含字母数字时返回空串，由调用方视为非法输入。
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
