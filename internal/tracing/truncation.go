package tracing

import (
	"strings"
	"unicode/utf8"
)

// 属性与日志中的长度上限（按字符计）
const (
	DefaultMaxLength = 200
	MaxKeyLength     = 100 // 缓存键
	MaxHeaderLength  = 100 // 转发给渲染服务的请求头
	MaxPromptLength  = 150 // 调试日志中的 prompt 片段
)

// sensitiveFields 属性名包含其中任一片段时，值按个人信息掩码
var sensitiveFields = []string{
	"name", "姓名",
	"email", "邮箱",
	"phone", "电话",
	"api_key", "token", "secret", "password",
}

// SafeAttributeValue 返回可以放进 span 属性的值：敏感字段掩码，其余按 maxLength 截断
func SafeAttributeValue(name, value string, maxLength int) string {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 保留首尾字符，中间替换为 *。
// 四个字符以内保留首尾各一个（"王小明" -> "王*明"），更长的保留首尾各两个（"13812345678" -> "13*******78"）。
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	switch n {
	case 0:
		return ""
	case 1:
		return "*"
	case 2:
		return string(runes[0]) + "*"
	}
	keep := 1
	if n > 4 {
		keep = 2
	}
	return string(runes[:keep]) + strings.Repeat("*", n-2*keep) + string(runes[n-keep:])
}

// TruncateString 超过 maxLength 个字符时保留首尾，中间以 ... 连接
func TruncateString(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	keep := (maxLength - 3) / 2
	if keep < 1 {
		keep = 1
	}
	return string(runes[:keep]) + "..." + string(runes[len(runes)-keep:])
}

// SafeKey 缓存键截断
func SafeKey(key string) string {
	return TruncateString(key, MaxKeyLength)
}

// SafePromptText prompt 或模型输出在调试日志中的截断形式
func SafePromptText(text string) string {
	return TruncateString(text, MaxPromptLength)
}
