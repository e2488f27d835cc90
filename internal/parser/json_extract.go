package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// StripCodeFences 去掉 BOM、首尾的 ``` 围栏以及可选的 json 语言标记
func StripCodeFences(text string) string {
	s := strings.TrimSpace(strings.TrimPrefix(text, "\uFEFF"))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimLeft(s, "`")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimRight(s, "`")
	}
	return strings.TrimSpace(s)
}

// ExtractJSONObject 返回文本中第一个完整的顶层 {...} 块。
// 扫描时跳过字符串字面量中的括号。
func ExtractJSONObject(text string) (string, bool) {
	s := StripCodeFences(text)
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeJSONObject 提取第一个 JSON 对象并解码到 v；首次解码失败时修复未转义的引号后再试一次
func DecodeJSONObject(text string, v interface{}) error {
	jsonStr, ok := ExtractJSONObject(text)
	if !ok {
		return fmt.Errorf("未在模型输出中找到 JSON 对象")
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}
	err := json.Unmarshal([]byte(jsonStr), v)
	if err == nil {
		return nil
	}
	fixed := sanitizeJSON(jsonStr)
	if jsonErr := json.Unmarshal([]byte(fixed), v); jsonErr != nil {
		return fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return nil
}

// sanitizeJSON 把字符串字面量内部未转义的双引号改写为 \"。
// 若某个 " 之后的下一个非空白字符是 : , ] } 之一，则视为字符串结束。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
				break
			}
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j >= len(src) || src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}' {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString("\\\"")
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
