package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DeduplicateSlice 去重字符串切片
func DeduplicateSlice(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, val := range input {
		val = strings.TrimSpace(val)
		if val != "" && !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}

	return result
}

// SplitCommaList 按逗号拆分，去掉首尾空白和空项；同时兼容中文逗号
func SplitCommaList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeKeyword 去掉开头的 # 与首尾空白并转小写，用于不区分大小写的子串匹配
func NormalizeKeyword(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	return strings.ToLower(strings.TrimSpace(s))
}

// Truncate 截断过长文本，用于日志预览。maxLength 按字节计，截断点退回到完整字符边界
func Truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 0 {
		return "..."
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

const maxStripPasses = 3

var (
	reHeading    = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	reListMarker = regexp.MustCompile(`(?m)^[ \t]*[-+*][ \t]+`)
	reImage      = regexp.MustCompile(`!\[([^\[\]]*)\]\([^()]*\)`)
	reLink       = regexp.MustCompile(`\[([^\[\]]*)\]\([^()]*\)`)
	reCodeSpan   = regexp.MustCompile("`+([^`]*)`+")
	reBoldStar   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalicStar = regexp.MustCompile(`\*([^*]+)\*`)
	reStrike     = regexp.MustCompile(`~~([^~]+)~~`)
	reUnderscore = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_{1,2}([^_]+?)_{1,2}([^\p{L}\p{N}_]|$)`)
	reUnderline  = regexp.MustCompile(`</?u>`)

	// 兜底清理使用的规则
	reScrubChars      = regexp.MustCompile("[*`~\\[\\]]")
	reScrubLineMarker = regexp.MustCompile(`(?m)^(?:[ \t]*(?:#{1,6}|[-+])[ \t]+)+`)
	reScrubLeadUnder  = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_+`)
	reScrubTrailUnder = regexp.MustCompile(`_+([^\p{L}\p{N}_]|$)`)
)

// StripMarkdown 去除模型回复中的 markdown 语法（粗体、斜体、下划线、行内代码、链接、标题、列表标记）。
// 反复处理直到结果不再变化，最多 3 轮；3 轮后仍未收敛的输入改用逐字符清理。
// 对已处理过的字符串再次调用不会产生变化。
func StripMarkdown(s string) string {
	out := strings.TrimSpace(s)
	for i := 0; i < maxStripPasses; i++ {
		next := stripPass(out)
		if next == out {
			return out
		}
		out = next
	}
	if stripPass(out) == out {
		return out
	}
	return scrubMarkdown(out)
}

func stripPass(s string) string {
	s = reHeading.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "")
	s = reImage.ReplaceAllString(s, "${1}")
	s = reLink.ReplaceAllString(s, "${1}")
	s = reCodeSpan.ReplaceAllString(s, "${1}")
	s = reBoldStar.ReplaceAllString(s, "${1}")
	s = reItalicStar.ReplaceAllString(s, "${1}")
	s = reStrike.ReplaceAllString(s, "${1}")
	s = reUnderscore.ReplaceAllString(s, "${1}${2}${3}")
	s = reUnderline.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// scrubMarkdown 直接删除残留的标记字符。每次有变化都会让字符串变短，因此一定收敛；
// 收敛后的结果不含 stripPass 能匹配的任何语法。
func scrubMarkdown(s string) string {
	for {
		next := reUnderline.ReplaceAllString(s, "")
		next = reScrubChars.ReplaceAllString(next, "")
		next = reScrubLineMarker.ReplaceAllString(next, "")
		next = reScrubLeadUnder.ReplaceAllString(next, "${1}")
		next = reScrubTrailUnder.ReplaceAllString(next, "${1}")
		next = strings.TrimSpace(next)
		if next == s {
			return s
		}
		s = next
	}
}
