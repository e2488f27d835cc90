package processor

import (
	"sort"
	"strings"
	"unicode"

	"resume-screener/internal/types"
)

// NoLimit 作为 topN 传入 Rank 时返回全部条目
const NoLimit = -1

// Rank 按 match_percent 稳定排序（缺失值按 0 参与比较，输出中保持缺失），
// topN 为负（NoLimit）时返回全部，为 0 时返回空列表。只对返回的条目做姓名首字母大写和两位小数取整。
// 不修改入参。
func Rank(entries []types.RankedEntry, topN int, descending bool) []types.RankedEntry {
	sorted := make([]types.RankedEntry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		a := sorted[i].MatchPercent.ValueOr(0)
		b := sorted[j].MatchPercent.ValueOr(0)
		if descending {
			return a > b
		}
		return a < b
	})

	if topN >= 0 && topN < len(sorted) {
		sorted = sorted[:topN]
	}
	for i := range sorted {
		sorted[i].Name = TitleCase(sorted[i].Name)
		if !sorted[i].MatchPercent.IsMissing() {
			sorted[i].MatchPercent = types.Percent(types.Round2(float64(sorted[i].MatchPercent)))
		}
	}
	return sorted
}

// TitleCase 每个连续字母串首字母大写、其余小写，如 "o'neil mary-ann" -> "O'Neil Mary-Ann"
func TitleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		sb.WriteRune(r)
		prevLetter = false
	}
	return sb.String()
}
