package services

import (
	"strings"

	"interest_cluster/models"
	"interest_cluster/utils"
)

// ResolveReference 在用户自己的有效兴趣项中查找与 keyword 匹配的第一项。
// 匹配规则：去掉开头的 # 和首尾空白后，主关键词或任一关键词包含该词（不区分大小写）。
// keyword 为空或没有匹配时返回 nil。
func ResolveReference(items []models.CandidateImage, keyword string) *models.CandidateImage {
	needle := utils.NormalizeKeyword(keyword)
	if needle == "" {
		return nil
	}
	for i := range items {
		if itemMatches(items[i], needle) {
			ref := items[i]
			return &ref
		}
	}
	return nil
}

func itemMatches(item models.CandidateImage, needle string) bool {
	if strings.Contains(strings.ToLower(item.MainKeyword), needle) {
		return true
	}
	for _, kw := range item.Keywords {
		if strings.Contains(strings.ToLower(kw), needle) {
			return true
		}
	}
	return false
}
