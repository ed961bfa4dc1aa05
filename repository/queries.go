package repository

import (
	"strconv"
	"strings"
)

// placeholder 生成第 n 个参数占位符（从 1 开始）
type placeholder func(n int) string

func placeholderMySQL(int) string { return "?" }

func placeholderPostgres(n int) string { return "$" + strconv.Itoa(n) }

// keywordItemsQuery 关键词检索：main_keyword 或 keyword_list 包含关键词，排除指定用户
func keywordItemsQuery(ph placeholder, likeOp, keyword string, limit int, excludeUserID string) (string, []any) {
	pattern := likePattern(keyword)
	args := []any{pattern, pattern}

	var b strings.Builder
	b.WriteString("SELECT " + candidateColumns + " FROM interest_clusters WHERE is_active=")
	b.WriteString(boolLiteral(ph))
	b.WriteString(" AND is_public=")
	b.WriteString(boolLiteral(ph))
	b.WriteString(" AND (LOWER(main_keyword) " + likeOp + " " + ph(1) + " OR LOWER(keyword_list) " + likeOp + " " + ph(2) + ")")
	if excludeUserID != "" {
		args = append(args, excludeUserID)
		b.WriteString(" AND user_id <> " + ph(len(args)))
	}
	args = append(args, limit)
	b.WriteString(" ORDER BY strength DESC, created_at DESC, id ASC LIMIT " + ph(len(args)))
	return b.String(), args
}

// publicItemsQuery 兜底查询：全部公开兴趣项
func publicItemsQuery(ph placeholder, limit int, excludeUserID string) (string, []any) {
	var args []any
	var b strings.Builder
	b.WriteString("SELECT " + candidateColumns + " FROM interest_clusters WHERE is_active=")
	b.WriteString(boolLiteral(ph))
	b.WriteString(" AND is_public=")
	b.WriteString(boolLiteral(ph))
	if excludeUserID != "" {
		args = append(args, excludeUserID)
		b.WriteString(" AND user_id <> " + ph(len(args)))
	}
	args = append(args, limit)
	b.WriteString(" ORDER BY strength DESC, created_at DESC, id ASC LIMIT " + ph(len(args)))
	return b.String(), args
}

// MySQL 使用 TINYINT(1)，PostgreSQL 使用 BOOLEAN
func boolLiteral(ph placeholder) string {
	if ph(1) == "?" {
		return "1"
	}
	return "TRUE"
}
