package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"interest_cluster/models"
)

// WriteFormattedJSON 格式化JSON输出，使其更易读
func WriteFormattedJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ") // 使用4个空格缩进
	encoder.Encode(data)
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteFormattedJSON(w, models.NewSuccessResponse(data))
}

// WriteErrorResponse 写入错误响应
func WriteErrorResponse(w http.ResponseWriter, code int, data interface{}) {
	WriteFormattedJSON(w, models.NewErrorResponse(code, data))
}

// WriteCustomErrorResponse 写入自定义错误消息的响应
func WriteCustomErrorResponse(w http.ResponseWriter, code int, message string, data interface{}) {
	WriteFormattedJSON(w, models.NewCustomErrorResponse(code, message, data))
}

// HandleServiceError 处理服务层错误的通用函数
func HandleServiceError(w http.ResponseWriter, err error, noDataCode int) {
	if IsSQLNoRowsError(err) {
		WriteErrorResponse(w, noDataCode, map[string]interface{}{})
	} else {
		WriteCustomErrorResponse(w, models.CodeServerError, err.Error(), map[string]interface{}{})
	}
}

// ValidateUserID 验证 user_id 参数
func ValidateUserID(w http.ResponseWriter, userID string) bool {
	if strings.TrimSpace(userID) == "" {
		WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{
			"param": "user_id",
		})
		return false
	}
	return true
}

// DecodeJSONBody 解析请求体，失败时直接写入参数错误响应
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "请求体解析失败: " + err.Error()
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			msg = "请求体不是合法的JSON"
		}
		WriteCustomErrorResponse(w, models.CodeInvalidParams, msg, map[string]interface{}{})
		return false
	}
	return true
}
