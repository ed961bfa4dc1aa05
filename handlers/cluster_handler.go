package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "interest_cluster/docs" // 导入 swagger 文档
	"interest_cluster/logger"
	"interest_cluster/models"
	"interest_cluster/services"
	"interest_cluster/utils"
)

// ClusterAPI 聚类相关的服务能力
type ClusterAPI interface {
	ImportHistory(ctx context.Context, userID string, items []models.WatchHistoryItem) (int, error)
	AnalyzeUser(ctx context.Context, userID, trigger string) ([]models.ClusterRecord, error)
	GetActiveClusters(ctx context.Context, userID string) ([]models.ClusterRecord, error)
}

// SearchAPI 相似兴趣检索
type SearchAPI interface {
	Search(ctx context.Context, userID string, keywords []string) *models.SearchResult
}

// Deps 路由依赖
type Deps struct {
	Clusters ClusterAPI
	Search   SearchAPI
	// LLMState 返回模型熔断器状态，用于健康检查，可为空
	LLMState func() string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ImportHistoryHandler godoc
// @Summary 导入观看记录
// @Description 保存用户的观看记录，之后由聚类接口或定时任务使用
// @Tags 观看记录
// @Accept json
// @Produce json
// @Param user_id path string true "用户ID"
// @Param body body models.WatchHistoryImport true "观看记录"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/history/{user_id} [post]
func ImportHistoryHandler(w http.ResponseWriter, r *http.Request, deps *Deps) {
	userID := chi.URLParam(r, "user_id")
	if !utils.ValidateUserID(w, userID) {
		return
	}

	var req models.WatchHistoryImport
	if !utils.DecodeJSONBody(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		if isEmptyItemsError(err) {
			utils.WriteErrorResponse(w, models.CodeEmptyHistory, map[string]interface{}{
				"user_id": userID,
			})
			return
		}
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	saved, err := deps.Clusters.ImportHistory(r.Context(), userID, req.Items)
	if err != nil {
		writeClusterError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"user_id":  userID,
		"received": len(req.Items),
		"saved":    saved,
	})
}

// isEmptyItemsError items 缺失或为空
func isEmptyItemsError(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == "Items" && (fe.Tag() == "required" || fe.Tag() == "min") {
			return true
		}
	}
	return false
}

// AnalyzeClustersHandler godoc
// @Summary 生成用户兴趣聚类
// @Description 读取用户已导入的观看记录，调用模型生成兴趣聚类并替换原有聚类
// @Tags 兴趣聚类
// @Accept json
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} models.ClusterResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/cluster/analyze/{user_id} [post]
func AnalyzeClustersHandler(w http.ResponseWriter, r *http.Request, deps *Deps) {
	userID := chi.URLParam(r, "user_id")
	if !utils.ValidateUserID(w, userID) {
		return
	}

	records, err := deps.Clusters.AnalyzeUser(r.Context(), userID, "api")
	if err != nil {
		logger.Warn("聚类生成失败", "user_id", userID, "error", err)
		writeClusterError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, records)
}

// GetClustersHandler godoc
// @Summary 获取用户兴趣聚类
// @Description 获取用户当前有效的兴趣聚类
// @Tags 兴趣聚类
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} models.ClusterResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/cluster/{user_id} [get]
func GetClustersHandler(w http.ResponseWriter, r *http.Request, deps *Deps) {
	userID := chi.URLParam(r, "user_id")
	if !utils.ValidateUserID(w, userID) {
		return
	}

	records, err := deps.Clusters.GetActiveClusters(r.Context(), userID)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeNoClusters)
		return
	}
	if len(records) == 0 {
		utils.WriteErrorResponse(w, models.CodeNoClusters, []models.ClusterRecord{})
		return
	}

	utils.WriteSuccessResponse(w, records)
}

// SearchHandler godoc
// @Summary 检索相似兴趣
// @Description 根据关键词在其他用户公开的兴趣中检索，并按与当前用户兴趣的相似度排序
// @Tags 相似兴趣
// @Produce json
// @Param user_id path string true "用户ID"
// @Param keyword query string false "关键词，可重复或用逗号分隔"
// @Success 200 {object} models.SearchResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/search/{user_id} [get]
func SearchHandler(w http.ResponseWriter, r *http.Request, deps *Deps) {
	userID := chi.URLParam(r, "user_id")
	if !utils.ValidateUserID(w, userID) {
		return
	}

	var keywords []string
	for _, v := range r.URL.Query()["keyword"] {
		keywords = append(keywords, utils.SplitCommaList(v)...)
	}

	result := deps.Search.Search(r.Context(), userID, keywords)
	utils.WriteSuccessResponse(w, result)
}

// HealthHandler godoc
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} models.APIResponse "成功"
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request, deps *Deps) {
	data := map[string]interface{}{"status": "ok"}
	if deps.LLMState != nil {
		data["llm_breaker"] = deps.LLMState()
	}
	utils.WriteSuccessResponse(w, data)
}

// writeClusterError 将服务层错误映射为响应码
func writeClusterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyHistory):
		utils.WriteErrorResponse(w, models.CodeEmptyHistory, []models.ClusterRecord{})
	case errors.Is(err, services.ErrModelCall):
		utils.WriteCustomErrorResponse(w, models.CodeThirdPartyAPIError, err.Error(), []models.ClusterRecord{})
	case errors.Is(err, services.ErrNoClusters):
		utils.WriteErrorResponse(w, models.CodeClusterGenError, []models.ClusterRecord{})
	case errors.Is(err, services.ErrStorage):
		utils.WriteCustomErrorResponse(w, models.CodeDatabaseError, err.Error(), []models.ClusterRecord{})
	default:
		utils.WriteCustomErrorResponse(w, models.CodeServerError, err.Error(), []models.ClusterRecord{})
	}
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r chi.Router, deps *Deps) {
	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		HealthHandler(w, r, deps)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/history/{user_id}", func(w http.ResponseWriter, r *http.Request) {
			ImportHistoryHandler(w, r, deps)
		})

		r.Post("/cluster/analyze/{user_id}", func(w http.ResponseWriter, r *http.Request) {
			AnalyzeClustersHandler(w, r, deps)
		})

		r.Get("/cluster/{user_id}", func(w http.ResponseWriter, r *http.Request) {
			GetClustersHandler(w, r, deps)
		})

		r.Get("/search/{user_id}", func(w http.ResponseWriter, r *http.Request) {
			SearchHandler(w, r, deps)
		})
	})
}
