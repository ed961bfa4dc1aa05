package models

// APIResponse 通用API响应
type APIResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ClusterResponse 聚类结果响应
type ClusterResponse struct {
	Code    int             `json:"code" example:"0"`
	Message string          `json:"message" example:"success"`
	Data    []ClusterRecord `json:"data"`
}

// SearchResponse 相似兴趣检索响应
type SearchResponse struct {
	Code    int          `json:"code" example:"0"`
	Message string       `json:"message" example:"success"`
	Data    SearchResult `json:"data"`
}
