package models

import (
	"encoding/json"
)

// WatchHistoryItem 观看记录中的一条视频
type WatchHistoryItem struct {
	Title     string   `json:"title" validate:"max=512"`
	VideoID   string   `json:"videoId" validate:"max=64"`
	Keywords  []string `json:"keywords"`
	Tags      []string `json:"tags,omitempty"`
	Timestamp string   `json:"timestamp,omitempty" validate:"max=64"`
}

// UnmarshalJSON 容忍 keywords 字段缺失、为 null 或类型错误的记录，此时 Keywords 为 nil，聚合时跳过
func (w *WatchHistoryItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title     string          `json:"title"`
		VideoID   string          `json:"videoId"`
		Keywords  json.RawMessage `json:"keywords"`
		Tags      json.RawMessage `json:"tags"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*w = WatchHistoryItem{
		Title:   raw.Title,
		VideoID: raw.VideoID,
	}

	if len(raw.Keywords) > 0 {
		var kws []string
		if err := json.Unmarshal(raw.Keywords, &kws); err == nil {
			w.Keywords = kws
		}
	}

	if len(raw.Tags) > 0 {
		var tags []string
		if err := json.Unmarshal(raw.Tags, &tags); err == nil {
			w.Tags = tags
		}
	}

	if len(raw.Timestamp) > 0 {
		var ts string
		if err := json.Unmarshal(raw.Timestamp, &ts); err == nil {
			w.Timestamp = ts
		}
	}

	return nil
}

// NewWatchHistoryItem 构造观看记录，主要供代码内部和测试使用
func NewWatchHistoryItem(title, videoID string, keywords ...string) WatchHistoryItem {
	return WatchHistoryItem{
		Title:    title,
		VideoID:  videoID,
		Keywords: keywords,
	}
}

// WatchHistoryImport 观看记录导入请求
type WatchHistoryImport struct {
	Items []WatchHistoryItem `json:"items" validate:"required,min=1,dive"`
}
