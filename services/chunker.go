package services

import (
	"fmt"

	"interest_cluster/models"
)

// DefaultChunkSize 默认每批 20 条观看记录
const DefaultChunkSize = 20

// ChunkHistory 将观看记录按固定大小切分成有序批次，保持原始顺序。
// 各批次共享原切片的底层数组，不复制记录。
func ChunkHistory(items []models.WatchHistoryItem, size int) ([][]models.WatchHistoryItem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	if len(items) == 0 {
		return nil, nil
	}

	chunks := make([][]models.WatchHistoryItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks, nil
}
