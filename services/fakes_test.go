package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"interest_cluster/models"
)

// memoryStore 内存实现，供测试使用
type memoryStore struct {
	mu sync.Mutex

	items       []models.CandidateImage
	clusters    map[string][]models.ClusterRecord
	history     map[string][]models.WatchHistoryItem
	clustered   map[string]int64 // 已标记的最大行 id，行 id 为 history 下标 + 1
	pending     []string
	persistCall int

	keywordErr   map[string]error
	publicErr    error
	activeErr    error
	persistErr   error
	keywordCalls []string
}

func newMemoryStore(items ...models.CandidateImage) *memoryStore {
	return &memoryStore{
		items:      items,
		clusters:   make(map[string][]models.ClusterRecord),
		history:    make(map[string][]models.WatchHistoryItem),
		clustered:  make(map[string]int64),
		keywordErr: make(map[string]error),
	}
}

func (m *memoryStore) GetActiveUserItems(_ context.Context, userID string) ([]models.CandidateImage, error) {
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	var out []models.CandidateImage
	for _, it := range m.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memoryStore) GetAllPublicItems(_ context.Context, limit int, excludeUserID string) ([]models.CandidateImage, error) {
	if m.publicErr != nil {
		return nil, m.publicErr
	}
	var out []models.CandidateImage
	for _, it := range m.items {
		if excludeUserID != "" && it.UserID == excludeUserID {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) SearchItemsByKeyword(_ context.Context, keyword string, limit int, excludeUserID string) ([]models.CandidateImage, error) {
	m.mu.Lock()
	m.keywordCalls = append(m.keywordCalls, keyword)
	m.mu.Unlock()
	if err := m.keywordErr[keyword]; err != nil {
		return nil, err
	}
	needle := strings.ToLower(keyword)
	var out []models.CandidateImage
	for _, it := range m.items {
		if excludeUserID != "" && it.UserID == excludeUserID {
			continue
		}
		if itemMatches(it, needle) {
			out = append(out, it)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) PersistClusterRecords(_ context.Context, userID string, records []models.ClusterRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistCall++
	if m.persistErr != nil {
		return m.persistErr
	}
	m.clusters[userID] = append([]models.ClusterRecord(nil), records...)
	return nil
}

func (m *memoryStore) GetActiveClusters(_ context.Context, userID string) ([]models.ClusterRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clusters[userID], nil
}

func (m *memoryStore) SaveWatchHistory(_ context.Context, userID string, items []models.WatchHistoryItem) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[userID] = append(m.history[userID], items...)
	return len(items), nil
}

func (m *memoryStore) GetWatchHistory(_ context.Context, userID string) ([]models.WatchHistoryItem, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]models.WatchHistoryItem(nil), m.history[userID]...)
	return items, int64(len(items)), nil
}

func (m *memoryStore) MarkHistoryClustered(_ context.Context, userID string, upToID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clustered[userID] = max(m.clustered[userID], upToID)
	return nil
}

// pendingCount 尚未标记为已聚类的记录数
func (m *memoryStore) pendingCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[userID]) - int(m.clustered[userID])
}

func (m *memoryStore) ListUsersWithPendingHistory(_ context.Context, limit int) ([]string, error) {
	if limit > 0 && len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

// fakeLLM 返回固定回复
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string

	onComplete func() // 模型调用期间执行，用于模拟并发导入
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	if f.onComplete != nil {
		f.onComplete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var errBoom = errors.New("boom")

func candidate(id, userID, main string, keywords ...string) models.CandidateImage {
	return models.CandidateImage{ID: id, UserID: userID, MainKeyword: main, Keywords: keywords}
}

func ids(items []models.CandidateImage) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
