package services

import "errors"

var (
	// ErrInvalidChunkSize 分块大小必须为正数，属于配置错误
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	// ErrModelCall 模型调用失败（网络、超时、配额、熔断）
	ErrModelCall = errors.New("model call failed")
	// ErrEmptyHistory 用户没有可用的观看记录
	ErrEmptyHistory = errors.New("watch history is empty")
	// ErrNoClusters 模型回复中没有解析出任何聚类
	ErrNoClusters = errors.New("no clusters parsed from model response")
	// ErrStorage 读写数据库失败
	ErrStorage = errors.New("storage error")
)
