// 软件包 history 将结束的录制会话落库，供回看与统计.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fairwaylab/swingsense/session"
	"github.com/fairwaylab/swingsense/types"
)

// =============================================================================
// 🗄️ 会话历史存储
// =============================================================================

// SessionRecord 一次已结束会话的持久化记录
type SessionRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Phase        string    `json:"phase"`
	FinishReason string    `json:"finish_reason"`
	SwingCount   int       `json:"swing_count"`
	TargetSwings int       `json:"target_swings"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (SessionRecord) TableName() string { return "session_records" }

// Store 基于 SQLite 的会话历史存储
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 打开（必要时创建）历史库并迁移表结构
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, fmt.Errorf("history store path cannot be empty")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history store: %w", err)
	}

	logger.Info("history store opened", zap.String("path", path))
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "history_store")),
	}, nil
}

// Record 落库一次已结束的会话；实现 session.Recorder
func (s *Store) Record(ctx context.Context, sess session.Session) error {
	rec := SessionRecord{
		ID:           sess.ID,
		Phase:        string(sess.Phase),
		FinishReason: string(sess.FinishReason),
		SwingCount:   sess.SwingCount,
		TargetSwings: sess.TargetSwings,
		StartedAt:    sess.StartedAt,
		FinishedAt:   sess.FinishedAt,
		DurationMS:   sess.FinishedAt.Sub(sess.StartedAt).Milliseconds(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record session %s: %w", sess.ID, err)
	}
	s.logger.Debug("session recorded",
		zap.String("session_id", sess.ID),
		zap.String("reason", rec.FinishReason),
		zap.Int("swing_count", rec.SwingCount))
	return nil
}

// Recent 返回最近 n 条记录，按结束时间倒序
func (s *Store) Recent(ctx context.Context, n int) ([]SessionRecord, error) {
	if n <= 0 {
		n = 20
	}
	var records []SessionRecord
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	return records, nil
}

// Get 按 id 取一条记录
func (s *Store) Get(ctx context.Context, id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrInternalError, fmt.Sprintf("session %s not found", id)).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session record: %w", err)
	}
	return &rec, nil
}

// Ping 探活，供就绪检查使用
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
