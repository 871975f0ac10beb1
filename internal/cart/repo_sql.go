package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"gorm.io/gorm"
)

// sessionRecord maps the cart_sessions table.
type sessionRecord struct {
	SessionID string    `gorm:"column:session_id;primaryKey"`
	BuyerID   string    `gorm:"column:buyer_id"`
	State     string    `gorm:"column:state;type:jsonb"`
	Version   int64     `gorm:"column:version"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (sessionRecord) TableName() string { return "cart_sessions" }

// SQLStateRepository stores carts in cart_sessions and rejects stale writes
// through the version column.
type SQLStateRepository struct {
	db *gorm.DB
}

// NewSQLStateRepository binds the repository to a GORM connection.
func NewSQLStateRepository(conn *gorm.DB) (*SQLStateRepository, error) {
	if conn == nil {
		return nil, errors.New("gorm db required")
	}
	return &SQLStateRepository{db: conn}, nil
}

func (r *SQLStateRepository) Load(ctx context.Context, sessionID string) (*State, error) {
	var rec sessionRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("read cart session: %w", err)
	}
	var state State
	if err := json.Unmarshal([]byte(rec.State), &state); err != nil {
		return nil, fmt.Errorf("decode cart session: %w", err)
	}
	state.ensureMaps()
	state.Version = rec.Version
	return &state, nil
}

func (r *SQLStateRepository) Save(ctx context.Context, state *State) error {
	if state == nil || state.SessionID == "" {
		return errors.New("cart state with session id required")
	}
	next := *state
	next.Version++
	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode cart session: %w", err)
	}

	now := time.Now().UTC()
	if state.Version == 0 {
		rec := sessionRecord{
			SessionID: state.SessionID,
			BuyerID:   state.BuyerID,
			State:     string(payload),
			Version:   next.Version,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
			if db.IsUniqueViolation(err, "") {
				return staleWrite(state)
			}
			return fmt.Errorf("insert cart session: %w", err)
		}
		state.Version = next.Version
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("session_id = ? AND version = ?", state.SessionID, state.Version).
		Updates(map[string]any{
			"state":      string(payload),
			"version":    next.Version,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("update cart session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return staleWrite(state)
	}
	state.Version = next.Version
	return nil
}

func (r *SQLStateRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&sessionRecord{}).Error; err != nil {
		return fmt.Errorf("delete cart session: %w", err)
	}
	return nil
}

// PurgeIdle deletes up to limit sessions untouched since cutoff, oldest first.
func (r *SQLStateRepository) PurgeIdle(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, errors.New("purge limit must be positive")
	}
	conn := r.db.WithContext(ctx)
	idle := conn.Model(&sessionRecord{}).
		Select("session_id").
		Where("updated_at < ?", cutoff.UTC()).
		Order("updated_at").
		Limit(limit)
	res := conn.Where("session_id IN (?)", idle).Delete(&sessionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge cart sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func staleWrite(state *State) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently").
		WithDetails(map[string]any{"session_id": state.SessionID, "version": state.Version})
}
