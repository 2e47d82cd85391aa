package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"agrimarket/api/database"
	"agrimarket/api/models"
)

// ActivityStore is the append-only user activity log in ClickHouse.
type ActivityStore struct {
	DB     *database.ClickHouseClient
	logger *zap.Logger
}

func NewActivityStore(chClient *database.ClickHouseClient, logger *zap.Logger) *ActivityStore {
	return &ActivityStore{
		DB:     chClient,
		logger: logger.Named("activity_store"),
	}
}

func (s *ActivityStore) InsertActivities(ctx context.Context, activities []models.UserActivity) error {
	if len(activities) == 0 {
		return nil
	}

	// Column order must match the user_activity table.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO user_activity (activity_id, user_id, product_id, action, timestamp)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, a := range activities {
		if err := batch.Append(a.ID, a.UserID, a.ProductID, string(a.Action), a.Timestamp); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append activity %s to batch: %w", a.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.Debug("inserted user activities", zap.Int("count", len(activities)))
	return nil
}

// RecentActivities returns the user's newest rows whose action is in actions.
func (s *ActivityStore) RecentActivities(ctx context.Context, userID string, actions []models.ActivityAction, limit int) ([]models.UserActivity, error) {
	if len(actions) == 0 || limit <= 0 {
		return []models.UserActivity{}, nil
	}

	args := make([]any, 0, len(actions)+2)
	args = append(args, userID)
	for _, a := range actions {
		args = append(args, string(a))
	}
	args = append(args, limit)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(actions)), ", ")
	query := fmt.Sprintf(`
		SELECT activity_id, user_id, product_id, action, timestamp
		FROM user_activity
		WHERE user_id = ? AND action IN (%s)
		ORDER BY timestamp DESC
		LIMIT ?
	`, placeholders)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activities: %w", err)
	}
	defer rows.Close()

	results := make([]models.UserActivity, 0, limit)
	for rows.Next() {
		var (
			a      models.UserActivity
			action string
			ts     time.Time
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProductID, &action, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		a.Action = models.ActivityAction(action)
		a.Timestamp = ts
		results = append(results, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return results, nil
}
