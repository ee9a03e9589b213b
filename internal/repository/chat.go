package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/pagination"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db dbtx
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: pool}
}

func NewChatRepositoryWithTx(tx pgx.Tx) *ChatRepository {
	return &ChatRepository{db: tx}
}

func (r *ChatRepository) CreateSession(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, created_at, updated_at) VALUES ($1, $2, $3)`,
		s.ID, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *ChatRepository) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := r.db.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// TouchSession bumps the session's last activity.
func (r *ChatRepository) TouchSession(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, m *domain.ChatMessage) error {
	citations := m.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, citations, refused, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SessionID, string(m.Role), m.Content, citationsJSON, m.Refused, m.CreatedAt,
	)
	return err
}

// ListMessages returns a session's messages oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*service.MessagePageResult, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, session_id, role, content, citations, refused, created_at
			 FROM chat_messages
			 WHERE session_id = $1 AND (created_at, id) > ($2, $3)
			 ORDER BY created_at, id
			 LIMIT $4`,
			sessionID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, session_id, role, content, citations, refused, created_at
			 FROM chat_messages
			 WHERE session_id = $1
			 ORDER BY created_at, id
			 LIMIT $2`,
			sessionID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanMessageRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.MessagePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *ChatRepository) SessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	stats := domain.SessionStats{SessionID: sessionID}
	var lastMessage *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT s.created_at, s.updated_at, COUNT(m.id), MAX(m.created_at)
		 FROM chat_sessions s
		 LEFT JOIN chat_messages m ON m.session_id = s.id
		 WHERE s.id = $1
		 GROUP BY s.id`,
		sessionID,
	).Scan(&stats.CreatedAt, &stats.LastActivity, &stats.MessageCount, &lastMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	if lastMessage != nil && lastMessage.After(stats.LastActivity) {
		stats.LastActivity = *lastMessage
	}
	return &stats, nil
}

func scanMessageRows(rows pgx.Rows) ([]*domain.ChatMessage, error) {
	var results []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var role string
		var citationsJSON []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &citationsJSON, &m.Refused, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.MessageRole(role)
		if len(citationsJSON) > 0 {
			if err := json.Unmarshal(citationsJSON, &m.Citations); err != nil {
				return nil, err
			}
		}
		results = append(results, &m)
	}
	return results, rows.Err()
}
