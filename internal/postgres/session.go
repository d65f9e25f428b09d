package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/jackc/pgx/v5"
)

// GetUserBySessionToken resolves a session token to its user.
// Expired sessions resolve as unauthorized.
func (s *Store) GetUserBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRow(ctx, `
		SELECT u.id, u.email, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`,
		token,
	).Scan(&user.ID, &user.Email, &user.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Unauthorized("session.get", "invalid or expired session")
		}
		return nil, domain.Internal(err, "session.get", "failed to resolve session")
	}
	return &user, nil
}
