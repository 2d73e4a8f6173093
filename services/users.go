package services

import (
	"context"
	"errors"

	"market-telegram/models"

	"github.com/jackc/pgx/v5"
)

// EnsureUser upserts the profile. is_admin is recomputed on every call while a
// stored language survives. Returns the stored language ("" when none).
func (s *Store) EnsureUser(ctx context.Context, u models.User) (string, error) {
	var lang *string
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, first_name, username, is_admin, language_code)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (telegram_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			username = EXCLUDED.username,
			is_admin = EXCLUDED.is_admin,
			language_code = COALESCE(users.language_code, EXCLUDED.language_code)
		RETURNING language_code`,
		u.TelegramID, u.FirstName, u.Username, u.IsAdmin, u.LanguageCode,
	).Scan(&lang)
	if err != nil {
		return "", err
	}
	if lang == nil {
		return "", nil
	}
	return *lang, nil
}

// GetUserLanguage returns the stored language, or "" if the user has none.
func (s *Store) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	var lang *string
	err := s.db.QueryRow(ctx, `SELECT language_code FROM users WHERE telegram_id = $1`, userID).Scan(&lang)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if lang == nil {
		return "", nil
	}
	return *lang, nil
}

func (s *Store) SetUserLanguage(ctx context.Context, userID int64, code string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (telegram_id, language_code)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET language_code = EXCLUDED.language_code`,
		userID, code,
	)
	return err
}
