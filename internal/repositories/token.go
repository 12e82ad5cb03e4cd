package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

var _ models.Repository[*models.StoredToken] = (*TokenRepository)(nil)

const tokenColumns = `id, platform, access_token, refresh_token, token_type, expiry, created_at, updated_at`

// TokenRepository implements [models.Repository] for [models.StoredToken] persistence.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a new token with a generated ID. A platform can hold only one token.
func (r *TokenRepository) Create(token *models.StoredToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO tokens (` + tokenColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, string(token.Platform()), token.AccessToken(), nullString(token.RefreshToken()),
		nullString(token.TokenType()), nullTime(token.Expiry()), token.CreatedAt(), token.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	token.SetID(id)
	return nil
}

// Get retrieves a token by ID
func (r *TokenRepository) Get(id string) (*models.StoredToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = ?`

	token, err := scanToken(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token %s", shared.ErrTokenNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}
	return token, nil
}

// GetByPlatform retrieves the token stored for a platform
func (r *TokenRepository) GetByPlatform(platform models.Platform) (*models.StoredToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE platform = ?`

	token, err := scanToken(r.db.QueryRow(query, string(platform)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no token for %s", shared.ErrTokenNotFound, platform)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}
	return token, nil
}

// Update replaces the token values of an existing row
func (r *TokenRepository) Update(token *models.StoredToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	token.SetUpdatedAt(now)

	query := `
		UPDATE tokens
		SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, token.AccessToken(), nullString(token.RefreshToken()), nullString(token.TokenType()),
		nullTime(token.Expiry()), now, token.ID())
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return requireAffected(result, "token", token.ID())
}

// Save stores the token as the platform's only token, replacing any previous one.
// The existing row keeps its ID and creation time.
func (r *TokenRepository) Save(token *models.StoredToken) error {
	existing, err := r.GetByPlatform(token.Platform())
	switch {
	case errors.Is(err, shared.ErrTokenNotFound):
		return r.Create(token)
	case err != nil:
		return err
	}

	token.SetID(existing.ID())
	if token.RefreshToken() == "" && existing.RefreshToken() != "" {
		tok := token.OAuth2()
		tok.RefreshToken = existing.RefreshToken()
		token.SetToken(tok)
	}
	return r.Update(token)
}

// Delete removes a token by ID
func (r *TokenRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return requireAffected(result, "token", id)
}

// DeleteByPlatform removes the token stored for a platform
func (r *TokenRepository) DeleteByPlatform(platform models.Platform) error {
	result, err := r.db.Exec(`DELETE FROM tokens WHERE platform = ?`, string(platform))
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return requireAffected(result, "token for", string(platform))
}

// List retrieves all tokens matching the given criteria.
//
// Supported criteria: "platform" (string or [models.Platform]).
func (r *TokenRepository) List(criteria map[string]any) ([]*models.StoredToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE 1 = 1`
	args := []any{}

	switch p := criteria["platform"].(type) {
	case string:
		if p != "" {
			query += " AND platform = ?"
			args = append(args, p)
		}
	case models.Platform:
		query += " AND platform = ?"
		args = append(args, string(p))
	}

	query += " ORDER BY platform ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.StoredToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tokens, nil
}

// PruneExpired deletes expired tokens that cannot be refreshed and returns how many were removed.
func (r *TokenRepository) PruneExpired(now time.Time) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE expiry IS NOT NULL AND expiry <= ? AND (refresh_token IS NULL OR refresh_token = '')
	`

	result, err := r.db.Exec(query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func scanToken(row scanner) (*models.StoredToken, error) {
	var (
		id, platform, access string
		refresh, tokenType   sql.NullString
		expiry               sql.NullTime
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &platform, &access, &refresh, &tokenType, &expiry, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return models.RestoreStoredToken(id, models.Platform(platform), access, refresh.String, tokenType.String,
		expiry.Time, createdAt, updatedAt), nil
}
