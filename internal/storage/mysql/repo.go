package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/chrisjannenga/review-insights/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ToggleClaim claims the place for the user, or releases an existing claim.
// The check-then-write pair runs in one transaction so two racing toggles
// cannot both insert.
func (r *Repo) ToggleClaim(ctx context.Context, c domain.Claim) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, selectClaimSQL, c.UserID, c.PlaceID).Scan(&id)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, deleteClaimSQL, c.UserID, c.PlaceID); err != nil {
			return false, err
		}
		return false, tx.Commit()
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, insertClaimSQL, c.UserID, c.PlaceID, c.Name, c.Address); err != nil {
			return false, err
		}
		return true, tx.Commit()
	default:
		return false, err
	}
}

func (r *Repo) IsClaimed(ctx context.Context, userID, placeID string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, selectClaimSQL, userID, placeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) ListClaims(ctx context.Context, userID string) ([]domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx, listClaimsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.UserID, &c.PlaceID, &c.Name, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) ListClaimedPlaceIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listClaimedPlaceIDsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertReviews(ctx context.Context, placeID string, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*6)
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?)")
		args = append(args,
			placeID,
			rv.ID,
			valStr(rv.Author),
			rv.Rating,
			string(rv.Sentiment),
			valStr(rv.Text),
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
