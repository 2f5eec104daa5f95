package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"illyrian_project/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ domain.UserStore  = (*UserRepository)(nil)
	_ domain.StatsStore = (*UserRepository)(nil)
)

const uniqueViolation = "23505"

const userColumns = `id, email, username, network, usdt_wallet, token_wallet, wallets_locked,
	COALESCE(referral_code, ''), referral_bonuses, referred_by,
	selected_offer, offer_end_time, invest_completed, last_invest_summary,
	mining, mining_completed, last_mining_summary,
	notify_mining, notify_referral, notify_security, created_at, updated_at`

// UserRepository keeps one row per user document. Nested objects are JSONB.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	args, err := userArgs(u)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO users (id, email, username, network, usdt_wallet, token_wallet, wallets_locked,
			referral_code, referral_bonuses, referred_by,
			selected_offer, offer_end_time, invest_completed, last_invest_summary,
			mining, mining_completed, last_mining_summary,
			notify_mining, notify_referral, notify_security, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, append(args, u.CreatedAt, u.UpdatedAt)...)
	if err != nil {
		return mapWriteError("failed to create user", err)
	}
	return nil
}

func (r *UserRepository) IDByReferralCode(ctx context.Context, code string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE referral_code = $1`, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to find referral code: %w", err)
	}
	return id, nil
}

func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`,
		username,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return taken, nil
}

// Update locks the rows in id order so that two transactions touching the
// same pair of users cannot deadlock.
func (r *UserRepository) Update(ctx context.Context, ids []string, fn domain.UpdateFunc) ([]string, error) {
	ids = uniqueSorted(ids)

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	docs := make(map[string]*domain.User, len(ids))
	originals := make(map[string]*domain.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		docs[u.ID] = u
		originals[u.ID] = u.Clone()
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	if err := fn(docs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var changed []string
	for _, id := range ids {
		u, ok := docs[id]
		if !ok || reflect.DeepEqual(u, originals[id]) {
			continue
		}
		u.ID = id
		u.UpdatedAt = now
		args, err := userArgs(u)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET email = $2, username = $3, network = $4, usdt_wallet = $5, token_wallet = $6,
				wallets_locked = $7, referral_code = NULLIF($8, ''), referral_bonuses = $9, referred_by = $10,
				selected_offer = $11, offer_end_time = $12, invest_completed = $13, last_invest_summary = $14,
				mining = $15, mining_completed = $16, last_mining_summary = $17,
				notify_mining = $18, notify_referral = $19, notify_security = $20, updated_at = $21
			WHERE id = $1
		`, append(args, now)...)
		if err != nil {
			return nil, mapWriteError("failed to update user", err)
		}
		changed = append(changed, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapWriteError("failed to commit user update", err)
	}
	return changed, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListExpired(ctx context.Context, lane domain.Lane, nowMs int64, limit int) ([]string, error) {
	var query string
	switch lane {
	case domain.LaneInvest:
		query = `SELECT id FROM users
			WHERE invest_completed = FALSE AND offer_end_time IS NOT NULL AND offer_end_time <= $1
			ORDER BY offer_end_time LIMIT $2`
	case domain.LaneMining:
		query = `SELECT id FROM users
			WHERE mining_completed = FALSE AND mining IS NOT NULL AND (mining->>'miningEndTime')::BIGINT <= $1
			ORDER BY (mining->>'miningEndTime')::BIGINT LIMIT $2`
	default:
		return nil, domain.ErrUnknownLane
	}

	rows, err := r.db.Query(ctx, query, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired %s commitments: %w", lane, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) IDByUsername(ctx context.Context, username string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE LOWER(username) = LOWER($1)`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to find username: %w", err)
	}
	return id, nil
}

// Stats counts lane states in one scan. A lane is pending once its end time
// has passed without the completion flag.
func (r *UserRepository) Stats(ctx context.Context, nowMs int64) (*domain.Stats, error) {
	var st domain.Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE wallets_locked),
			COUNT(*) FILTER (WHERE referred_by IS NOT NULL),
			COALESCE(SUM(referral_bonuses), 0),
			COUNT(*) FILTER (WHERE selected_offer IS NOT NULL AND NOT invest_completed AND offer_end_time > $1),
			COUNT(*) FILTER (WHERE mining IS NOT NULL AND NOT mining_completed AND (mining->>'miningEndTime')::BIGINT > $1),
			COUNT(*) FILTER (WHERE selected_offer IS NOT NULL AND NOT invest_completed AND offer_end_time <= $1),
			COUNT(*) FILTER (WHERE mining IS NOT NULL AND NOT mining_completed AND (mining->>'miningEndTime')::BIGINT <= $1),
			COUNT(*) FILTER (WHERE selected_offer IS NOT NULL AND offer_end_time IS NOT NULL AND invest_completed),
			COUNT(*) FILTER (WHERE mining IS NOT NULL AND mining_completed)
		FROM users
	`, nowMs).Scan(
		&st.TotalUsers, &st.WalletsLocked, &st.ReferredUsers, &st.BonusesHeld,
		&st.ActiveInvestments, &st.ActiveMining,
		&st.PendingInvestments, &st.PendingMining,
		&st.CompletedInvestments, &st.CompletedMining,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return &st, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u                         domain.User
		offerJSON, investSumJSON  []byte
		miningJSON, miningSumJSON []byte
	)
	if err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.Network, &u.USDTWallet, &u.TokenWallet, &u.WalletsLocked,
		&u.ReferralCode, &u.ReferralBonuses, &u.ReferredBy,
		&offerJSON, &u.OfferEndTime, &u.InvestCompleted, &investSumJSON,
		&miningJSON, &u.MiningCompleted, &miningSumJSON,
		&u.NotifyMining, &u.NotifyReferral, &u.NotifySecurity, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := unmarshalNullable(offerJSON, &u.SelectedOffer); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(investSumJSON, &u.LastInvestSummary); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(miningJSON, &u.Mining); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(miningSumJSON, &u.LastMiningSummary); err != nil {
		return nil, err
	}
	return &u, nil
}

// userArgs returns $1..$20 of the insert and update statements.
func userArgs(u *domain.User) ([]any, error) {
	offer, err := marshalNullable(u.SelectedOffer)
	if err != nil {
		return nil, err
	}
	investSum, err := marshalNullable(u.LastInvestSummary)
	if err != nil {
		return nil, err
	}
	mining, err := marshalNullable(u.Mining)
	if err != nil {
		return nil, err
	}
	miningSum, err := marshalNullable(u.LastMiningSummary)
	if err != nil {
		return nil, err
	}

	return []any{
		u.ID, u.Email, u.Username, u.Network, u.USDTWallet, u.TokenWallet, u.WalletsLocked,
		u.ReferralCode, u.ReferralBonuses, u.ReferredBy,
		offer, u.OfferEndTime, u.InvestCompleted, investSum,
		mining, u.MiningCompleted, miningSum,
		u.NotifyMining, u.NotifyReferral, u.NotifySecurity,
	}, nil
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document field: %w", err)
	}
	return b, nil
}

func unmarshalNullable[T any](b []byte, dst **T) error {
	if len(b) == 0 || string(b) == "null" {
		*dst = nil
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode document field: %w", err)
	}
	*dst = v
	return nil
}

func mapWriteError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
