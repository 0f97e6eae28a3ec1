package tournament

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CoolerPoker/internal/game/table"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS tournaments (
    id               TEXT PRIMARY KEY,
    address          TEXT NOT NULL UNIQUE,
    mode             TEXT NOT NULL,
    bot_count        INTEGER NOT NULL,
    human_chair      INTEGER NOT NULL,
    contract_address TEXT NOT NULL DEFAULT '',
    balances         BIGINT[],
    addresses        TEXT[],
    created_at       TIMESTAMPTZ NOT NULL
)`

const selectColumns = `SELECT id, address, mode, bot_count, human_chair, contract_address, balances, addresses, created_at FROM tournaments`

// unique_violation
const pqUniqueViolation = "23505"

type postgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo 需要 lib/pq 驱动打开的连接；ttl 在这里不生效，结束时由 Finish 删除
func NewPostgresRepo(db *sql.DB) Repo {
	return &postgresRepo{db: db}
}

// Migrate 建表
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (p *postgresRepo) Save(ctx context.Context, t *Tournament, ttl time.Duration) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tournaments (id, address, mode, bot_count, human_chair, contract_address, balances, addresses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			mode = EXCLUDED.mode,
			bot_count = EXCLUDED.bot_count,
			human_chair = EXCLUDED.human_chair,
			contract_address = EXCLUDED.contract_address,
			balances = EXCLUDED.balances,
			addresses = EXCLUDED.addresses`,
		t.ID, t.Address, string(t.Mode), t.BotCount, t.HumanChair, t.ContractAddress,
		pq.Array(t.Balances), pq.Array(t.Addresses), t.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrAlreadyInTournament
	}
	return err
}

func (p *postgresRepo) Get(ctx context.Context, id string) (*Tournament, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
}

func (p *postgresRepo) GetByPlayer(ctx context.Context, address string) (*Tournament, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, selectColumns+` WHERE address = $1`, address))
}

func (p *postgresRepo) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgresRepo) scanOne(row *sql.Row) (*Tournament, error) {
	var (
		t    Tournament
		mode string
	)
	err := row.Scan(&t.ID, &t.Address, &mode, &t.BotCount, &t.HumanChair, &t.ContractAddress,
		pq.Array(&t.Balances), pq.Array(&t.Addresses), &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tournament: %w", err)
	}
	t.Mode = table.GameMode(mode)
	return &t, nil
}
