package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// CampaignRepository implements port.CampaignRepository on PostgreSQL.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

var _ port.CampaignRepository = (*CampaignRepository)(nil)

func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

const campaignColumns = `id, agent_id, name, targeting, total_budget, spent, max_bid_price,
    cpc_bid, priority, pacing_start, pacing_end, created_at, updated_at`

// ListCampaigns returns every stored campaign ordered by id.
func (r *CampaignRepository) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCampaign)
}

func scanCampaign(row pgx.CollectableRow) (domain.Campaign, error) {
	var (
		c                      domain.Campaign
		targeting              []byte
		pacingStart, pacingEnd *time.Time
	)
	err := row.Scan(
		&c.ID,
		&c.AgentID,
		&c.Name,
		&targeting,
		&c.TotalBudget,
		&c.Spent,
		&c.MaxBidPrice,
		&c.CPCBid,
		&c.Priority,
		&pacingStart,
		&pacingEnd,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if err = json.Unmarshal(targeting, &c.Targeting); err != nil {
		return c, fmt.Errorf("campaign %s targeting: %w", c.ID, err)
	}
	c.Pacing = windowFromColumns(pacingStart, pacingEnd)
	return c, nil
}

// SaveCampaign upserts the campaign configuration. Spent-to-date is only
// written on insert; afterwards RecordSpend owns it.
func (r *CampaignRepository) SaveCampaign(ctx context.Context, c domain.Campaign) error {
	targeting, err := json.Marshal(c.Targeting)
	if err != nil {
		return err
	}
	pacingStart, pacingEnd := windowColumns(c.Pacing)

	_, err = r.pool.Exec(ctx, `INSERT INTO campaigns (`+campaignColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
    agent_id = EXCLUDED.agent_id,
    name = EXCLUDED.name,
    targeting = EXCLUDED.targeting,
    total_budget = EXCLUDED.total_budget,
    max_bid_price = EXCLUDED.max_bid_price,
    cpc_bid = EXCLUDED.cpc_bid,
    priority = EXCLUDED.priority,
    pacing_start = EXCLUDED.pacing_start,
    pacing_end = EXCLUDED.pacing_end,
    updated_at = EXCLUDED.updated_at`,
		c.ID, c.AgentID, c.Name, targeting, c.TotalBudget, c.Spent, c.MaxBidPrice,
		c.CPCBid, c.Priority, pacingStart, pacingEnd, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return err
}

// DeleteCampaign removes the campaign row. Recorded spend is kept.
func (r *CampaignRepository) DeleteCampaign(ctx context.Context, id domain.CampaignID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}
	return nil
}

// AdjustBudget adds delta to the stored total budget. It fails with
// ErrUnknownCampaign when no row matches.
func (r *CampaignRepository) AdjustBudget(ctx context.Context, id domain.CampaignID, delta int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET total_budget = total_budget + $1, updated_at = now() WHERE id = $2`,
		delta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, id)
	}
	return nil
}

// RecordSpend stores a confirmed charge and adds it to the campaign's spent
// column in one serializable transaction. Recording the same reservation
// twice is a no-op.
func (r *CampaignRepository) RecordSpend(ctx context.Context, s domain.Spend) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	var spent, total int64
	err = tx.QueryRow(ctx,
		`SELECT spent, total_budget FROM campaigns WHERE id = $1 FOR UPDATE`, s.CampaignID).
		Scan(&spent, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", port.ErrUnknownCampaign, s.CampaignID)
	}
	if err != nil {
		return err
	}
	if spent+s.Amount > total {
		return fmt.Errorf("%w: campaign %s spent %d + %d exceeds budget %d",
			port.ErrInsufficientBudget, s.CampaignID, spent, s.Amount, total)
	}

	tag, err := tx.Exec(ctx, `INSERT INTO spend (reservation_id, campaign_id, amount, created_at)
VALUES ($1,$2,$3,$4) ON CONFLICT (reservation_id) DO NOTHING`,
		s.ReservationID, s.CampaignID, s.Amount, s.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = tx.Exec(ctx, `UPDATE campaigns SET spent = spent + $1, updated_at = now() WHERE id = $2`,
		s.Amount, s.CampaignID)
	return err
}

func windowColumns(w domain.Window) (start, end *time.Time) {
	if w.IsZero() {
		return nil, nil
	}
	s, e := w.Start.UTC(), w.End.UTC()
	return &s, &e
}

func windowFromColumns(start, end *time.Time) domain.Window {
	var w domain.Window
	if start != nil {
		w.Start = start.UTC()
	}
	if end != nil {
		w.End = end.UTC()
	}
	return w
}
