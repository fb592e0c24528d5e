package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// CostRateRepository implements storage.CostRateStore.
type CostRateRepository struct {
	mgr *DatabaseManager
}

// NewCostRateRepository constructs a CostRateRepository.
func NewCostRateRepository(mgr *DatabaseManager) *CostRateRepository {
	return &CostRateRepository{mgr: mgr}
}

const costRateColumns = `id, provider, model, input_token_rate, output_token_rate, currency, effective_from, effective_to`

func scanCostRate(row interface{ Scan(...any) error }) (*types.CostRate, error) {
	var c types.CostRate
	var effectiveTo sql.NullTime
	if err := row.Scan(&c.ID, &c.Provider, &c.Model, &c.InputTokenRate, &c.OutputTokenRate, &c.Currency, &c.EffectiveFrom, &effectiveTo); err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		c.EffectiveTo = &effectiveTo.Time
	}
	return &c, nil
}

// CreateCostRate inserts a new versioned rate. Creating a new rate for a
// (provider, model) pair does not automatically close out any prior open
// rate; callers that want non-overlapping history must set EffectiveTo on
// the previous row themselves, matching the deliberately minimal write
// path the spec describes for cost_rates.
func (r *CostRateRepository) CreateCostRate(ctx context.Context, req types.CreateCostRateRequest) (*types.CostRate, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	_, err := r.mgr.DB().ExecContext(ctx, `
		INSERT INTO cost_rates (id, provider, model, input_token_rate, output_token_rate, currency, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, req.Provider, req.Model, req.InputTokenRate, req.OutputTokenRate, currency, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to insert cost rate", err)
	}

	row := r.mgr.DB().QueryRowContext(ctx, "SELECT "+costRateColumns+" FROM cost_rates WHERE id = ?", id)
	rate, err := scanCostRate(row)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to read back inserted cost rate", err)
	}
	return rate, nil
}

// GetCurrentCostRate returns the rate effective now for (provider, model):
// the row with the latest effective_from that is <= now and whose
// effective_to is either NULL or on/after today's date (a rate stays
// effective through its whole effective_to day).
func (r *CostRateRepository) GetCurrentCostRate(ctx context.Context, provider, model string) (*types.CostRate, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	row := r.mgr.DB().QueryRowContext(ctx, `
		SELECT `+costRateColumns+` FROM cost_rates
		WHERE provider = ? AND model = ? AND effective_from <= ?
		  AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY effective_from DESC
		LIMIT 1
	`, provider, model, now, today)
	rate, err := scanCostRate(row)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound(errs.CodeJobNotFound, "no effective cost rate for "+provider+"/"+model)
	}
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query current cost rate", err)
	}
	return rate, nil
}

// GetCostRates returns every rate row matching filter, most recent
// effective_from first.
func (r *CostRateRepository) GetCostRates(ctx context.Context, filter types.CostRateFilter) ([]*types.CostRate, error) {
	b := &sqlBuilder{}
	if filter.Provider != nil {
		b.add("provider = ?", *filter.Provider)
	}
	if filter.Model != nil {
		b.add("model = ?", *filter.Model)
	}
	if filter.OnDate != nil {
		b.add("effective_from <= ?", *filter.OnDate)
		b.add("(effective_to IS NULL OR effective_to >= ?)", *filter.OnDate)
	}

	query := "SELECT " + costRateColumns + " FROM cost_rates" + b.where() + " ORDER BY effective_from DESC"
	rows, err := r.mgr.DB().QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query cost rates", err)
	}
	defer rows.Close()

	var items []*types.CostRate
	for rows.Next() {
		rate, err := scanCostRate(rows)
		if err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan cost rate row", err)
		}
		items = append(items, rate)
	}
	return items, nil
}
