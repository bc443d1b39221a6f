package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"deal-wizard/internal/common/logger"
)

// Repository persists created deals.
type Repository interface {
	CreateDeal(ctx context.Context, p *Payload) (string, error)
	LinkGeographicContext(ctx context.Context, dealID string, gc GeographicContext) error
}

type PostgresRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresRepository(db *sql.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger.ForComponent(log, "deal-repository")}
}

func (r *PostgresRepository) CreateDeal(ctx context.Context, p *Payload) (string, error) {
	dealID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	boundaryJSON, err := json.Marshal(p.Boundary)
	if err != nil {
		return "", fmt.Errorf("marshal boundary: %w", err)
	}
	economicsJSON, err := json.Marshal(p.Economics)
	if err != nil {
		return "", fmt.Errorf("marshal economics: %w", err)
	}
	developmentJSON, err := json.Marshal(developmentSections(p))
	if err != nil {
		return "", fmt.Errorf("marshal development sections: %w", err)
	}

	var lng, lat sql.NullFloat64
	if p.Coordinates != nil {
		lng = sql.NullFloat64{Float64: p.Coordinates.Lng, Valid: true}
		lat = sql.NullFloat64{Float64: p.Coordinates.Lat, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO deals (
			id, name, description, category, development_type, property_type_id,
			address, lng, lat, boundary, economics, document_ids, development, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		dealID,
		p.Name,
		p.Description,
		string(p.Category),
		string(p.DevelopmentType),
		p.PropertyTypeID,
		p.Address,
		lng,
		lat,
		boundaryJSON,
		economicsJSON,
		pq.Array(p.DocumentIDs),
		developmentJSON,
		"created",
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert deal: %w", err)
	}

	auditJSON, err := json.Marshal(map[string]interface{}{
		"category":        p.Category,
		"developmentType": p.DevelopmentType,
		"documentCount":   len(p.DocumentIDs),
		"hasDesign":       p.Design3D != nil,
	})
	if err != nil {
		auditJSON = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"deal_created",
		"deal",
		dealID,
		auditJSON,
		createdAt,
	)
	if err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"dealId": dealID,
		})
	}

	return dealID, nil
}

func (r *PostgresRepository) LinkGeographicContext(ctx context.Context, dealID string, gc GeographicContext) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deal_geographic_context (deal_id, trade_area_id, submarket_id, msa_id, linked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (deal_id) DO UPDATE SET
			trade_area_id = EXCLUDED.trade_area_id,
			submarket_id = EXCLUDED.submarket_id,
			msa_id = EXCLUDED.msa_id,
			linked_at = EXCLUDED.linked_at`,
		dealID,
		nullString(gc.TradeAreaID),
		nullString(gc.SubmarketID),
		nullString(gc.MSAID),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("link geographic context: %w", err)
	}
	return nil
}

// developmentSections returns nil for deals without a design so the column
// stores JSON null.
func developmentSections(p *Payload) map[string]interface{} {
	if p.Design3D == nil && p.FinancialAssumptions == nil && len(p.SelectedNeighbors) == 0 {
		return nil
	}
	return map[string]interface{}{
		"design3D":             p.Design3D,
		"selectedNeighbors":    p.SelectedNeighbors,
		"optimizationResult":   p.OptimizationResult,
		"proForma":             p.ProForma,
		"financialAssumptions": p.FinancialAssumptions,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
