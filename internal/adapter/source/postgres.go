package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// modelTable holds the model output in long form: one row per
// (year, regine, variable).
const modelTable = "teotil_results"

// PostgresSource loads catchment records from a model results database.
// It implements pipeline.Source.
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresSource connects to databaseURL and verifies the connection.
func NewPostgresSource(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresSource{pool: pool, logger: logger}, nil
}

// Load queries one year of nutrient n.
func (s *PostgresSource) Load(ctx context.Context, year int, n domain.Nutrient) ([]domain.CatchmentRecord, error) {
	query, args, err := modelQuery(year, n)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %d: %w", domain.ErrDataUnavailable, year, err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[modelRow])
	if err != nil {
		return nil, fmt.Errorf("%w: scan %d: %w", domain.ErrDataUnavailable, year, err)
	}
	s.logger.Debug("model rows queried", "year", year, "nutrient", n, "rows", len(results))
	return recordsFromRows(year, n, results)
}

func (s *PostgresSource) Close() {
	s.pool.Close()
}

type modelRow struct {
	Regine   string  `db:"regine"`
	Variable string  `db:"variable"`
	Value    float64 `db:"value"`
}

// builder returns a squirrel builder with Postgres placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func modelQuery(year int, n domain.Nutrient) (string, []any, error) {
	return builder().
		Select("regine", "variable", "value").
		From(modelTable).
		Where(squirrel.Eq{"year": year}).
		Where(squirrel.Like{"variable": "accum_%-" + string(n) + "_tonnes"}).
		OrderBy("regine", "variable").
		ToSql()
}

// recordsFromRows applies the same rules as ParseModelCSV to query results:
// the year must have rows, every required variable must occur at least
// once, and only coastal catchments are kept.
func recordsFromRows(year int, n domain.Nutrient, rows []modelRow) ([]domain.CatchmentRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no model rows for %d", domain.ErrDataUnavailable, year)
	}

	seen := make(map[string]bool)
	records := make([]domain.CatchmentRecord, 0, len(rows))
	for _, r := range rows {
		variable := domain.NormalizeColumn(r.Variable)
		if !domain.IsNutrientVariable(variable, n) {
			continue
		}
		seen[variable] = true
		code := strings.TrimSpace(r.Regine)
		if !domain.IsCoastalCatchment(code) {
			continue
		}
		records = append(records, domain.CatchmentRecord{
			CatchmentID: code,
			Year:        year,
			Nutrient:    n,
			Variable:    variable,
			Value:       r.Value,
		})
	}

	var missing []string
	for _, v := range domain.RequiredVariables(n) {
		if !seen[v] {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: year %d lacks variables %s",
			domain.ErrSchemaMismatch, year, strings.Join(missing, ", "))
	}
	return records, nil
}
