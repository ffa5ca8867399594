package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
)

// HistoryRepository gerencia o histórico de runs de estabilização no banco
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository cria um novo repositório de histórico
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RunRecord representa uma linha do histórico de runs
type RunRecord struct {
	ID              string          `json:"id" db:"id"`
	ProjectName     string          `json:"project_name" db:"project_name"`
	Method          string          `json:"method" db:"method"`
	TotalIterations int             `json:"total_iterations" db:"total_iterations"`
	UsedIterations  int             `json:"used_iterations" db:"used_iterations"`
	OutliersRemoved int             `json:"outliers_removed" db:"outliers_removed"`
	Confidence      float64         `json:"confidence" db:"confidence"`
	TotalHours      float64         `json:"total_hours" db:"total_hours"`
	IsValid         bool            `json:"is_valid" db:"is_valid"`
	Result          json.RawMessage `json:"result,omitempty" db:"result"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// SaveRun insere um run concluído no histórico
func (r *HistoryRepository) SaveRun(rec RunRecord) error {
	log := logger.Global()

	query := `
		INSERT INTO stabilization_runs
			(id, project_name, method, total_iterations, used_iterations,
			 outliers_removed, confidence, total_hours, is_valid, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`

	result := rec.Result
	if result == nil {
		result = json.RawMessage("{}")
	}

	_, err := r.db.Exec(query,
		rec.ID, rec.ProjectName, rec.Method,
		rec.TotalIterations, rec.UsedIterations, rec.OutliersRemoved,
		rec.Confidence, rec.TotalHours, rec.IsValid, []byte(result))
	if err != nil {
		log.Error().Err(err).Str("run_id", rec.ID).Msg("Erro ao salvar run no histórico")
		return fmt.Errorf("erro ao salvar run: %w", err)
	}

	return nil
}

// ListRecent devolve os runs mais recentes, sem o resultado completo
func (r *HistoryRepository) ListRecent(limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, project_name, method, total_iterations, used_iterations,
		       outliers_removed, confidence, total_hours, is_valid, created_at
		FROM stabilization_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.ProjectName, &rec.Method,
			&rec.TotalIterations, &rec.UsedIterations, &rec.OutliersRemoved,
			&rec.Confidence, &rec.TotalHours, &rec.IsValid, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("erro ao ler run: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRun devolve um run específico com o resultado completo
func (r *HistoryRepository) GetRun(id string) (*RunRecord, error) {
	query := `
		SELECT id, project_name, method, total_iterations, used_iterations,
		       outliers_removed, confidence, total_hours, is_valid, result, created_at
		FROM stabilization_runs
		WHERE id = $1
	`

	var rec RunRecord
	var raw []byte
	err := r.db.QueryRow(query, id).Scan(
		&rec.ID, &rec.ProjectName, &rec.Method,
		&rec.TotalIterations, &rec.UsedIterations, &rec.OutliersRemoved,
		&rec.Confidence, &rec.TotalHours, &rec.IsValid, &raw, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar run: %w", err)
	}

	rec.Result = json.RawMessage(raw)
	return &rec, nil
}
