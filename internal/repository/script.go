package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insightqa/insightqa/internal/domain"
)

// ScriptRepository persists generated UI scripts in Postgres.
// Instructions are stored as jsonb.
type ScriptRepository struct {
	db DB
}

// NewScriptRepository creates a new ScriptRepository.
func NewScriptRepository(db DB) *ScriptRepository {
	return &ScriptRepository{db: db}
}

type instructionRow struct {
	Strategy string `json:"strategy"`
	Locator  string `json:"locator"`
	Action   string `json:"action"`
	Value    string `json:"value,omitempty"`
}

// Create inserts a script.
func (r *ScriptRepository) Create(ctx context.Context, s *domain.Script) error {
	rows := make([]instructionRow, len(s.Instructions))
	for i, ins := range s.Instructions {
		rows[i] = instructionRow{
			Strategy: string(ins.Strategy),
			Locator:  ins.Locator,
			Action:   string(ins.Action),
			Value:    ins.Value,
		}
	}
	instructions, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode instructions: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO scripts (id, test_case_id, document_id, instructions, generated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.TestCaseID, s.DocumentID, instructions, s.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}
	return nil
}

// GetByID fetches a script.
func (r *ScriptRepository) GetByID(ctx context.Context, id string) (*domain.Script, error) {
	var s domain.Script
	var instructions []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, test_case_id, document_id, instructions, generated_at
		 FROM scripts WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.TestCaseID, &s.DocumentID, &instructions, &s.GeneratedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrScriptNotFound
		}
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	if err := decodeInstructions(&s, instructions); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByTestCase returns the scripts generated for a test case.
func (r *ScriptRepository) ListByTestCase(ctx context.Context, testCaseID string) ([]domain.Script, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, test_case_id, document_id, instructions, generated_at
		 FROM scripts WHERE test_case_id = $1 ORDER BY generated_at ASC, id ASC`,
		testCaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	scripts := make([]domain.Script, 0)
	for rows.Next() {
		var s domain.Script
		var instructions []byte
		if err := rows.Scan(&s.ID, &s.TestCaseID, &s.DocumentID, &instructions, &s.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		if err := decodeInstructions(&s, instructions); err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, rows.Err()
}

func decodeInstructions(s *domain.Script, data []byte) error {
	var rows []instructionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to decode instructions: %w", err)
	}
	s.Instructions = make([]domain.Instruction, len(rows))
	for i, row := range rows {
		s.Instructions[i] = domain.Instruction{
			Strategy: domain.LocatorStrategy(row.Strategy),
			Locator:  row.Locator,
			Action:   domain.Action(row.Action),
			Value:    row.Value,
		}
	}
	return nil
}
