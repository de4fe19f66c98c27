package postgres

import (
	"context"

	"github.com/bmlt-enabled/tomato/internal/domain/importproblems"
)

type ImportProblemRepo struct{ r *Repository }

// Record persists an import problem (spec §4.4: malformed records are
// logged, not fatal).
func (repo *ImportProblemRepo) Record(ctx context.Context, p importproblems.ImportProblem) error {
	_, err := repo.r.conn().Exec(ctx, `
		INSERT INTO import_problems (root_server_id, message, "timestamp", raw_record)
		VALUES ($1, $2, $3, $4)`, p.RootServerID, p.Message, p.Timestamp, p.RawRecord)
	return err
}

// ListByRootServer returns the recorded problems for a root server,
// newest first.
func (repo *ImportProblemRepo) ListByRootServer(ctx context.Context, rootServerID int) ([]importproblems.ImportProblem, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT id, root_server_id, message, "timestamp", raw_record
		FROM import_problems WHERE root_server_id = $1 ORDER BY "timestamp" DESC`, rootServerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []importproblems.ImportProblem
	for rows.Next() {
		var p importproblems.ImportProblem
		if err := rows.Scan(&p.ID, &p.RootServerID, &p.Message, &p.Timestamp, &p.RawRecord); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ClearForRootServer removes all prior problems before a fresh import
// pass, so stale entries don't accumulate across runs.
func (repo *ImportProblemRepo) ClearForRootServer(ctx context.Context, rootServerID int) error {
	_, err := repo.r.conn().Exec(ctx, `DELETE FROM import_problems WHERE root_server_id = $1`, rootServerID)
	return err
}
