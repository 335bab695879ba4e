package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/render"
	"github.com/nysm-ir/planir/internal/task"
	"github.com/nysm-ir/planir/internal/workflow"
)

// Hash computes the content-addressed identity of a coalesced op graph:
// its rendered debug tree, hashed with ir.OpGraphHash's domain separation.
// Two structurally equal graphs hash equal regardless of which build
// produced them. render.Tree's map[string]any/[]any/string shape is exactly
// what ir.OpGraphHash (via MarshalCanonical) accepts directly.
func Hash(op workflow.Op) (string, error) {
	return ir.OpGraphHash(render.Tree(op))
}

// Entry is a cached crush result: the canonical JSON of the task tree a
// plan's op graph crushed to (see render.TaskTree), plus the base DocVar
// it crushed under.
type Entry struct {
	TaskJSON []byte
	Base     expr.DocVar
	CachedAt time.Time
}

// Get looks up a cache entry by op-graph hash. The second return value is
// false on a cache miss.
func (s *Store) Get(ctx context.Context, hash string) (*Entry, bool, error) {
	var taskJSON, baseRoot, basePathJSON, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT task_json, base_root, base_path, created_at FROM builds WHERE op_graph_hash = ?`,
		hash,
	).Scan(&taskJSON, &baseRoot, &basePathJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("planstore: get %s: %w", hash, err)
	}

	var path []string
	if err := json.Unmarshal([]byte(basePathJSON), &path); err != nil {
		return nil, false, fmt.Errorf("planstore: decode base path: %w", err)
	}
	cachedAt, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("planstore: decode created_at: %w", err)
	}

	return &Entry{
		TaskJSON: []byte(taskJSON),
		Base:     expr.DocVar{Root: baseRoot, Path: path},
		CachedAt: cachedAt,
	}, true, nil
}

// Put records a crush result under hash, doing nothing if an entry for
// that hash already exists — the result is a pure function of the hashed
// graph, so a pre-existing entry is already correct.
func (s *Store) Put(ctx context.Context, hash string, base expr.DocVar, t task.Task) error {
	taskJSON, err := ir.MarshalCanonical(render.TaskTree(t))
	if err != nil {
		return fmt.Errorf("planstore: encode task: %w", err)
	}
	basePathJSON, err := json.Marshal(base.Path)
	if err != nil {
		return fmt.Errorf("planstore: encode base path: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO builds (op_graph_hash, task_json, base_root, base_path, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(op_graph_hash) DO NOTHING
	`,
		hash, string(taskJSON), base.Root, string(basePathJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("planstore: put %s: %w", hash, err)
	}
	return nil
}

// Clear removes every cached build, for the CLI's "cache clear".
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM builds`)
	if err != nil {
		return 0, fmt.Errorf("planstore: clear: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached builds, for the CLI's "cache stats".
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM builds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("planstore: count: %w", err)
	}
	return n, nil
}
