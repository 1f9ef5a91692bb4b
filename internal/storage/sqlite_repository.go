package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sandeepkv93/tasktree/internal/debug"
	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/model"
)

// Fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens the database at path and brings its schema up to date.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// foreign_keys is per connection.
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// SaveSnapshot replaces the named snapshot with doc. The creation time of an
// existing snapshot is kept.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, name string, doc document.Document) (SnapshotInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SnapshotInfo{}, ErrInvalidName
	}
	rows := flatten(doc)
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (name, node_count, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET node_count = excluded.node_count, updated_at = excluded.updated_at`,
		name, len(rows), mustTime(now), mustTime(now),
	); err != nil {
		return SnapshotInfo{}, fmt.Errorf("upsert snapshot %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_nodes WHERE snapshot = ?`, name); err != nil {
		return SnapshotInfo{}, fmt.Errorf("clear snapshot %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_nodes (snapshot, seq, parent_seq, position, id, task, weight, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, name, row.seq, nullSeq(row.parentSeq), row.position,
			row.node.ID, row.node.Task, row.node.Weight, string(row.node.Type)); err != nil {
			return SnapshotInfo{}, fmt.Errorf("insert snapshot node %d: %w", row.node.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return SnapshotInfo{}, fmt.Errorf("commit snapshot %s: %w", name, err)
	}
	debug.Log("saved snapshot %q (%d nodes)", name, len(rows))
	return r.GetSnapshot(ctx, name)
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, name string) (SnapshotInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, node_count, created_at, updated_at
		FROM snapshots WHERE name = ?`, name)
	info, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SnapshotInfo{}, ErrNotFound
		}
		return SnapshotInfo{}, err
	}
	return info, nil
}

// LoadSnapshot rebuilds the ordered forest stored under name.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, name string) (document.Document, error) {
	if _, err := r.GetSnapshot(ctx, name); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, parent_seq, id, task, weight, type
		FROM snapshot_nodes WHERE snapshot = ?
		ORDER BY seq`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []flatNode
	for rows.Next() {
		var (
			row    flatNode
			parent sql.NullInt64
			typ    string
		)
		if err := rows.Scan(&row.seq, &parent, &row.node.ID, &row.node.Task, &row.node.Weight, &typ); err != nil {
			return nil, err
		}
		row.parentSeq = -1
		if parent.Valid {
			row.parentSeq = int(parent.Int64)
		}
		row.node.Type = model.TaskType(typ)
		flat = append(flat, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return unflatten(flat)
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, filter SnapshotListFilter) ([]SnapshotInfo, error) {
	query := `SELECT name, node_count, created_at, updated_at FROM snapshots ORDER BY updated_at DESC, name`
	args := make([]any, 0, 2)
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SnapshotInfo, 0)
	for rows.Next() {
		info, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteSnapshot(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// flatNode is one stored row. seq is the pre-order position in the whole
// document, so parents always precede their children.
type flatNode struct {
	seq       int
	parentSeq int
	position  int
	node      document.Node
}

func flatten(doc document.Document) []flatNode {
	out := make([]flatNode, 0)
	var visit func(nodes []document.Node, parentSeq int)
	visit = func(nodes []document.Node, parentSeq int) {
		for i, n := range nodes {
			seq := len(out)
			leaf := n
			leaf.Children = nil
			leaf.Expanded = nil
			out = append(out, flatNode{seq: seq, parentSeq: parentSeq, position: i, node: leaf})
			visit(n.Children, seq)
		}
	}
	visit(doc, -1)
	return out
}

func unflatten(rows []flatNode) (document.Document, error) {
	children := make(map[int][]int, len(rows))
	index := make(map[int]int, len(rows))
	var roots []int
	for i, row := range rows {
		index[row.seq] = i
		if row.parentSeq < 0 {
			roots = append(roots, row.seq)
			continue
		}
		if _, ok := index[row.parentSeq]; !ok {
			return nil, fmt.Errorf("storage: snapshot node %d references missing parent row %d", row.node.ID, row.parentSeq)
		}
		children[row.parentSeq] = append(children[row.parentSeq], row.seq)
	}
	var build func(seqs []int) []document.Node
	build = func(seqs []int) []document.Node {
		out := make([]document.Node, 0, len(seqs))
		for _, seq := range seqs {
			n := rows[index[seq]].node
			n.Children = build(children[seq])
			out = append(out, n)
		}
		return out
	}
	return document.Document(build(roots)), nil
}

func nullSeq(v int) any {
	if v < 0 {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s scanner) (SnapshotInfo, error) {
	var out SnapshotInfo
	var created, updated string
	if err := s.Scan(&out.Name, &out.NodeCount, &created, &updated); err != nil {
		return SnapshotInfo{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return SnapshotInfo{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return SnapshotInfo{}, err
	}
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
