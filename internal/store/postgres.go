package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/manajemen-lele/lele/internal/platform/db"
)

//go:embed schema.sql
var schemaSQL string

// schemaLockKey serialises bootstrap between the server and the worker.
const schemaLockKey int64 = 0x6c656c65

// Postgres is a Gateway backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres gateway.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return db.WithLockedTx(ctx, p.pool, schemaLockKey, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("store: bootstrap schema: %w", err)
		}
		return nil
	})
}

// Select implements Gateway.
func (p *Postgres) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapPG(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, wrapPG(err)
	}
	out := make([]Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, normalizeRow(m))
	}
	return out, nil
}

// Insert implements Gateway.
func (p *Postgres) Insert(ctx context.Context, table string, row Row) (Row, error) {
	values := row.Clone()
	values[ColumnID] = uuid.New()
	delete(values, ColumnCreatedAt)

	cols := sortedColumns(values)
	idents := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		idents[i] = pgx.Identifier{c}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = encodeValue(values[c])
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pgx.Identifier{table}.Sanitize(), strings.Join(idents, ", "), strings.Join(placeholders, ", "))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapPG(err)
	}
	inserted, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, wrapPG(err)
	}
	return normalizeRow(inserted), nil
}

// Update implements Gateway.
func (p *Postgres) Update(ctx context.Context, table, id string, row Row) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
	}
	values := row.Clone()
	delete(values, ColumnID)
	delete(values, ColumnCreatedAt)
	if len(values) == 0 {
		return nil
	}
	cols := sortedColumns(values)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
		args = append(args, encodeValue(values[c]))
	}
	args = append(args, uid)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{table}.Sanitize(), strings.Join(sets, ", "), len(args))

	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return wrapPG(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
	}
	return nil
}

// Delete implements Gateway.
func (p *Postgres) Delete(ctx context.Context, table, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", pgx.Identifier{table}.Sanitize())
	tag, err := p.pool.Exec(ctx, sql, uid)
	if err != nil {
		return wrapPG(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, table, id)
	}
	return nil
}

func buildSelect(table string, q Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pgx.Identifier{table}.Sanitize())

	args := make([]any, 0, len(q.Filters))
	for i, f := range q.Filters {
		var op string
		switch f.Op {
		case OpEq:
			op = "="
		case OpGte:
			op = ">="
		case OpLte:
			op = "<="
		default:
			return "", nil, fmt.Errorf("store: unsupported filter op %q", f.Op)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, encodeValue(f.Value))
		fmt.Fprintf(&b, "%s %s $%d", pgx.Identifier{f.Column}.Sanitize(), op, len(args))
	}
	if q.Order != nil {
		fmt.Fprintf(&b, " ORDER BY %s", pgx.Identifier{q.Order.Column}.Sanitize())
		if q.Order.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	return b.String(), args, nil
}

func sortedColumns(r Row) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// encodeValue converts gateway values into pgx-friendly arguments.
func encodeValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.String()
	default:
		return v
	}
}

// normalizeRow converts pgx scan results into the gateway value set:
// strings, decimals, times and nil.
func normalizeRow(m map[string]any) Row {
	out := make(Row, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case [16]byte:
			out[k] = uuid.UUID(t).String()
		case pgtype.Numeric:
			out[k] = numericToDecimal(t)
		case int32:
			out[k] = decimal.NewFromInt32(t)
		case int64:
			out[k] = decimal.NewFromInt(t)
		case float64:
			out[k] = decimal.NewFromFloat(t)
		case time.Time:
			out[k] = t
		default:
			out[k] = v
		}
	}
	return out
}

func numericToDecimal(n pgtype.Numeric) any {
	if !n.Valid || n.NaN {
		return nil
	}
	if n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func wrapPG(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
