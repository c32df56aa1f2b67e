package templates

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/nudiguru/nudiguru-api/internal/feature"
)

// Queries used by PostgresSource. References are returned in position order so
// the bank keeps the order they were recorded in.
const (
	selectEmbeddings = `
		SELECT lesson_id, syllable, embedding
		FROM   syllable_embeddings
		ORDER  BY lesson_id, syllable, position`

	selectFrames = `
		SELECT lesson_id, syllable, frames
		FROM   syllable_frames
		ORDER  BY lesson_id, syllable, position`
)

// reference is one row of a template table.
type reference[T any] struct {
	LessonID string
	Syllable string
	Value    T
}

// PostgresSource loads template banks from PostgreSQL. Embeddings are stored
// as pgvector vectors and frame matrices as real[][] columns.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects to dsn and registers pgvector types on every
// connection.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("templates: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("templates: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("templates: ping: %w", err)
	}

	return &PostgresSource{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresSource) Close() {
	p.pool.Close()
}

// LoadVectors reads the embedding bank.
func (p *PostgresSource) LoadVectors(ctx context.Context) (*Store[feature.Vector], error) {
	rows, err := p.pool.Query(ctx, selectEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("templates: query embeddings: %w", err)
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reference[feature.Vector], error) {
		var (
			ref reference[feature.Vector]
			vec pgvector.Vector
		)
		if err := row.Scan(&ref.LessonID, &ref.Syllable, &vec); err != nil {
			return ref, err
		}
		ref.Value = widen(vec.Slice())
		return ref, nil
	})
	if err != nil {
		return nil, fmt.Errorf("templates: scan embeddings: %w", err)
	}

	return NewStore("vector", assemble(refs)), nil
}

// LoadMatrices reads the frame-sequence bank.
func (p *PostgresSource) LoadMatrices(ctx context.Context) (*Store[feature.Matrix], error) {
	rows, err := p.pool.Query(ctx, selectFrames)
	if err != nil {
		return nil, fmt.Errorf("templates: query frames: %w", err)
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reference[feature.Matrix], error) {
		var (
			ref    reference[feature.Matrix]
			frames [][]float32
		)
		if err := row.Scan(&ref.LessonID, &ref.Syllable, &frames); err != nil {
			return ref, err
		}
		m, err := toMatrix(frames)
		if err != nil {
			return ref, fmt.Errorf("%s/%s: %w", ref.LessonID, ref.Syllable, err)
		}
		ref.Value = m
		return ref, nil
	})
	if err != nil {
		return nil, fmt.Errorf("templates: scan frames: %w", err)
	}

	return NewStore("sequence", assemble(refs)), nil
}

// toMatrix widens a real[][] column and rejects ragged or empty frames.
func toMatrix(frames [][]float32) (feature.Matrix, error) {
	m := make(feature.Matrix, len(frames))
	for i, f := range frames {
		m[i] = widen(f)
	}
	if err := checkMatrix(m); err != nil {
		return nil, err
	}
	return m, nil
}

// assemble groups rows into a bank, keeping row order within each syllable.
func assemble[T any](refs []reference[T]) Bank[T] {
	bank := Bank[T]{}
	for _, r := range refs {
		syllables, ok := bank[r.LessonID]
		if !ok {
			syllables = map[string][]T{}
			bank[r.LessonID] = syllables
		}
		syllables[r.Syllable] = append(syllables[r.Syllable], r.Value)
	}
	return bank
}

func widen(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
