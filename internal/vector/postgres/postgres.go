package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/hautbar/barkeep/internal/vector"
)

// Store implements vector.Index on Postgres with the pgvector extension.
// Namespaces map to tables: cocktails and user_memories.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(ctx context.Context, databaseURL string, vectorSize int, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx, vectorSize); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context, vectorSize int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS cocktails (
			id uuid PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata jsonb NOT NULL
		)`, vectorSize),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_memories (
			id uuid PRIMARY KEY,
			user_id text NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata jsonb NOT NULL
		)`, vectorSize),
		`CREATE INDEX IF NOT EXISTS user_memories_user_id_idx ON user_memories (user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) SearchCocktails(ctx context.Context, vec []float32, topK int) ([]vector.Match, error) {
	// <=> is cosine distance; score is the complementary similarity.
	rows, err := s.pool.Query(ctx, `
		SELECT metadata, 1 - (embedding <=> $1) AS score
		FROM cocktails
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vec), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("search cocktails: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (s *Store) UpsertCocktails(ctx context.Context, records []vector.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO cocktails (id, embedding, metadata)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
			rec.ID, pgvector.NewVector(rec.Vector), meta,
		)
		if err != nil {
			return fmt.Errorf("upsert cocktail %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) StoreMemory(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	userID, _ := metadata["user_id"].(string)
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_memories (id, user_id, embedding, metadata)
		VALUES ($1, $2, $3, $4)`,
		id, userID, pgvector.NewVector(vec), meta,
	)
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

func (s *Store) UserMemories(ctx context.Context, vec []float32, userID string, topK int) ([]vector.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT metadata, 1 - (embedding <=> $1) AS score
		FROM user_memories
		WHERE user_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(vec), userID, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (s *Store) Close() {
	s.pool.Close()
}

func scanMatches(rows pgx.Rows) ([]vector.Match, error) {
	var matches []vector.Match
	for rows.Next() {
		var meta []byte
		var score float64
		if err := rows.Scan(&meta, &score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		var metadata map[string]any
		if err := json.Unmarshal(meta, &metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		matches = append(matches, vector.Match{Metadata: metadata, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}
