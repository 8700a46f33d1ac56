// Command ingest loads a cocktail corpus CSV into the vector index.
// Rows are embedded in batches and upserted into the cocktail namespace;
// re-running with the same file updates records in place.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/hautbar/barkeep/internal/config"
	"github.com/hautbar/barkeep/internal/embedding"
	"github.com/hautbar/barkeep/internal/vector"
	"github.com/hautbar/barkeep/internal/vector/postgres"
	"github.com/hautbar/barkeep/internal/vector/qdrant"
)

func main() {
	var (
		file      = flag.String("file", "cocktails.csv", "path to the cocktail corpus CSV")
		batchSize = flag.Int("batch", 64, "rows embedded per request")
		dryRun    = flag.Bool("dry-run", false, "parse and report without embedding or writing")
	)
	flag.Parse()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(context.Background(), cfg, logger, *file, *batchSize, *dryRun); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, file string, batchSize int, dryRun bool) error {
	rows, err := readCorpus(file)
	if err != nil {
		return err
	}
	logger.Info("parsed corpus", "file", file, "rows", len(rows))

	if dryRun {
		logger.Info("dry run, nothing written")
		return nil
	}

	if cfg.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	embedder := embedding.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.EmbeddingModel)

	var index vector.Index
	switch cfg.VectorBackend {
	case "postgres":
		index, err = postgres.New(ctx, cfg.DatabaseURL, cfg.EmbeddingDim, logger)
	default:
		index, err = qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.CocktailsIndex, cfg.MemoriesIndex, uint64(cfg.EmbeddingDim), logger)
	}
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}
	defer index.Close()

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		texts := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = row.embeddingText()
		}

		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at row %d: %w", start, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embed batch at row %d: got %d vectors for %d rows", start, len(vecs), len(batch))
		}

		records := make([]vector.Record, len(batch))
		for i, row := range batch {
			records[i] = vector.Record{
				ID:       row.id(),
				Vector:   vecs[i],
				Metadata: row.metadata(),
			}
		}
		if err := index.UpsertCocktails(ctx, records); err != nil {
			return fmt.Errorf("upsert batch at row %d: %w", start, err)
		}
		logger.Info("ingested batch", "from", start, "to", end)
	}

	logger.Info("ingest complete", "rows", len(rows))
	return nil
}

type cocktailRow struct {
	Name         string
	Alcoholic    string
	Category     string
	Ingredients  []string
	Instructions string
}

// id derives a stable identifier from the cocktail name so re-ingestion
// replaces rather than duplicates.
func (r cocktailRow) id() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(r.Name))).String()
}

func (r cocktailRow) embeddingText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s.", r.Name)
	if r.Category != "" {
		fmt.Fprintf(&b, " Category: %s.", r.Category)
	}
	if r.Alcoholic != "" {
		fmt.Fprintf(&b, " Type: %s.", r.Alcoholic)
	}
	if len(r.Ingredients) > 0 {
		fmt.Fprintf(&b, " Ingredients: %s.", strings.Join(r.Ingredients, ", "))
	}
	if r.Instructions != "" {
		fmt.Fprintf(&b, " Instructions: %s", r.Instructions)
	}
	return b.String()
}

func (r cocktailRow) metadata() map[string]any {
	ingredients := make([]any, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredients[i] = ing
	}
	return map[string]any{
		"name":         r.Name,
		"alcoholic":    r.Alcoholic,
		"category":     r.Category,
		"ingredients":  ingredients,
		"instructions": r.Instructions,
		"text":         r.embeddingText(),
	}
}

func readCorpus(file string) ([]cocktailRow, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, fmt.Errorf("corpus is missing a name column")
	}

	var rows []cocktailRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := cocktailRow{
			Name:         field(record, col, "name"),
			Alcoholic:    field(record, col, "alcoholic"),
			Category:     field(record, col, "category"),
			Ingredients:  parseListField(field(record, col, "ingredients")),
			Instructions: field(record, col, "instructions"),
		}
		if row.Name == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseListField handles both plain comma-separated values and the
// bracketed quoted form some corpus exports use, e.g. ['Rum', 'Mint'].
func parseListField(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}
