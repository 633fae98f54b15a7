package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"hr-rag/internal/models"
)

const backendName = "pgvector"

// ChunkRow is one indexed chunk. The table name comes from the collection setting.
type ChunkRow struct {
	bun.BaseModel `bun:"table:hr_documents,alias:c"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	DocTitle      string          `bun:"doc_title,notnull"`
	Source        string          `bun:"source,notnull"`
	Corpus        string          `bun:"corpus,notnull"`
	ChunkIndex    int             `bun:"chunk_index,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float32         `bun:"similarity,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(dsn string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
}

// Store keeps the collection in one Postgres table searched with pgvector's cosine distance
type Store struct {
	db    *bun.DB
	table string
}

// NewStore connects, enables the vector extension and creates the table when missing
func NewStore(ctx context.Context, dsn, table string, debug bool) (*Store, error) {
	s := &Store{db: NewDB(ConnectDB(dsn), debug), table: table}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := InitDB(ctx, s.db, table); err != nil {
		return nil, err
	}
	return s, nil
}

func InitDB(ctx context.Context, db bun.IDB, table string) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enabling pgvector: %w", err)
	}
	_, err := createTable(db, table).Exec(ctx)
	return err
}

func createTable(db bun.IDB, table string) *bun.CreateTableQuery {
	return db.NewCreateTable().Model((*ChunkRow)(nil)).ModelTableExpr("?", bun.Ident(table)).IfNotExists()
}

func dropTable(db bun.IDB, table string) *bun.DropTableQuery {
	return db.NewDropTable().Model((*ChunkRow)(nil)).ModelTableExpr("?", bun.Ident(table)).IfExists()
}

func (s *Store) Name() string       { return backendName }
func (s *Store) Collection() string { return s.table }

func (s *Store) Add(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]ChunkRow, len(records))
	for i, r := range records {
		rows[i] = ChunkRow{
			ID:         r.ID,
			Content:    r.Chunk.Text,
			DocTitle:   r.Chunk.DocTitle,
			Source:     r.Chunk.SourcePath,
			Corpus:     string(r.Chunk.Corpus),
			ChunkIndex: r.Chunk.ChunkIndex,
			Embedding:  pgvector.NewVector(r.Embedding),
		}
	}
	_, err := s.db.NewInsert().Model(&rows).ModelTableExpr("?", bun.Ident(s.table)).Exec(ctx)
	return err
}

// searchQuery orders by cosine distance; the corpus condition is part of the WHERE clause
func (s *Store) searchQuery(dest *[]ChunkRow, embedding []float32, n int, corpus models.Corpus) *bun.SelectQuery {
	q := s.db.NewSelect().
		Model(dest).
		ModelTableExpr("? AS c", bun.Ident(s.table)).
		Column("id", "content", "doc_title", "source", "corpus", "chunk_index", "embedding").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", pgvector.NewVector(embedding))
	if corpus != "" {
		q = q.Where("corpus = ?", string(corpus))
	}
	return q.OrderExpr("embedding <=> ?", pgvector.NewVector(embedding)).Limit(n)
}

func (s *Store) Query(ctx context.Context, embedding []float32, n int, corpus models.Corpus) ([]models.Hit, error) {
	var rows []ChunkRow
	if err := s.searchQuery(&rows, embedding, n, corpus).Scan(ctx); err != nil {
		return nil, err
	}

	hits := make([]models.Hit, len(rows))
	for i, r := range rows {
		hits[i] = models.Hit{
			ID: r.ID,
			Chunk: models.Chunk{
				Text:       r.Content,
				DocTitle:   r.DocTitle,
				SourcePath: r.Source,
				Corpus:     models.ParseCorpus(r.Corpus),
				ChunkIndex: r.ChunkIndex,
			},
			Embedding:  r.Embedding.Slice(),
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*ChunkRow)(nil)).ModelTableExpr("? AS c", bun.Ident(s.table)).Count(ctx)
}

// Reset drops and recreates the table in one transaction, so a failure keeps the old rows
func (s *Store) Reset(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := dropTable(&tx, s.table).Exec(ctx); err != nil {
			return err
		}
		_, err := createTable(&tx, s.table).Exec(ctx)
		return err
	})
}

func (s *Store) Close() error {
	log.Debug().Str("table", s.table).Msg("closing postgres connection")
	return s.db.Close()
}
