package docstore

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
	"github.com/meridianhq/meridian/pkg/composables"
)

const (
	documentQueryByUserQuery = `
		SELECT data FROM documents
		WHERE table_name = $1 AND data ->> $2 = $3
		ORDER BY id
		LIMIT $4`

	documentGetQuery = `SELECT data FROM documents WHERE table_name = $1 AND id = $2`

	documentInsertQuery = `
		INSERT INTO documents (table_name, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_name, id) DO UPDATE SET data = EXCLUDED.data`

	documentUpdateQuery = `
		UPDATE documents SET data = data || $3::jsonb
		WHERE table_name = $1 AND id = $2`

	documentDeleteQuery = `DELETE FROM documents WHERE table_name = $1 AND id = $2`
)

// PgDocumentStore keeps heterogeneous user-data tables as JSONB rows in a
// single documents relation, the closest Postgres analogue of the hosted
// document database the product runs against. The index registry stands in
// for the schema-declared per-table user indexes.
type PgDocumentStore struct {
	indexes *document.IndexRegistry
}

func NewPgDocumentStore(indexes *document.IndexRegistry) document.Store {
	return &PgDocumentStore{indexes: indexes}
}

func (s *PgDocumentStore) QueryByUser(ctx context.Context, table, index string, userID uuid.UUID, limit int) ([]document.Document, error) {
	field, err := s.indexes.Resolve(table, index)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, documentQueryByUserQuery, table, field, userID.String(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents by user")
	}
	defer rows.Close()

	var out []document.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc document.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode document")
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgDocumentStore) Get(ctx context.Context, table, docID string) (document.Document, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := tx.QueryRow(ctx, documentGetQuery, table, docID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	var doc document.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode document")
	}
	return doc, nil
}

func (s *PgDocumentStore) Insert(ctx context.Context, table string, doc document.Document) (document.Document, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	stored := doc.Clone()
	if stored.ID() == "" {
		stored[document.IDField] = uuid.NewString()
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode document")
	}
	if _, err := tx.Exec(ctx, documentInsertQuery, table, stored.ID(), raw); err != nil {
		return nil, errors.Wrap(err, "failed to insert document")
	}
	return stored, nil
}

func (s *PgDocumentStore) Update(ctx context.Context, table, docID string, patch map[string]any) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return errors.Wrap(err, "failed to encode patch")
	}
	tag, err := tx.Exec(ctx, documentUpdateQuery, table, docID, raw)
	if err != nil {
		return errors.Wrap(err, "failed to patch document")
	}
	if tag.RowsAffected() == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (s *PgDocumentStore) Delete(ctx context.Context, table, docID string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, documentDeleteQuery, table, docID); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}
