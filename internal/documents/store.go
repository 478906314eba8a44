package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sitetrack-erp/sitetrack/internal/register"
)

// GetForUpdate loads a document with its lines and takes an exclusive row
// lock for the duration of the enclosing transaction. The lock serialises
// post/unpost per document; the bounded lock_timeout set by the posting
// repository turns a long wait into register.ErrConcurrency.
func GetForUpdate(ctx context.Context, tx pgx.Tx, kind Kind, id uuid.UUID) (Document, error) {
	var doc Document
	doc.Kind = kind
	err := tx.QueryRow(ctx, `SELECT id, object_id, estimate_id, date, is_posted, posted_at
FROM documents WHERE kind=$1 AND id=$2 FOR UPDATE`, string(kind), id).
		Scan(&doc.ID, &doc.ObjectID, &doc.EstimateID, &doc.Date, &doc.IsPosted, &doc.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, register.ErrDocumentNotFound
		}
		return Document{}, register.StorageError(err)
	}

	rows, err := tx.Query(ctx, `SELECT line_number, work_id, employee_id, quantity, price
FROM document_lines WHERE document_kind=$1 AND document_id=$2 ORDER BY line_number ASC`, string(kind), id)
	if err != nil {
		return Document{}, register.StorageError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.LineNumber, &line.WorkID, &line.EmployeeID, &line.Quantity, &line.Price); err != nil {
			return Document{}, register.StorageError(err)
		}
		doc.Lines = append(doc.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Document{}, register.StorageError(err)
	}
	return doc, nil
}

// SetPosted flips the posted flag and timestamp inside the transaction that
// writes or removes the movements, keeping invariant "movements exist iff
// is_posted" atomic.
func SetPosted(ctx context.Context, tx pgx.Tx, kind Kind, id uuid.UUID, posted bool, postedAt *time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE documents SET is_posted=$3, posted_at=$4 WHERE kind=$1 AND id=$2`,
		string(kind), id, posted, postedAt)
	if err != nil {
		return register.StorageError(err)
	}
	if cmd.RowsAffected() == 0 {
		return register.ErrDocumentNotFound
	}
	return nil
}
