package postgres

import (
	"context"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// InsertCounts reports how many rows of each kind an InsertStrategy wrote.
type InsertCounts struct {
	Users         int
	Conversations int
	Messages      int
	Attachments   int
	BatchRetries  int
}

// InsertStrategy persists the body of a transformed export (everything but
// the single Archive row, which the Loader inserts directly) within an
// already-open transaction.
type InsertStrategy interface {
	Insert(ctx context.Context, txm *TransactionManager, exportID int64, data *skypeetl.TransformedExport) (InsertCounts, error)
}
