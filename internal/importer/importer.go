// Package importer turns pasted catalog text (a JSON array of objects or a
// CSV table) into product upserts.
package importer

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
)

// ProductWriter stores a whole batch or nothing.
type ProductWriter interface {
	UpsertBatch(ctx context.Context, products []domain.Product) error
}

// Importer parses upload text and hands the records to the product store.
type Importer struct {
	writer ProductWriter
	logger *log.Logger
}

func New(writer ProductWriter, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Importer{writer: writer, logger: logger}
}

// Run parses input and upserts every record in one batch. Nothing is
// written when parsing fails.
func (i *Importer) Run(ctx context.Context, input string) ([]domain.UploadedProduct, error) {
	records, err := Parse(input)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.Product())
	}
	if err := i.writer.UpsertBatch(ctx, products); err != nil {
		i.logger.Printf("importer: upsert count=%d error=%v", len(products), err)
		return nil, fmt.Errorf("upsert products: %w", err)
	}
	i.logger.Printf("importer: upserted count=%d format=%s", len(products), DetectFormat(input))
	return records, nil
}

// RunReader is Run over the full contents of r.
func (i *Importer) RunReader(ctx context.Context, r io.Reader) ([]domain.UploadedProduct, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return i.Run(ctx, string(raw))
}
