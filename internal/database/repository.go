// Package database defines the comparison history storage interfaces.
package database

import "context"

// ComparisonReader provides read-only access to the comparison history
type ComparisonReader interface {
	// Recent returns the newest records first, at most limit of them
	Recent(ctx context.Context, limit int) ([]ComparisonRecord, error)
	// Count returns the total number of stored records
	Count(ctx context.Context) (int, error)
}

// ComparisonWriter stores comparison outcomes
type ComparisonWriter interface {
	// Save stores every record of one comparison atomically
	Save(ctx context.Context, records []ComparisonRecord) error
}

// ComparisonStore combines read and write access
type ComparisonStore interface {
	ComparisonReader
	ComparisonWriter
}
