package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/spreadsheet"
)

// Phase is a step of the ingestion state machine.
type Phase string

const (
	PhaseReceived   Phase = "received"
	PhaseDecoded    Phase = "decoded"
	PhaseNormalized Phase = "normalized"
	PhaseValidated  Phase = "validated"
	PhasePersisted  Phase = "persisted"
	PhaseResponded  Phase = "responded"
	PhaseFailed     Phase = "failed"
)

// Decoder turns an uploaded file into rows.
type Decoder interface {
	Decode(filename string, data []byte) ([]spreadsheet.Row, error)
}

// Recorder receives one observation per finished ingestion.
type Recorder interface {
	ObserveIngestion(ctx context.Context, outcome string, inserted, rejected int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveIngestion(context.Context, string, int, int, time.Duration) {}

// Upload is a received spreadsheet.
type Upload struct {
	Filename string
	Data     []byte
}

// IngestionResult reports what a bulk upload stored and which rows it skipped.
type IngestionResult struct {
	TotalRows     int        `json:"totalRows"`
	InsertedCount int        `json:"insertedCount"`
	InsertedIDs   []string   `json:"insertedIds"`
	Rejected      []RowError `json:"rejected"`
}

// PreviewResult summarises an upload without storing it.
type PreviewResult struct {
	TotalRows        int             `json:"totalRows"`
	AcceptedCount    int             `json:"acceptedCount"`
	RejectedCount    int             `json:"rejectedCount"`
	Samples          []domain.Record `json:"samples"`
	Rejected         []RowError      `json:"rejected"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
}
