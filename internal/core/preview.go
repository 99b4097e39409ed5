package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/logging"
)

const (
	// MaxPreviewSamples caps accepted records returned by Preview.
	MaxPreviewSamples = 10
	// MaxPreviewErrors caps rejected rows returned by Preview.
	MaxPreviewErrors = 50
)

// Preview decodes, normalizes and validates an upload without storing it.
// Counts cover the whole file; samples and rejected rows are capped.
func (s *Service) Preview(ctx context.Context, up Upload) (*PreviewResult, error) {
	start := time.Now()

	if len(up.Data) == 0 {
		return nil, Errorf(ErrDecode, "no file uploaded")
	}

	rows, err := s.decoder.Decode(up.Filename, up.Data)
	if err != nil {
		return nil, Wrap(ErrDecode, err, "decode upload")
	}

	batch := ValidateBatch(NormalizeAll(rows))

	res := &PreviewResult{
		TotalRows:     len(rows),
		AcceptedCount: len(batch.Accepted),
		RejectedCount: len(batch.Rejected),
		Samples:       batch.Accepted[:min(len(batch.Accepted), MaxPreviewSamples)],
		Rejected:      batch.Rejected[:min(len(batch.Rejected), MaxPreviewErrors)],
	}
	if res.Samples == nil {
		res.Samples = []domain.Record{}
	}
	if res.Rejected == nil {
		res.Rejected = []RowError{}
	}
	res.ProcessingTimeMs = time.Since(start).Milliseconds()

	logging.FromContext(ctx).Debug("upload previewed",
		"file", up.Filename,
		"rows", res.TotalRows,
		"accepted", res.AcceptedCount,
		"rejected", res.RejectedCount,
	)
	return res, nil
}
