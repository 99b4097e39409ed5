package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/records/internal/logging"
	"github.com/JonMunkholm/records/internal/store"
)

// Ingestion outcomes reported to the Recorder.
const (
	OutcomeSuccess      = "success"
	OutcomeDecodeError  = "decode_error"
	OutcomeEmptyBatch   = "empty_batch"
	OutcomeStorageError = "storage_error"
	OutcomeAborted      = "aborted"
)

// tracker logs phase transitions of one ingestion.
type tracker struct {
	log   *slog.Logger
	phase Phase
}

func (t *tracker) advance(p Phase, args ...any) {
	t.phase = p
	t.log.Debug("ingestion phase", append([]any{"phase", p}, args...)...)
}

func (t *tracker) fail(err error) error {
	t.log.Warn("ingestion failed", "phase", t.phase, "next", PhaseFailed, "error", err)
	t.phase = PhaseFailed
	return err
}

// Ingest runs an upload through decode, normalize, validate and persist.
//
// Rows that fail validation are skipped and reported in the result. When no
// row survives, the result is still returned together with an ErrEmptyBatch
// error so callers can show why. Once persistence starts it is no longer
// cancelled by ctx.
func (s *Service) Ingest(ctx context.Context, up Upload) (*IngestionResult, error) {
	start := time.Now()
	t := &tracker{log: logging.WithFields(ctx, "file", up.Filename, "bytes", len(up.Data))}
	t.advance(PhaseReceived)

	result := &IngestionResult{InsertedIDs: []string{}, Rejected: []RowError{}}
	outcome := OutcomeSuccess
	defer func() {
		s.recorder.ObserveIngestion(ctx, outcome, result.InsertedCount, len(result.Rejected), time.Since(start))
	}()

	if len(up.Data) == 0 {
		outcome = OutcomeDecodeError
		return nil, t.fail(Errorf(ErrDecode, "no file uploaded"))
	}

	rows, err := s.decoder.Decode(up.Filename, up.Data)
	if err != nil {
		outcome = OutcomeDecodeError
		return nil, t.fail(Wrap(ErrDecode, err, "decode upload"))
	}
	result.TotalRows = len(rows)
	t.advance(PhaseDecoded, "rows", len(rows))

	candidates := NormalizeAll(rows)
	t.advance(PhaseNormalized)

	batch := ValidateBatch(candidates)
	if batch.Rejected != nil {
		result.Rejected = batch.Rejected
	}
	t.advance(PhaseValidated, "accepted", len(batch.Accepted), "rejected", len(batch.Rejected))

	if len(batch.Accepted) == 0 {
		outcome = OutcomeEmptyBatch
		return result, t.fail(Errorf(ErrEmptyBatch, "no valid records found in file"))
	}
	if err := ctx.Err(); err != nil {
		outcome = OutcomeAborted
		return nil, t.fail(Wrap(ErrAborted, err, "upload aborted before storing"))
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	ins, err := s.gateway.InsertMany(persistCtx, batch.Accepted)
	if err != nil {
		if errors.Is(err, store.ErrEmptyBatch) {
			outcome = OutcomeEmptyBatch
			return result, t.fail(Wrap(ErrEmptyBatch, err, "no valid records found in file"))
		}
		outcome = OutcomeStorageError
		return nil, t.fail(Wrap(ErrStorage, err, "insert records"))
	}

	result.InsertedCount = ins.InsertedCount
	result.InsertedIDs = ins.InsertedIDs
	t.advance(PhasePersisted, "inserted", ins.InsertedCount)

	return result, nil
}
