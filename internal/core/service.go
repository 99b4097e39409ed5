package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/spreadsheet"
	"github.com/JonMunkholm/records/internal/store"
)

// DefaultPersistTimeout bounds the detached persistence step of an ingestion.
const DefaultPersistTimeout = 2 * time.Minute

// Service provides record CRUD and spreadsheet ingestion over a store.Gateway.
type Service struct {
	gateway  store.Gateway
	decoder  Decoder
	recorder Recorder

	persistTimeout time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithDecoder replaces the spreadsheet decoder.
func WithDecoder(d Decoder) Option {
	return func(s *Service) { s.decoder = d }
}

// WithRecorder sets the ingestion metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithPersistTimeout overrides DefaultPersistTimeout.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// NewService creates a new Service instance.
func NewService(gateway store.Gateway, opts ...Option) *Service {
	s := &Service{
		gateway:  gateway,
		decoder:  spreadsheet.Decoder{},
		recorder: nopRecorder{},

		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns records matching filter in insertion order.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]domain.Record, error) {
	records, err := s.gateway.FindAll(ctx, filter)
	if err != nil {
		return nil, storageError(err, "list records")
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// Get returns the record with id.
func (s *Service) Get(ctx context.Context, id string) (domain.Record, error) {
	rec, err := s.gateway.FindByID(ctx, id)
	if err != nil {
		return domain.Record{}, storageError(err, "get record")
	}
	return rec, nil
}

// Create validates in and stores it, returning the new id.
func (s *Service) Create(ctx context.Context, in RecordInput) (string, error) {
	rec, err := in.Validate()
	if err != nil {
		return "", err
	}

	id, err := s.gateway.InsertOne(ctx, rec)
	if err != nil {
		return "", storageError(err, "create record")
	}
	return id, nil
}

// Update validates in and replaces the fields of record id. A missing id is
// not an error: the result reports zero matches.
func (s *Service) Update(ctx context.Context, id string, in RecordInput) (store.UpdateResult, error) {
	rec, err := in.Validate()
	if err != nil {
		return store.UpdateResult{}, err
	}

	res, err := s.gateway.UpdateByID(ctx, id, rec)
	if err != nil {
		return store.UpdateResult{}, storageError(err, "update record")
	}
	return res, nil
}

// Delete removes record id.
func (s *Service) Delete(ctx context.Context, id string) (store.DeleteResult, error) {
	res, err := s.gateway.DeleteByID(ctx, id)
	if err != nil {
		return store.DeleteResult{}, storageError(err, "delete record")
	}
	return res, nil
}

// DeleteMany removes every listed record that exists.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (store.DeleteResult, error) {
	if len(ids) == 0 {
		return store.DeleteResult{}, nil
	}
	res, err := s.gateway.DeleteMany(ctx, ids)
	if err != nil {
		return store.DeleteResult{}, storageError(err, "delete records")
	}
	return res, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.gateway.Ping(ctx); err != nil {
		return storageError(err, "ping store")
	}
	return nil
}

// storageError maps gateway errors onto kinds.
func storageError(err error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Wrap(ErrNotFound, err, "%s", op)
	case errors.Is(err, store.ErrEmptyBatch):
		return Wrap(ErrEmptyBatch, err, "%s", op)
	default:
		return Wrap(ErrStorage, err, "%s", op)
	}
}
