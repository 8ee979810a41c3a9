package service

import (
	"context"
	"encoding/json"

	"github.com/nyulibraries/ultraviolet-cli/internal/config"
	"github.com/nyulibraries/ultraviolet-cli/internal/console"
	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/repository/objectstore"
	"github.com/nyulibraries/ultraviolet-cli/internal/schema"
)

// RecordAPI is the slice of the REST client the record commands need.
type RecordAPI interface {
	ResolveUser(ctx context.Context, email string) (domain.Identity, error)
	CreateDraft(ctx context.Context, metadata json.RawMessage) (domain.RecordDraft, error)
	DeleteRecord(ctx context.Context, pid string) error
}

// RecordService implements the draft-record admin operations.
type RecordService struct {
	api             RecordAPI
	registry        *objectstore.LocationRegistry
	defaultLocation config.LocationConfig
	defaultName     string
}

// NewRecordService creates a new RecordService.
func NewRecordService(api RecordAPI, registry *objectstore.LocationRegistry, defaultName string, defaultLocation config.LocationConfig) *RecordService {
	return &RecordService{
		api:             api,
		registry:        registry,
		defaultLocation: defaultLocation,
		defaultName:     defaultName,
	}
}

// CreateDraft validates the payload, resolves the owner and creates a draft
// record. A non-default location name is created on demand and attached as
// the draft's bucket location; if record creation then fails, the freshly
// created location is rolled back (best effort, warning on failure).
func (s *RecordService) CreateDraft(ctx context.Context, owner string, payload []byte, locationName string) (domain.RecordDraft, error) {
	recordSchema, err := schema.Record()
	if err != nil {
		return domain.RecordDraft{}, err
	}
	if err := schema.Validate(payload, recordSchema); err != nil {
		return domain.RecordDraft{}, err
	}

	if _, err := s.api.ResolveUser(ctx, owner); err != nil {
		if uverrors.IsKind(err, uverrors.KindNotFound) {
			return domain.RecordDraft{}, uverrors.NotFoundf("Could not get user successfully. Is %s a valid user?", owner)
		}
		return domain.RecordDraft{}, err
	}

	if locationName == "" || locationName == s.defaultName {
		draft, err := s.api.CreateDraft(ctx, payload)
		if err != nil {
			return domain.RecordDraft{}, err
		}
		draft.BucketLocation = s.defaultName
		return draft, nil
	}

	_, created, err := s.registry.Ensure(locationName, s.defaultLocation)
	if err != nil {
		return domain.RecordDraft{}, uverrors.Storage(err, "Cannot create or retrieve Location")
	}
	if created {
		console.Successf("Created bucket location: %s", locationName)
	} else {
		console.Successf("Use existing bucket location: %s", locationName)
	}

	draft, err := s.api.CreateDraft(ctx, payload)
	if err != nil {
		if created {
			if removeErr := s.registry.Remove(locationName); removeErr != nil {
				console.Warnf("Warning: Could not remove created location: %v", removeErr)
			} else {
				console.Warnf("Remove created location due to record creation failure.")
			}
		}
		return domain.RecordDraft{}, err
	}
	draft.BucketLocation = locationName
	return draft, nil
}

// Delete removes a record by pid.
func (s *RecordService) Delete(ctx context.Context, pid string) error {
	if err := s.api.DeleteRecord(ctx, pid); err != nil {
		if uverrors.IsKind(err, uverrors.KindNotFound) {
			return uverrors.NotFoundf("Could not delete record: PID %s not found", pid)
		}
		return err
	}
	return nil
}
