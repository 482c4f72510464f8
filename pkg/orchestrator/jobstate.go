package orchestrator

import (
	"context"

	"github.com/mindburn-labs/integration-core/pkg/graphstore"
	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
	"github.com/mindburn-labs/integration-core/pkg/validate"
)

// stepJobState implements model.JobState for one step, scoping writes to
// the step's bucket in the graph store and running every object through
// the configured validator before forwarding it.
type stepJobState struct {
	stepID    string
	store     *graphstore.Store
	validator validate.Validator
}

func newStepJobState(stepID string, store *graphstore.Store, validator validate.Validator) *stepJobState {
	if validator == nil {
		validator = validate.None{}
	}
	return &stepJobState{stepID: stepID, store: store, validator: validator}
}

func (s *stepJobState) AddEntities(ctx context.Context, items []model.Entity) error {
	for _, e := range items {
		if err := s.validator.ValidateEntity(ctx, e.Type, e.Properties); err != nil {
			return ierr.Canonicalization("entity " + e.Key + " failed validation: " + err.Error())
		}
	}
	return s.store.AddEntities(ctx, s.stepID, items)
}

func (s *stepJobState) AddRelationships(ctx context.Context, items []model.Relationship) error {
	for _, r := range items {
		if err := s.validator.ValidateRelationship(ctx, r.Type, r.Properties); err != nil {
			return ierr.Canonicalization("relationship " + r.Key + " failed validation: " + err.Error())
		}
	}
	return s.store.AddRelationships(ctx, s.stepID, items)
}
