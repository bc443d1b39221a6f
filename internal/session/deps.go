package session

import (
	"context"

	"deal-wizard/internal/models"
	"deal-wizard/internal/steps/documents"
	geometrycapture "deal-wizard/internal/steps/geometry-capture"
	neighborselection "deal-wizard/internal/steps/neighbor-selection"
	"deal-wizard/internal/steps/optimization"
	"deal-wizard/internal/steps/submission"
)

// Lookups serves the reference data used by the property-type and trade-area
// steps.
type Lookups interface {
	PropertyTypes(ctx context.Context) ([]models.PropertyType, error)
	Submarket(ctx context.Context, c models.Coordinates) (*models.Submarket, error)
}

type DocumentUploader interface {
	UploadBatch(ctx context.Context, files []documents.File) ([]models.Document, error)
}

type DealSubmitter interface {
	Submit(ctx context.Context, p *submission.Payload, branch string) (*submission.Result, error)
}

// Dependencies are the collaborators shared by every session. A nil
// collaborator makes its action fail with an internal error.
type Dependencies struct {
	Geocoder  geometrycapture.Geocoder
	Lookups   Lookups
	Uploader  DocumentUploader
	Finder    neighborselection.Finder
	Optimizer optimization.Optimizer
	Submitter DealSubmitter
}
