package domain

import (
	"context"
	"errors"

	chartdomain "github.com/siderealabs/astroledger/internal/chart/domain"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
)

// Prompt is the input handed to the external text generation API.
type Prompt struct {
	Profile  profiledomain.Profile
	Chart    chartdomain.Document
	Category creditdomain.ReportCategory
	Language string
}

// Generator produces report text from a prompt. Implementations must reject
// responses outside the configured length band with ErrContentOutOfRange.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

type GenerateRequest struct {
	ProfileID string
	Category  creditdomain.ReportCategory
	Language  string
}

// Service gates report generation on credit availability. A credit is
// consumed only after generation succeeds, in the same transaction that
// persists the report.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (Report, error)
	ListByProfile(ctx context.Context, profileID string) ([]Report, error)
	GetByID(ctx context.Context, id string) (Report, error)
}

var (
	ErrGenerationFailed  = errors.New("generation_failed")
	ErrContentOutOfRange = errors.New("content_out_of_range")
	ErrInvalidLanguage   = errors.New("invalid_language")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)
