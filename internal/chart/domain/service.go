package domain

import (
	"context"
	"errors"

	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
)

// Ephemeris is the external chart calculation collaborator. Treated as a
// pure function over birth data; no concurrency obligations are placed on it.
type Ephemeris interface {
	Compute(ctx context.Context, birth BirthData) (Document, error)
}

// Service computes natal charts for stored profiles.
type Service interface {
	ChartForProfile(ctx context.Context, profile profiledomain.Profile) (Document, error)
}

var ErrEphemerisUnavailable = errors.New("ephemeris_unavailable")
