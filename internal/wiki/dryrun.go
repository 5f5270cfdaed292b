package wiki

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/model"
)

// DryRun wraps an ItemStore and logs mutations instead of applying them.
// Reads pass through.
type DryRun struct {
	ItemStore
	log zerolog.Logger
}

// NewDryRun wraps items
func NewDryRun(items ItemStore, log zerolog.Logger) *DryRun {
	return &DryRun{ItemStore: items, log: log}
}

// AddClaim logs the claim and returns it with a placeholder id
func (d *DryRun) AddClaim(_ context.Context, item model.ItemID, prop model.PropertyID, target model.ItemID, summary string) (model.Claim, error) {
	d.log.Info().Str("item", string(item)).Str("property", string(prop)).
		Str("target", string(target)).Str("summary", summary).Msg("dry-run: add claim")
	return model.Claim{
		ID:       string(item) + "$dry-run",
		Property: prop,
		Target:   model.ItemTarget(target),
	}, nil
}

// ChangeClaimTarget logs the change and returns the claim as it would be
func (d *DryRun) ChangeClaimTarget(_ context.Context, claim model.Claim, target model.ItemID, summary string) (model.Claim, error) {
	d.log.Info().Str("claim", claim.ID).Str("from", claim.Target.String()).
		Str("target", string(target)).Str("summary", summary).Msg("dry-run: change claim")
	claim.Target = model.ItemTarget(target)
	return claim, nil
}

// RemoveClaims logs the claims that would be removed
func (d *DryRun) RemoveClaims(_ context.Context, claims []model.Claim, summary string) error {
	for _, c := range claims {
		d.log.Info().Str("claim", c.ID).Str("target", c.Target.String()).
			Str("summary", summary).Msg("dry-run: remove claim")
	}
	return nil
}

// AddQualifier logs the qualifier
func (d *DryRun) AddQualifier(_ context.Context, claim model.Claim, prop model.PropertyID, target model.ItemID, summary string) error {
	d.log.Info().Str("claim", claim.ID).Str("property", string(prop)).
		Str("target", string(target)).Str("summary", summary).Msg("dry-run: add qualifier")
	return nil
}
