package wiki_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/wiki"
	"github.com/ppiankov/wikipub/internal/wiki/wikitest"
)

func TestCandidate_FollowsOneRedirect(t *testing.T) {
	store := wikitest.New().
		AddPage("Lumír", "").
		AddRedirect("Lumir", "Lumír").
		AddRedirect("Lumirr", "Lumir")
	ctx := context.Background()

	c, err := wiki.Candidate(ctx, store, model.ParsePath("Lumir"))
	require.NoError(t, err)
	assert.True(t, c.Exists)
	assert.True(t, c.Redirect)
	assert.Equal(t, "Lumír", c.Resolved.String())

	// Only one hop: the double redirect stops at the intermediate page
	c, err = wiki.Candidate(ctx, store, model.ParsePath("Lumirr"))
	require.NoError(t, err)
	assert.Equal(t, "Lumir", c.Resolved.String())

	c, err = wiki.Candidate(ctx, store, model.ParsePath("Nothing"))
	require.NoError(t, err)
	assert.False(t, c.Exists)
	assert.Equal(t, "Nothing", c.Resolved.String())
}

func TestCandidate_LookupError(t *testing.T) {
	store := wikitest.New()
	store.LookupErrors["Broken"] = errors.New("boom")

	_, err := wiki.Candidate(context.Background(), store, model.ParsePath("Broken"))
	assert.Error(t, err)
}

func TestLookupItem(t *testing.T) {
	store := wikitest.New().AddItem("Lumír", "Q50", "Lumír")
	ctx := context.Background()

	ref, err := wiki.LookupItem(ctx, store, model.ParsePath("Lumír"))
	require.NoError(t, err)
	assert.True(t, ref.Found())
	assert.Equal(t, model.ItemID("Q50"), ref.ID())

	ref, err = wiki.LookupItem(ctx, store, model.ParsePath("Nic"))
	require.NoError(t, err)
	assert.False(t, ref.Found())
}

func TestDryRun_NeverWrites(t *testing.T) {
	store := wikitest.New().AddItem("Lumír/1925", "Q100", "x")
	existing := store.SeedClaim("Q100", "P1433", "Q1", nil)
	dry := wiki.NewDryRun(store, zerolog.Nop())
	ctx := context.Background()

	added, err := dry.AddClaim(ctx, "Q100", "P1433", "Q50", "s")
	require.NoError(t, err)
	assert.Equal(t, model.ItemTarget("Q50"), added.Target)

	changed, err := dry.ChangeClaimTarget(ctx, existing, "Q50", "s")
	require.NoError(t, err)
	assert.Equal(t, model.ItemTarget("Q50"), changed.Target)

	require.NoError(t, dry.RemoveClaims(ctx, []model.Claim{existing}, "s"))
	require.NoError(t, dry.AddQualifier(ctx, existing, "P155", "Q20", "s"))

	assert.Empty(t, store.Edits)
	claims, err := dry.Claims(ctx, "Q100", "P1433")
	require.NoError(t, err)
	assert.Equal(t, []model.Claim{existing}, claims)
}
