// Package emittest builds modeled states for emitter tests.
package emittest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmodel/internal/dimension"
	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/internal/testutil"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Modeled profiles, relates and models raws, then freezes the state.
func Modeled(t testing.TB, raws []*core.RawTable) *core.ModelState {
	t.Helper()
	tps, err := profile.ProfileTables(context.Background(), raws, profile.Options{})
	require.NoError(t, err)

	s := core.NewModelState()
	for _, raw := range raws {
		require.NoError(t, s.AddRaw(raw))
	}
	for _, tp := range tps {
		require.NoError(t, s.AddTable(tp))
	}
	edges, err := relate.Detect(s.Tables(), relate.Options{})
	require.NoError(t, err)
	require.NoError(t, s.SetEdges(edges))
	require.NoError(t, dimension.Model(s, dimension.Options{}))
	s.Freeze()
	return s
}

// Retail returns the modeled retail fixture.
func Retail(t testing.TB) *core.ModelState {
	t.Helper()
	return Modeled(t, testutil.Retail())
}
