package runtimectx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeaturesRequire(t *testing.T) {
	f := FeatureBulkMemory | FeatureTailCall
	require.NoError(t, f.Require(FeatureBulkMemory))
	require.Error(t, f.Require(FeatureReferenceTypes))
}

func TestContextFirstErrorWins(t *testing.T) {
	c := NewContext(AllFeatures, DefaultConfig())
	require.False(t, c.Failed())

	first := errors.New("first")
	second := errors.New("second")
	c.Fail(first)
	c.Fail(second)

	require.True(t, c.Failed())
	require.Same(t, first, c.FirstError())
}

func TestContextFailNilIsNoop(t *testing.T) {
	c := NewContext(AllFeatures, DefaultConfig())
	c.Fail(nil)
	require.False(t, c.Failed())
}
