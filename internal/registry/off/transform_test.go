package off

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	var resp productResponse
	require.NoError(t, json.Unmarshal([]byte(productFixture), &resp))

	p := Transform(resp.Product)

	require.Equal(t, "5000112637922", p.Barcode)
	require.Equal(t, "Sparkling Orange", p.ProductName)
	require.Equal(t, "b", p.EcoscoreGrade)
	require.NotNil(t, p.EcoscoreScore)
	require.InDelta(t, 71, *p.EcoscoreScore, 1e-9)
	require.JSONEq(t, `{"agribalyse": {"score": 71}}`, string(p.EcoscoreData))
	require.NotNil(t, p.CarbonFootprint100g)
	require.InDelta(t, 42.5, *p.CarbonFootprint100g, 1e-9)
	require.True(t, p.EcoFriendly())
	require.False(t, p.CachedAt.IsZero())
}

func TestNormaliseGrade(t *testing.T) {
	require.Equal(t, "a", normaliseGrade(" A "))
	require.Equal(t, "e", normaliseGrade("e"))
	require.Equal(t, "", normaliseGrade("unknown"))
	require.Equal(t, "", normaliseGrade("not-applicable"))
	require.Equal(t, "", normaliseGrade(""))
}

func TestTransformAllSkipsMissingBarcode(t *testing.T) {
	out := TransformAll([]Raw{
		{Code: "1", ProductName: "A"},
		{ProductName: "no barcode"},
		{Code: "2", ProductName: "B"},
	})
	require.Len(t, out, 2)
}
