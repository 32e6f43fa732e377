package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestEstablishmentStale(t *testing.T) {
	threshold := 24 * time.Hour

	fresh := Establishment{CachedAt: time.Now().Add(-23 * time.Hour)}
	require.False(t, fresh.Stale(threshold))

	old := Establishment{CachedAt: time.Now().Add(-25 * time.Hour)}
	require.True(t, old.Stale(threshold))

	var zero Establishment
	require.True(t, zero.Stale(threshold))
}

func TestEstablishmentFullAddress(t *testing.T) {
	e := Establishment{
		AddressLine1: "1 High Street",
		AddressLine3: "Leeds",
		Postcode:     "LS1 1AA",
	}
	require.Equal(t, "1 High Street, Leeds, LS1 1AA", e.FullAddress())
	require.Equal(t, "", Establishment{}.FullAddress())
}

func TestEstablishmentTotalScore(t *testing.T) {
	e := Establishment{
		HygieneScore:    intPtr(5),
		StructuralScore: intPtr(10),
		ConfidenceScore: intPtr(0),
	}
	total := e.TotalScore()
	require.NotNil(t, total)
	require.Equal(t, 15, *total)

	e.ConfidenceScore = nil
	require.Nil(t, e.TotalScore())
}

func TestProductNaturalKey(t *testing.T) {
	p := Product{Barcode: "5000112637922"}
	require.Equal(t, "5000112637922", p.NaturalKey())
}

func TestProductEcoFriendly(t *testing.T) {
	require.True(t, Product{EcoscoreGrade: "a"}.EcoFriendly())
	require.True(t, Product{EcoscoreGrade: "b"}.EcoFriendly())
	require.False(t, Product{EcoscoreGrade: "d"}.EcoFriendly())
	require.False(t, Product{}.EcoFriendly())
}
