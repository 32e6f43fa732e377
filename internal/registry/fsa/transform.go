package fsa

import (
	"strconv"
	"strings"
	"time"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/models"
)

// ratingDateLayout matches the registry's zoneless timestamp format.
const ratingDateLayout = "2006-01-02T15:04:05"

// Transform converts a raw registry payload into the canonical model. The
// fetch timestamp is stamped here so that staleness is measured from the
// moment the upstream answered.
func Transform(raw Raw) models.Establishment {
	now := time.Now().UTC()
	return models.Establishment{
		FHRSID:                raw.FHRSID,
		BusinessName:          strings.TrimSpace(raw.BusinessName),
		BusinessType:          raw.BusinessType,
		BusinessTypeID:        raw.BusinessTypeID,
		AddressLine1:          strings.TrimSpace(raw.AddressLine1),
		AddressLine2:          strings.TrimSpace(raw.AddressLine2),
		AddressLine3:          strings.TrimSpace(raw.AddressLine3),
		AddressLine4:          strings.TrimSpace(raw.AddressLine4),
		Postcode:              strings.TrimSpace(raw.PostCode),
		RatingValue:           raw.RatingValue,
		RatingKey:             raw.RatingKey,
		RatingDate:            parseRatingDate(raw.RatingDate),
		HygieneScore:          raw.Scores.Hygiene,
		StructuralScore:       raw.Scores.Structural,
		ConfidenceScore:       raw.Scores.ConfidenceInManagement,
		Latitude:              parseCoordinate(raw.Geocode.Latitude),
		Longitude:             parseCoordinate(raw.Geocode.Longitude),
		LocalAuthorityCode:    raw.LocalAuthorityCode,
		LocalAuthorityName:    raw.LocalAuthorityName,
		LocalAuthorityWebsite: raw.LocalAuthorityWebSite,
		LocalAuthorityEmail:   raw.LocalAuthorityEmail,
		SchemeType:            raw.SchemeType,
		NewRatingPending:      raw.NewRatingPending,
		RightToReply:          strings.TrimSpace(raw.RightToReply),
		CachedAt:              now,
		UpdatedAt:             now,
	}
}

// TransformAll converts a slice of raw payloads, skipping entries without a
// registry identifier.
func TransformAll(raws []Raw) []models.Establishment {
	out := make([]models.Establishment, 0, len(raws))
	for _, raw := range raws {
		if raw.FHRSID == 0 {
			continue
		}
		out = append(out, Transform(raw))
	}
	return out
}

func parseCoordinate(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &val
}

func parseRatingDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(ratingDateLayout, raw); err == nil {
		return &ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}
