package models

import (
	"strings"
	"time"
)

// Establishment is the canonical record for a Food Standards Agency
// establishment, keyed by its FHRSID. Rows are created on first successful
// upstream fetch and refreshed in place on every later fetch.
type Establishment struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"-"`

	FHRSID int64 `gorm:"column:fhrs_id;uniqueIndex;not null" json:"fhrsid"`

	BusinessName   string `gorm:"size:255;not null;index" json:"business_name"`
	BusinessType   string `gorm:"size:100" json:"business_type,omitempty"`
	BusinessTypeID int64  `json:"business_type_id,omitempty"`

	AddressLine1 string `gorm:"size:255" json:"address_line1,omitempty"`
	AddressLine2 string `gorm:"size:255" json:"address_line2,omitempty"`
	AddressLine3 string `gorm:"size:255" json:"address_line3,omitempty"`
	AddressLine4 string `gorm:"size:255" json:"address_line4,omitempty"`
	Postcode     string `gorm:"size:10;index" json:"postcode,omitempty"`

	// RatingValue can be '0'-'5', 'AwaitingInspection' or 'Exempt'.
	RatingValue string     `gorm:"size:20;index" json:"rating_value,omitempty"`
	RatingKey   string     `gorm:"size:50" json:"rating_key,omitempty"`
	RatingDate  *time.Time `json:"rating_date,omitempty"`

	// Component scores; lower is better, 0 is best.
	HygieneScore    *int `json:"hygiene_score,omitempty"`
	StructuralScore *int `json:"structural_score,omitempty"`
	ConfidenceScore *int `json:"confidence_in_management_score,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	LocalAuthorityCode    string `gorm:"size:20" json:"local_authority_code,omitempty"`
	LocalAuthorityName    string `gorm:"size:100;index" json:"local_authority_name,omitempty"`
	LocalAuthorityWebsite string `gorm:"type:text" json:"local_authority_website,omitempty"`
	LocalAuthorityEmail   string `gorm:"size:255" json:"local_authority_email,omitempty"`

	SchemeType       string `gorm:"size:50" json:"scheme_type,omitempty"`
	NewRatingPending bool   `json:"new_rating_pending,omitempty"`
	RightToReply     string `gorm:"type:text" json:"right_to_reply,omitempty"`

	CachedAt  time.Time `gorm:"not null;index" json:"cached_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// NaturalKey returns the registry-assigned identifier.
func (e Establishment) NaturalKey() int64 { return e.FHRSID }

// FetchedAt reports when the record was last produced by an upstream fetch.
func (e Establishment) FetchedAt() time.Time { return e.CachedAt }

// Stale reports whether the record is older than the staleness threshold and
// must be revalidated against the registry before being served.
func (e Establishment) Stale(threshold time.Duration) bool {
	if e.CachedAt.IsZero() {
		return true
	}
	return time.Since(e.CachedAt) > threshold
}

// FullAddress joins the populated address lines and postcode.
func (e Establishment) FullAddress() string {
	parts := make([]string, 0, 5)
	for _, part := range []string{e.AddressLine1, e.AddressLine2, e.AddressLine3, e.AddressLine4, e.Postcode} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// TotalScore sums the three component scores when all are present.
func (e Establishment) TotalScore() *int {
	if e.HygieneScore == nil || e.StructuralScore == nil || e.ConfidenceScore == nil {
		return nil
	}
	total := *e.HygieneScore + *e.StructuralScore + *e.ConfidenceScore
	return &total
}
