package fsa

// Raw mirrors the wire shape of an establishment returned by the Food
// Hygiene Rating Scheme API. Geocode values arrive as strings and component
// scores may be null for exempt or awaiting-inspection businesses.
type Raw struct {
	FHRSID                   int64   `json:"FHRSID"`
	LocalAuthorityBusinessID string  `json:"LocalAuthorityBusinessID"`
	BusinessName             string  `json:"BusinessName"`
	BusinessType             string  `json:"BusinessType"`
	BusinessTypeID           int64   `json:"BusinessTypeID"`
	AddressLine1             string  `json:"AddressLine1"`
	AddressLine2             string  `json:"AddressLine2"`
	AddressLine3             string  `json:"AddressLine3"`
	AddressLine4             string  `json:"AddressLine4"`
	PostCode                 string  `json:"PostCode"`
	RatingValue              string  `json:"RatingValue"`
	RatingKey                string  `json:"RatingKey"`
	RatingDate               string  `json:"RatingDate"`
	LocalAuthorityCode       string  `json:"LocalAuthorityCode"`
	LocalAuthorityName       string  `json:"LocalAuthorityName"`
	LocalAuthorityWebSite    string  `json:"LocalAuthorityWebSite"`
	LocalAuthorityEmail      string  `json:"LocalAuthorityEmailAddress"`
	SchemeType               string  `json:"SchemeType"`
	NewRatingPending         bool    `json:"NewRatingPending"`
	RightToReply             string  `json:"RightToReply"`
	Scores                   Scores  `json:"scores"`
	Geocode                  Geocode `json:"geocode"`
}

// Scores holds the three inspection component scores. Lower is better.
type Scores struct {
	Hygiene                *int `json:"Hygiene"`
	Structural             *int `json:"Structural"`
	ConfidenceInManagement *int `json:"ConfidenceInManagement"`
}

// Geocode carries WGS84 coordinates encoded as decimal strings.
type Geocode struct {
	Longitude string `json:"longitude"`
	Latitude  string `json:"latitude"`
}

type searchResponse struct {
	Establishments []Raw      `json:"establishments"`
	Meta           searchMeta `json:"meta"`
}

type searchMeta struct {
	TotalCount int `json:"totalCount"`
	PageSize   int `json:"pageSize"`
	PageNumber int `json:"pageNumber"`
}

// Authority describes a local authority in the scheme.
type Authority struct {
	LocalAuthorityID     int64  `json:"LocalAuthorityId"`
	LocalAuthorityIDCode string `json:"LocalAuthorityIdCode"`
	Name                 string `json:"Name"`
	RegionName           string `json:"RegionName"`
	EstablishmentCount   int    `json:"EstablishmentCount"`
}

type authoritiesResponse struct {
	Authorities []Authority `json:"authorities"`
}

// BusinessType is a registry-defined establishment category.
type BusinessType struct {
	BusinessTypeID   int64  `json:"BusinessTypeId"`
	BusinessTypeName string `json:"BusinessTypeName"`
}

type businessTypesResponse struct {
	BusinessTypes []BusinessType `json:"businessTypes"`
}
