package model

// ParseStatus tracks whether a raw entry has been normalized yet.
type ParseStatus string

const (
	ParsePending ParseStatus = "pending"
	ParseParsed  ParseStatus = "parsed"
	ParseFailed  ParseStatus = "failed"
)

// VerificationStatus is the candidate lifecycle state between parsing and
// promotion.
type VerificationStatus string

const (
	StatusUnverified      VerificationStatus = "unverified"
	StatusGeocodeMatch    VerificationStatus = "geocode_match"
	StatusGeocodeMismatch VerificationStatus = "geocode_mismatch"
	StatusGeocodeFailed   VerificationStatus = "geocode_failed"
	StatusSourceVerified  VerificationStatus = "source_verified"
	StatusDuplicate       VerificationStatus = "duplicate"
	StatusHumanApproved   VerificationStatus = "human_approved"
)

// VerifiedStatuses lists the statuses that put a candidate in the verified
// dedup pool and make it eligible for promotion.
func VerifiedStatuses() []VerificationStatus {
	return []VerificationStatus{StatusGeocodeMatch, StatusHumanApproved, StatusSourceVerified}
}

// RejectReason classifies why a raw entry was not promoted.
type RejectReason string

const (
	RejectParseFailure    RejectReason = "parse_failure"
	RejectDuplicateExact  RejectReason = "duplicate_address_exact"
	RejectSuspectedDupe   RejectReason = "suspected_duplicate"
	RejectGeocodeMismatch RejectReason = "geocode_mismatch"
)

// LocationStatus is the lifecycle state of a promoted location. Locations are
// never deleted; "disabled" retires an identifier without breaking downstream
// references.
type LocationStatus string

const (
	LocationActive            LocationStatus = "active"
	LocationClosedPermanently LocationStatus = "closed_permanently"
	LocationSeasonal          LocationStatus = "seasonal"
	LocationMerged            LocationStatus = "merged"
	LocationDisabled          LocationStatus = "disabled"
)

// ValidLocationStatuses is the allowed set for curation's demote operation.
var ValidLocationStatuses = []LocationStatus{
	LocationActive,
	LocationClosedPermanently,
	LocationSeasonal,
	LocationMerged,
	LocationDisabled,
}

// IsValidLocationStatus reports whether s is an allowed location status.
func IsValidLocationStatus(s string) bool {
	for _, v := range ValidLocationStatuses {
		if string(v) == s {
			return true
		}
	}
	return false
}

// RunOutcome summarizes a source run for the source registry row.
type RunOutcome string

const (
	RunSuccess RunOutcome = "success"
	RunPartial RunOutcome = "partial"
	RunFailed  RunOutcome = "failed"
)
