// Package sat models the tracked-object catalog: orbital elements joined
// with SATCAT metadata and CelesTrak group membership.
package sat

import "time"

// ObjectType is the SATCAT object classification.
type ObjectType int

const (
	TypeUnknown ObjectType = iota
	TypePayload
	TypeRocketBody
	TypeDebris
)

// String returns the SATCAT code for the object type.
func (t ObjectType) String() string {
	switch t {
	case TypePayload:
		return "PAY"
	case TypeRocketBody:
		return "R/B"
	case TypeDebris:
		return "DEB"
	default:
		return "UNK"
	}
}

// ParseObjectType maps a SATCAT OBJECT_TYPE code to an ObjectType.
func ParseObjectType(code string) ObjectType {
	switch code {
	case "PAY":
		return TypePayload
	case "R/B":
		return TypeRocketBody
	case "DEB":
		return TypeDebris
	default:
		return TypeUnknown
	}
}

// Purpose is the mission category a tracked object serves, derived from
// the CelesTrak group it was fetched under.
type Purpose int

const (
	PurposeNone Purpose = iota
	PurposeCommunications
	PurposeWeatherEarth
	PurposeNavigation
)

// String names the purpose for logs and API responses.
func (p Purpose) String() string {
	switch p {
	case PurposeCommunications:
		return "communications"
	case PurposeWeatherEarth:
		return "weather-earth"
	case PurposeNavigation:
		return "navigation"
	default:
		return "none"
	}
}

// groupPurposes maps CelesTrak GP group names to purposes. Groups absent
// from the table contribute catalog membership but no purpose tag.
var groupPurposes = map[string]Purpose{
	"geo":          PurposeCommunications,
	"intelsat":     PurposeCommunications,
	"ses":          PurposeCommunications,
	"iridium":      PurposeCommunications,
	"iridium-NEXT": PurposeCommunications,
	"starlink":     PurposeCommunications,
	"oneweb":       PurposeCommunications,
	"orbcomm":      PurposeCommunications,
	"globalstar":   PurposeCommunications,
	"amateur":      PurposeCommunications,

	"weather":  PurposeWeatherEarth,
	"noaa":     PurposeWeatherEarth,
	"goes":     PurposeWeatherEarth,
	"resource": PurposeWeatherEarth,
	"sarsat":   PurposeWeatherEarth,
	"dmc":      PurposeWeatherEarth,

	"gnss":    PurposeNavigation,
	"gps-ops": PurposeNavigation,
	"glo-ops": PurposeNavigation,
	"galileo": PurposeNavigation,
	"beidou":  PurposeNavigation,
	"sbas":    PurposeNavigation,
}

// constellationGroups maps CelesTrak group names to the constellation they
// represent. Membership drives the host-side constellation view.
var constellationGroups = map[string]string{
	"starlink":     "starlink",
	"oneweb":       "oneweb",
	"iridium-NEXT": "iridium",
	"globalstar":   "globalstar",
	"orbcomm":      "orbcomm",
}

// PurposeForGroup returns the purpose tag a CelesTrak group carries,
// or PurposeNone if the group has no mapping.
func PurposeForGroup(group string) Purpose {
	return groupPurposes[group]
}

// ConstellationForGroup returns the constellation name a CelesTrak group
// represents, or "" if the group is not a constellation group.
func ConstellationForGroup(group string) string {
	return constellationGroups[group]
}

// TrackedObject is one catalog entry: orbital elements plus the metadata
// the classification views key on.
type TrackedObject struct {
	NoradID uint64 `json:"norad_id"`
	Name    string `json:"name"`

	// Two-line element set used for propagation.
	Line1 string    `json:"line1"`
	Line2 string    `json:"line2"`
	Epoch time.Time `json:"epoch"`

	// SATCAT metadata. LaunchYear is 0 when unknown.
	Type       ObjectType `json:"type"`
	LaunchYear int        `json:"launch_year"`

	// Group-derived tags.
	Purposes      []Purpose `json:"purposes,omitempty"`
	Constellation string    `json:"constellation,omitempty"`
	Groups        []string  `json:"groups,omitempty"`
}

// HasPurpose reports whether the object carries the given purpose tag.
func (o *TrackedObject) HasPurpose(p Purpose) bool {
	for _, have := range o.Purposes {
		if have == p {
			return true
		}
	}
	return false
}

// InConstellation reports whether the object belongs to a named
// constellation.
func (o *TrackedObject) InConstellation() bool {
	return o.Constellation != ""
}

// addPurpose appends a purpose tag if not already present.
func (o *TrackedObject) addPurpose(p Purpose) {
	if p == PurposeNone || o.HasPurpose(p) {
		return
	}
	o.Purposes = append(o.Purposes, p)
}

// addGroup records a group membership if not already present.
func (o *TrackedObject) addGroup(group string) {
	for _, g := range o.Groups {
		if g == group {
			return
		}
	}
	o.Groups = append(o.Groups, group)
}
