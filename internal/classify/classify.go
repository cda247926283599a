// Package classify colors tracked objects for display. A view is an
// ordered rule list; the first matching rule decides the color and an
// object matching no rule is not painted.
package classify

import (
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/sat"
)

// Subject is one object presented for classification together with the
// per-snapshot state some rules key on.
type Subject struct {
	Object     *sat.TrackedObject
	AltitudeKm float64
}

// Rule pairs a predicate with the color painted when it matches.
type Rule struct {
	Name  string
	Match func(Subject) bool
	Color render.Color
}

// View is a named, ordered rule list.
type View struct {
	Name  string
	Rules []Rule
}

// Classify returns the color for a subject. The boolean is false when no
// rule matches, meaning the object stays unpainted in this view.
func (v View) Classify(s Subject) (render.Color, bool) {
	for _, r := range v.Rules {
		if r.Match(s) {
			return r.Color, true
		}
	}
	return render.Color{}, false
}

// View names. The first four cycle on the device button in this order;
// the rest exist host-side only.
const (
	ViewType          = "type"
	ViewLaunchAge     = "launch-age"
	ViewTypeCategory  = "type-category"
	ViewAltitude      = "altitude"
	ViewConstellation = "constellation"
	ViewPresence      = "presence"
)

// TypeView colors objects by mission purpose.
func TypeView() View {
	return View{
		Name: ViewType,
		Rules: []Rule{
			{
				Name:  "communications",
				Match: func(s Subject) bool { return s.Object.HasPurpose(sat.PurposeCommunications) },
				Color: render.Red,
			},
			{
				Name:  "weather-earth",
				Match: func(s Subject) bool { return s.Object.HasPurpose(sat.PurposeWeatherEarth) },
				Color: render.Green,
			},
			{
				Name:  "navigation",
				Match: func(s Subject) bool { return s.Object.HasPurpose(sat.PurposeNavigation) },
				Color: render.Blue,
			},
		},
	}
}

// LaunchAgeView colors objects by launch era. Bands are half-open on the
// lower bound, so a year on a boundary falls into the newer band.
func LaunchAgeView() View {
	yearBand := func(lo, hi int) func(Subject) bool {
		return func(s Subject) bool {
			y := s.Object.LaunchYear
			return y >= lo && y < hi
		}
	}
	return View{
		Name: ViewLaunchAge,
		Rules: []Rule{
			{Name: "launched-2020s", Match: yearBand(2020, 2040), Color: render.Blue},
			{Name: "launched-2000s", Match: yearBand(2000, 2020), Color: render.Green},
			{Name: "launched-earlier", Match: yearBand(1960, 2000), Color: render.Red},
		},
	}
}

// TypeCategoryView colors objects by what they physically are.
func TypeCategoryView() View {
	isType := func(want sat.ObjectType) func(Subject) bool {
		return func(s Subject) bool { return s.Object.Type == want }
	}
	return View{
		Name: ViewTypeCategory,
		Rules: []Rule{
			{Name: "debris", Match: isType(sat.TypeDebris), Color: render.Red},
			{Name: "rocket-body", Match: isType(sat.TypeRocketBody), Color: render.Green},
			{Name: "payload", Match: isType(sat.TypePayload), Color: render.Blue},
		},
	}
}

// AltitudeView colors objects by altitude band in km, half-open on the
// lower bound.
func AltitudeView() View {
	altBand := func(lo, hi float64) func(Subject) bool {
		return func(s Subject) bool {
			return s.AltitudeKm >= lo && s.AltitudeKm < hi
		}
	}
	return View{
		Name: ViewAltitude,
		Rules: []Rule{
			{Name: "low", Match: altBand(0, 1000), Color: render.Red},
			{Name: "medium", Match: altBand(1000, 3000), Color: render.Green},
			{Name: "high", Match: altBand(3000, 100000), Color: render.Blue},
		},
	}
}

// ConstellationView lights members of the named constellation in white.
// With an empty name any constellation member matches.
func ConstellationView(name string) View {
	return View{
		Name: ViewConstellation,
		Rules: []Rule{
			{
				Name: "member",
				Match: func(s Subject) bool {
					if name == "" {
						return s.Object.InConstellation()
					}
					return s.Object.Constellation == name
				},
				Color: render.White,
			},
		},
	}
}

// PresenceView lights every object in white. Fallback sequences are baked
// with it so an unconfigured device still shows sky activity.
func PresenceView() View {
	return View{
		Name: ViewPresence,
		Rules: []Rule{
			{Name: "present", Match: func(Subject) bool { return true }, Color: render.White},
		},
	}
}

// DeviceViews returns the views the device button cycles through, in
// button order.
func DeviceViews() []View {
	return []View{TypeView(), LaunchAgeView(), TypeCategoryView(), AltitudeView()}
}

// ByName returns the named view builder's output, or false for unknown
// names.
func ByName(name string) (View, bool) {
	switch name {
	case ViewType:
		return TypeView(), true
	case ViewLaunchAge:
		return LaunchAgeView(), true
	case ViewTypeCategory:
		return TypeCategoryView(), true
	case ViewAltitude:
		return AltitudeView(), true
	case ViewConstellation:
		return ConstellationView(""), true
	case ViewPresence:
		return PresenceView(), true
	default:
		return View{}, false
	}
}
