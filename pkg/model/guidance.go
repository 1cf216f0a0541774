// pkg/model/guidance.go
package model

// GuidanceSource records which path produced the advisory text.
type GuidanceSource string

const (
	GuidanceAPI         GuidanceSource = "api"
	GuidanceCLI         GuidanceSource = "cli"
	GuidanceUnavailable GuidanceSource = "unavailable"
)

// Guidance is advisory natural-language cleaning advice from an
// inference service. It never gates whether cleaning proceeds; an
// unavailable source is a valid terminal state, not an error.
type Guidance struct {
	Advice string
	Source GuidanceSource
	Model  string
}

// Available reports whether advisory text was actually obtained
func (g Guidance) Available() bool {
	return g.Source != GuidanceUnavailable && g.Advice != ""
}

// Unavailable returns the terminal guidance value used when every
// retrieval path has failed.
func Unavailable() Guidance {
	return Guidance{Source: GuidanceUnavailable}
}
