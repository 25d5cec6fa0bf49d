package metadata

// FaceCullMode selects which triangle faces a pipeline discards.
type FaceCullMode uint8

const (
	FaceCullModeNone FaceCullMode = iota
	FaceCullModeFront
	FaceCullModeBack
	FaceCullModeFrontAndBack
)

func (m FaceCullMode) String() string {
	switch m {
	case FaceCullModeNone:
		return "none"
	case FaceCullModeFront:
		return "front"
	case FaceCullModeBack:
		return "back"
	case FaceCullModeFrontAndBack:
		return "front_and_back"
	default:
		return "invalid"
	}
}
