package engine

import "github.com/teslashibe/go-reachy-face/pkg/face"

// OverlayMode is the system overlay state. Overlays outrank every
// conversational source: a low battery face wins over a happy one.
type OverlayMode uint8

const (
	OverlayNone OverlayMode = iota
	OverlayBoot
	OverlayError
	OverlayLowBattery
	OverlayUpdating
	OverlayShutdown
)

var overlayNames = []string{"none", "boot", "error", "low_battery", "updating", "shutdown"}

func (m OverlayMode) String() string {
	if int(m) >= len(overlayNames) {
		return "overlay(?)"
	}
	return overlayNames[m]
}

// brightness returns the display brightness for the mode.
func (m OverlayMode) brightness() uint8 {
	switch m {
	case OverlayLowBattery:
		return 120
	case OverlayShutdown:
		return 60
	default:
		return 255
	}
}

// proposals returns the per-tick system bids for the mode. Overlay moods
// stay out of the guarded negative set so they render identically whether or
// not a conversation is active.
func (m OverlayMode) proposals() []face.Proposal {
	src := face.SourceSystem
	switch m {
	case OverlayBoot:
		return []face.Proposal{
			face.MoodProposal(src, face.MoodNeutral, 0.2),
			face.GazeProposal(src, face.Gaze{}),
			face.FlagsProposal(src, face.FlagSolidEye, face.FlagIdleWander|face.FlagSparkle),
		}
	case OverlayError:
		return []face.Proposal{
			face.MoodProposal(src, face.MoodSurprised, 0.6),
			face.GazeProposal(src, face.Gaze{}),
			face.FlagsProposal(src, face.FlagSolidEye, face.FlagIdleWander),
		}
	case OverlayLowBattery:
		return []face.Proposal{
			face.MoodProposal(src, face.MoodSleepy, 0.5),
			face.FlagsProposal(src, 0, face.FlagIdleWander|face.FlagSparkle),
		}
	case OverlayUpdating:
		return []face.Proposal{
			face.MoodProposal(src, face.MoodThinking, 0.4),
			face.GazeProposal(src, face.Gaze{}),
			face.FlagsProposal(src, face.FlagSparkle, face.FlagIdleWander),
		}
	case OverlayShutdown:
		return []face.Proposal{
			face.MoodProposal(src, face.MoodSleepy, 0.8),
			face.GazeProposal(src, face.Gaze{Y: -0.4}),
			face.FlagsProposal(src, face.FlagSolidEye, face.FlagIdleWander|face.FlagAutoblink),
		}
	}
	return nil
}
