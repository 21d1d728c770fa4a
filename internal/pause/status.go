package pause

import (
	"fmt"

	"github.com/harmonia-vision/harmonia/internal/model"
)

// StatusText renders the one-line status indicator for st under the visibility settings.
// It is empty when the status indicator is turned off.
func StatusText(st model.PauseState, set model.PauseSettings) string {
	if !set.ShowStatusBar {
		return ""
	}
	switch st.Phase {
	case model.PhaseInactive:
		return "Break reminder off"
	case model.PhaseOnBreak:
		if set.TimerVisibility == model.TimerHidden {
			return "Break"
		}
		return "Break " + clockString(st.RemainingSeconds)
	}

	if st.Suspended {
		return "Break reminder (idle)"
	}
	switch set.TimerVisibility {
	case model.TimerAlways:
		return "Next break " + clockString(st.RemainingSeconds)
	case model.TimerAuto:
		if st.RemainingSeconds <= int(model.DefaultAutoRevealWindow.Seconds()) {
			return "Next break " + clockString(st.RemainingSeconds)
		}
	}
	return "Break reminder"
}

func clockString(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
