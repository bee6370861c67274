package civilian

import (
	"fmt"
	"strings"

	"sevasetu/models"
)

// State is an immutable snapshot of the machine for rendering.
type State struct {
	BookingID     int64
	Status        string
	CaregiverName string
	Seconds       int
}

// Snapshot captures the machine's state under one lock acquisition.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		BookingID:     m.bookingID,
		Status:        m.status,
		CaregiverName: m.caregiverName,
		Seconds:       m.seconds,
	}
}

// Render maps a state snapshot to a text screen. Pure function: no I/O, no
// mutation. Labels are bilingual, English first.
func Render(s State) string {
	var b strings.Builder
	if s.BookingID == 0 || s.Status == "" {
		b.WriteString("No active booking / कोई सक्रिय बुकिंग नहीं\n")
		b.WriteString("Find a Caregiver / देखभालकर्ता खोजें\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Booking #%d\n", s.BookingID)
	if s.CaregiverName != "" {
		fmt.Fprintf(&b, "Caregiver / देखभालकर्ता: %s\n", s.CaregiverName)
	}
	switch s.Status {
	case models.StatusConfirmed:
		b.WriteString("Confirmed, caregiver on the way / पुष्टि हो गई, देखभालकर्ता रास्ते में\n")
	case models.StatusInProgress:
		b.WriteString("Care session in progress / देखभाल सत्र चालू\n")
		fmt.Fprintf(&b, "  elapsed %s\n", formatElapsed(s.Seconds))
	case models.StatusPaused:
		b.WriteString("Session paused / सत्र रुका हुआ\n")
	case models.StatusCompleted:
		b.WriteString("Session complete, please rate your caregiver / सत्र पूरा हुआ, कृपया रेटिंग दें\n")
		b.WriteString("rate <1-5> [review]\n")
	case models.StatusRated:
		b.WriteString("Thank you for your rating / आपकी रेटिंग के लिए धन्यवाद\n")
	case models.StatusClosed:
		b.WriteString("Booking closed / बुकिंग बंद\n")
	case models.StatusCancelled:
		b.WriteString("Booking cancelled / बुकिंग रद्द\n")
	default:
		fmt.Fprintf(&b, "Status: %s\n", s.Status)
	}
	return b.String()
}

func formatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
