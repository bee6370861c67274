package caregiver

import (
	"fmt"
	"strings"

	"sevasetu/models"
)

// State is an immutable snapshot of the machine for rendering.
type State struct {
	Phase   Phase
	Offers  []models.Job
	Active  *models.Job
	Seconds int
}

// Snapshot captures the machine's state under one lock acquisition so the
// rendered screen is internally consistent.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := State{Phase: m.phase, Seconds: m.seconds}
	if len(m.offers) > 0 {
		s.Offers = make([]models.Job, len(m.offers))
		copy(s.Offers, m.offers)
	}
	if m.active != nil {
		j := *m.active
		s.Active = &j
	}
	return s
}

// Render maps a state snapshot to a text screen. Pure function: no I/O, no
// mutation. Labels are bilingual, English first.
func Render(s State) string {
	var b strings.Builder
	switch s.Phase {
	case PhaseLoggedOut:
		b.WriteString("Logged out / लॉग आउट\n")
		b.WriteString("Log in to receive job offers. / नौकरी के प्रस्ताव पाने के लिए लॉग इन करें।\n")
	case PhaseWaiting:
		b.WriteString("Waiting for jobs / काम का इंतज़ार\n")
		b.WriteString("No jobs assigned yet / अभी तक कोई काम नहीं मिला\n")
	case PhaseJobOffered:
		fmt.Fprintf(&b, "Job Requests / नौकरी के अनुरोध (%d)\n", len(s.Offers))
		for i, job := range s.Offers {
			fmt.Fprintf(&b, "  %d. booking #%d for %s, %s to %s\n",
				i+1, job.ID, job.CivilianName,
				job.StartTime.Format("15:04"), job.EndTime.Format("15:04"))
		}
		b.WriteString("accept <n> | reject <n>\n")
	case PhaseTraveling:
		b.WriteString("Traveling / रास्ते में\n")
		if s.Active != nil {
			fmt.Fprintf(&b, "  booking #%d for %s\n", s.Active.ID, s.Active.CivilianName)
		}
		b.WriteString("Tap 'arrived' when you reach. / पहुंचने पर 'arrived' दबाएं।\n")
	case PhaseInSession:
		b.WriteString("In Session / सत्र चालू\n")
		if s.Active != nil {
			fmt.Fprintf(&b, "  booking #%d for %s\n", s.Active.ID, s.Active.CivilianName)
		}
		fmt.Fprintf(&b, "  elapsed %s\n", FormatElapsed(s.Seconds))
		b.WriteString("Tap 'end' to finish. / समाप्त करने के लिए 'end' दबाएं।\n")
	}
	return b.String()
}

// FormatElapsed renders elapsed seconds as mm:ss (hh:mm:ss past an hour).
func FormatElapsed(seconds int) string {
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
