// Package caregiver holds the caregiver app's booking lifecycle state
// machine: Waiting → JobOffered → Traveling → InSession → Waiting.
package caregiver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sevasetu/gateway"
	"sevasetu/models"
	"sevasetu/poller"
	"sevasetu/session"
	"sevasetu/utils"
)

// Phase is the discrete screen state of the caregiver app.
type Phase int

const (
	// PhaseLoggedOut means no valid session; the app must re-run login.
	PhaseLoggedOut Phase = iota
	// PhaseWaiting polls for pending job offers.
	PhaseWaiting
	// PhaseJobOffered shows one or more offers awaiting accept/reject.
	PhaseJobOffered
	// PhaseTraveling holds an accepted job until the caregiver arrives.
	PhaseTraveling
	// PhaseInSession runs the elapsed-seconds timer for the active job.
	PhaseInSession
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseJobOffered:
		return "job_offered"
	case PhaseTraveling:
		return "traveling"
	case PhaseInSession:
		return "in_session"
	default:
		return "logged_out"
	}
}

// API is the slice of the gateway the machine needs.
type API interface {
	MyJobs(ctx context.Context) ([]models.Job, error)
	PendingBookings(ctx context.Context) ([]models.Job, error)
	SetBookingStatus(ctx context.Context, bookingID int64, status string) error
	StartJob(ctx context.Context, bookingID int64) error
	EndJob(ctx context.Context, bookingID int64) error
}

// Machine owns the caregiver-side phase, offer list, active job and session
// timer. Poll results are applied only if no user action happened since the
// poll started (tracked by an epoch counter), so a stale response can never
// overwrite a newer phase.
type Machine struct {
	api   API
	store session.Store
	log   *zap.Logger

	pollInterval time.Duration
	tickInterval time.Duration
	onChange     func()

	mu        sync.Mutex
	phase     Phase
	offers    []models.Job
	active    *models.Job
	seconds   int
	epoch     uint64
	timerStop chan struct{}

	poller *poller.Poller
	ctx    context.Context
}

// Option configures a Machine.
type Option func(*Machine)

// WithPollInterval overrides the 3s offer poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Machine) { m.pollInterval = d }
}

// WithTickInterval overrides the 1s session timer tick.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickInterval = d }
}

// WithOnChange registers a callback fired after every state change; the view
// layer uses it to re-render.
func WithOnChange(fn func()) Option {
	return func(m *Machine) { m.onChange = fn }
}

// WithLogger overrides the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// New builds a Machine in the LoggedOut phase. Call Start to reconcile and
// begin polling.
func New(api API, store session.Store, opts ...Option) *Machine {
	m := &Machine{
		api:          api,
		store:        store,
		log:          utils.GetLogger(),
		pollInterval: 3 * time.Second,
		tickInterval: time.Second,
		phase:        PhaseLoggedOut,
		poller:       poller.New(),
		ctx:          context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start performs the one-time reconciliation against "my jobs" and enters the
// matching phase: an accepted job resumes Traveling, an in_progress or paused
// one resumes InSession, anything else lands in Waiting. A reconciliation
// failure other than 401 is logged and treated as no prior job.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	jobs, err := m.api.MyJobs(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return err
		}
		m.log.Warn("job reconciliation failed, starting in waiting", zap.Error(err))
	}

	for i := range jobs {
		switch jobs[i].Status {
		case models.StatusAccepted:
			m.mu.Lock()
			job := jobs[i]
			m.active = &job
			m.phase = PhaseTraveling
			m.mu.Unlock()
			m.notifyChange()
			return nil
		case models.StatusInProgress, models.StatusPaused:
			m.mu.Lock()
			job := jobs[i]
			m.active = &job
			m.seconds = 0
			m.phase = PhaseInSession
			m.startTimerLocked()
			m.mu.Unlock()
			m.notifyChange()
			return nil
		}
	}

	m.mu.Lock()
	m.phase = PhaseWaiting
	m.mu.Unlock()
	m.startPolling()
	m.notifyChange()
	return nil
}

// SetOnChange replaces the re-render callback. Useful when the callback needs
// to reference the machine itself.
func (m *Machine) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Stop halts polling and the session timer. The phase is left untouched.
func (m *Machine) Stop() {
	m.poller.Stop()
	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()
}

// Accept takes an offered job. The status update is optimistic: the machine
// moves to Traveling even if the call fails, and the next poll after the
// session ends reconciles any divergence. Outside JobOffered the call is a
// no-op and nothing reaches the server.
func (m *Machine) Accept(ctx context.Context, job models.Job) {
	m.mu.Lock()
	if m.phase != PhaseJobOffered {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := m.api.SetBookingStatus(ctx, job.ID, models.StatusAccepted); err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return
		}
		m.log.Warn("accept call failed, transitioning anyway",
			zap.Int64("booking_id", job.ID), zap.Error(err))
	}

	m.mu.Lock()
	if m.phase != PhaseJobOffered {
		m.mu.Unlock()
		return
	}
	m.epoch++
	j := job
	j.Status = models.StatusAccepted
	m.active = &j
	m.offers = nil
	m.phase = PhaseTraveling
	m.mu.Unlock()

	m.poller.Stop()
	m.notifyChange()
}

// Reject declines one offered job. Removes exactly that job from the offer
// list; when the list empties the machine returns to Waiting. Optimistic like
// Accept, with the same no-op guard outside JobOffered.
func (m *Machine) Reject(ctx context.Context, job models.Job) {
	m.mu.Lock()
	if m.phase != PhaseJobOffered {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := m.api.SetBookingStatus(ctx, job.ID, models.StatusRejected); err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return
		}
		m.log.Warn("reject call failed, removing offer anyway",
			zap.Int64("booking_id", job.ID), zap.Error(err))
	}

	m.mu.Lock()
	if m.phase != PhaseJobOffered {
		m.mu.Unlock()
		return
	}
	m.epoch++
	kept := m.offers[:0]
	for _, o := range m.offers {
		if o.ID != job.ID {
			kept = append(kept, o)
		}
	}
	m.offers = kept
	if len(m.offers) == 0 {
		m.offers = nil
		m.phase = PhaseWaiting
	}
	m.mu.Unlock()
	m.notifyChange()
}

// Arrived marks arrival at the civilian's location: starts the job and the
// session timer from zero.
func (m *Machine) Arrived(ctx context.Context) {
	m.mu.Lock()
	if m.phase != PhaseTraveling || m.active == nil {
		m.mu.Unlock()
		return
	}
	bookingID := m.active.ID
	m.mu.Unlock()

	if err := m.api.StartJob(ctx, bookingID); err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return
		}
		m.log.Warn("start-job call failed, transitioning anyway",
			zap.Int64("booking_id", bookingID), zap.Error(err))
	}

	m.mu.Lock()
	if m.phase != PhaseTraveling {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.seconds = 0
	m.phase = PhaseInSession
	m.startTimerLocked()
	m.mu.Unlock()
	m.notifyChange()
}

// EndSession completes the active job, clears it, and drops back to Waiting,
// immediately re-polling for the next offer.
func (m *Machine) EndSession(ctx context.Context) {
	m.mu.Lock()
	if m.phase != PhaseInSession || m.active == nil {
		m.mu.Unlock()
		return
	}
	bookingID := m.active.ID
	m.mu.Unlock()

	if err := m.api.EndJob(ctx, bookingID); err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return
		}
		m.log.Warn("end-job call failed, transitioning anyway",
			zap.Int64("booking_id", bookingID), zap.Error(err))
	}

	m.mu.Lock()
	if m.phase != PhaseInSession {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.active = nil
	m.seconds = 0
	m.phase = PhaseWaiting
	m.stopTimerLocked()
	m.mu.Unlock()

	m.startPolling()
	m.notifyChange()
}

// ForceLogout clears the stored session and parks the machine in LoggedOut.
// Invoked whenever any call comes back 401.
func (m *Machine) ForceLogout() {
	if err := m.store.Clear(models.RoleCaregiver); err != nil {
		m.log.Warn("failed to clear session", zap.Error(err))
	}

	m.mu.Lock()
	m.epoch++
	m.phase = PhaseLoggedOut
	m.offers = nil
	m.active = nil
	m.seconds = 0
	m.stopTimerLocked()
	m.mu.Unlock()

	m.poller.Stop()
	m.notifyChange()
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Offers returns a copy of the offered job list.
func (m *Machine) Offers() []models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Job, len(m.offers))
	copy(out, m.offers)
	return out
}

// ActiveJob returns a copy of the active job, or nil.
func (m *Machine) ActiveJob() *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	j := *m.active
	return &j
}

// Seconds returns the elapsed session seconds.
func (m *Machine) Seconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seconds
}

// Polling reports whether the offer poller is active.
func (m *Machine) Polling() bool {
	return m.poller.Running()
}

func (m *Machine) startPolling() {
	m.poller.Start(m.poll, m.pollInterval)
}

// poll is one pending-offer fetch. The epoch captured before the request is
// compared again before applying the result: any user action in between
// supersedes it.
func (m *Machine) poll() {
	m.mu.Lock()
	if m.phase != PhaseWaiting && m.phase != PhaseJobOffered {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	ctx := m.ctx
	m.mu.Unlock()

	jobs, err := m.api.PendingBookings(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return
		}
		m.log.Debug("offer poll failed, will retry on next tick", zap.Error(err))
		return
	}

	m.mu.Lock()
	if m.epoch != epoch || (m.phase != PhaseWaiting && m.phase != PhaseJobOffered) {
		m.mu.Unlock()
		return
	}
	changed := false
	if len(jobs) > 0 {
		m.offers = jobs
		if m.phase == PhaseWaiting {
			m.phase = PhaseJobOffered
		}
		changed = true
	} else if m.phase == PhaseJobOffered {
		m.offers = nil
		m.phase = PhaseWaiting
		changed = true
	}
	m.mu.Unlock()

	if changed {
		m.notifyChange()
	}
}

// tick advances the session timer by one second while in session.
func (m *Machine) tick() {
	m.mu.Lock()
	if m.phase != PhaseInSession {
		m.mu.Unlock()
		return
	}
	m.seconds++
	m.mu.Unlock()
	m.notifyChange()
}

func (m *Machine) startTimerLocked() {
	m.stopTimerLocked()
	stop := make(chan struct{})
	m.timerStop = stop
	interval := m.tickInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

func (m *Machine) stopTimerLocked() {
	if m.timerStop != nil {
		close(m.timerStop)
		m.timerStop = nil
	}
}

func (m *Machine) notifyChange() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}
