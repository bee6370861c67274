// Package civilian holds the patient app's booking lifecycle state machine:
// a single tracked booking progressing from confirmed through in_progress and
// completed to rated or closed, plus the find-caregiver flow that creates it.
package civilian

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"sevasetu/gateway"
	"sevasetu/models"
	"sevasetu/poller"
	"sevasetu/session"
	"sevasetu/utils"
)

// API is the slice of the gateway the machine needs.
type API interface {
	RequestCare(ctx context.Context, req gateway.CareRequest) (int64, error)
	MatchCaregivers(ctx context.Context, req gateway.CareRequest) ([]models.MatchCandidate, error)
	ConfirmBooking(ctx context.Context, req gateway.ConfirmBookingRequest) (int64, error)
	BookingStatus(ctx context.Context, bookingID int64) (gateway.BookingStatusResult, error)
	SubmitRating(ctx context.Context, req gateway.RatingRequest) error
}

// Machine tracks at most one active booking for the civilian. Status polls
// run every 3 seconds until the booking reaches rated or a terminal status;
// an elapsed-seconds timer runs only while the session is in_progress.
type Machine struct {
	api   API
	store session.Store
	log   *zap.Logger

	pollInterval    time.Duration
	tickInterval    time.Duration
	matchRetryDelay time.Duration
	onChange        func()

	mu            sync.Mutex
	bookingID     int64
	status        string // "" when nothing is tracked
	caregiverID   int64
	caregiverName string
	seconds       int
	epoch         uint64
	timerStop     chan struct{}

	poller *poller.Poller
	ctx    context.Context
}

// Option configures a Machine.
type Option func(*Machine)

// WithPollInterval overrides the 3s status poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Machine) { m.pollInterval = d }
}

// WithTickInterval overrides the 1s session timer tick.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickInterval = d }
}

// WithMatchRetryDelay overrides the delay before the single match retry.
func WithMatchRetryDelay(d time.Duration) Option {
	return func(m *Machine) { m.matchRetryDelay = d }
}

// WithOnChange registers a re-render callback.
func WithOnChange(fn func()) Option {
	return func(m *Machine) { m.onChange = fn }
}

// WithLogger overrides the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// New builds an idle Machine. Call Resume to pick up a booking persisted by a
// previous run, or Track after confirming a new one.
func New(api API, store session.Store, opts ...Option) *Machine {
	m := &Machine{
		api:             api,
		store:           store,
		log:             utils.GetLogger(),
		pollInterval:    3 * time.Second,
		tickInterval:    time.Second,
		matchRetryDelay: 500 * time.Millisecond,
		poller:          poller.New(),
		ctx:             context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resume restores the last active booking id from the session store and
// starts tracking it, if one was persisted. Returns whether tracking began.
func (m *Machine) Resume(ctx context.Context) bool {
	raw := m.store.Value(models.RoleCivilian, session.KeyBookingID)
	if raw == "" {
		return false
	}
	id, err := parseBookingID(raw)
	if err != nil {
		m.log.Warn("discarding unparseable stored booking id", zap.String("value", raw))
		_ = m.store.DeleteValue(models.RoleCivilian, session.KeyBookingID)
		return false
	}
	m.Track(ctx, id)
	return true
}

// Track begins polling the booking. The status starts at confirmed, the
// earliest state a tracked booking can be in, and the first poll corrects it.
func (m *Machine) Track(ctx context.Context, bookingID int64) {
	m.mu.Lock()
	m.ctx = ctx
	m.epoch++
	m.bookingID = bookingID
	m.status = models.StatusConfirmed
	m.caregiverID = 0
	m.caregiverName = m.store.Value(models.RoleCivilian, session.KeyCaregiverName)
	m.seconds = 0
	m.stopTimerLocked()
	m.mu.Unlock()

	if err := m.store.SetValue(models.RoleCivilian, session.KeyBookingID, formatBookingID(bookingID)); err != nil {
		m.log.Warn("failed to persist booking id", zap.Error(err))
	}

	m.poller.Start(m.poll, m.pollInterval)
	m.notifyChange()
}

// SetOnChange replaces the re-render callback. Useful when the callback needs
// to reference the machine itself.
func (m *Machine) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Stop halts polling and the timer without touching tracked state.
func (m *Machine) Stop() {
	m.poller.Stop()
	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()
}

// RequestCare creates a pending booking for the civilian and returns its id.
// The machine does not start tracking until the booking is confirmed.
func (m *Machine) RequestCare(ctx context.Context, req gateway.CareRequest) (int64, error) {
	id, err := m.api.RequestCare(ctx, req)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
		}
		return 0, err
	}
	return id, nil
}

// FindCaregivers runs the matching query. An empty first result is retried
// exactly once after a short delay before the no-match outcome is surfaced;
// an empty return with nil error means no caregiver is available.
func (m *Machine) FindCaregivers(ctx context.Context, req gateway.CareRequest) ([]models.MatchCandidate, error) {
	candidates, err := m.api.MatchCaregivers(ctx, req)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
		}
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.matchRetryDelay):
	}

	candidates, err = m.api.MatchCaregivers(ctx, req)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
		}
		return nil, err
	}
	return candidates, nil
}

// ConfirmBooking locks in the chosen caregiver and starts tracking the
// resulting booking.
func (m *Machine) ConfirmBooking(ctx context.Context, req gateway.ConfirmBookingRequest, caregiverName string) (int64, error) {
	id, err := m.api.ConfirmBooking(ctx, req)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
		}
		return 0, err
	}

	if caregiverName != "" {
		if err := m.store.SetValue(models.RoleCivilian, session.KeyCaregiverName, caregiverName); err != nil {
			m.log.Warn("failed to persist caregiver name", zap.Error(err))
		}
	}
	m.Track(ctx, id)

	m.mu.Lock()
	m.caregiverID = req.CaregiverID
	m.caregiverName = caregiverName
	m.mu.Unlock()
	return id, nil
}

// SubmitRating posts the 1-5 star review. A zero rating is rejected locally
// with no network call. On success the booking moves to rated and the cached
// booking reference is cleared.
func (m *Machine) SubmitRating(ctx context.Context, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return &gateway.APIError{Kind: gateway.KindValidation, Message: "please select a star rating"}
	}

	m.mu.Lock()
	caregiverID := m.caregiverID
	m.mu.Unlock()

	err := m.api.SubmitRating(ctx, gateway.RatingRequest{
		CaregiverID: caregiverID,
		Rating:      rating,
		ReviewText:  review,
	})
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
		}
		return err
	}

	m.mu.Lock()
	m.epoch++
	m.status = models.StatusRated
	m.stopTimerLocked()
	m.seconds = 0
	m.mu.Unlock()

	m.poller.Stop()
	m.clearBookingKeys()
	m.notifyChange()
	return nil
}

// ForceLogout clears the stored session and resets tracking state.
func (m *Machine) ForceLogout() {
	if err := m.store.Clear(models.RoleCivilian); err != nil {
		m.log.Warn("failed to clear session", zap.Error(err))
	}

	m.mu.Lock()
	m.epoch++
	m.bookingID = 0
	m.status = ""
	m.caregiverID = 0
	m.caregiverName = ""
	m.seconds = 0
	m.stopTimerLocked()
	m.mu.Unlock()

	m.poller.Stop()
	m.notifyChange()
}

// Status returns the tracked booking status, or "" when idle.
func (m *Machine) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// BookingID returns the tracked booking id, or 0.
func (m *Machine) BookingID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingID
}

// Caregiver returns the assigned caregiver's id and display name.
func (m *Machine) Caregiver() (int64, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caregiverID, m.caregiverName
}

// Seconds returns the elapsed in-progress seconds.
func (m *Machine) Seconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seconds
}

// Polling reports whether the status poller is active.
func (m *Machine) Polling() bool {
	return m.poller.Running()
}

// poll fetches the tracked booking's status and applies it unless a user
// action superseded the poll while it was in flight.
func (m *Machine) poll() {
	m.mu.Lock()
	if m.bookingID == 0 || m.status == models.StatusRated || models.TerminalStatus(m.status) {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	bookingID := m.bookingID
	ctx := m.ctx
	m.mu.Unlock()

	result, err := m.api.BookingStatus(ctx, bookingID)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			m.ForceLogout()
			return
		}
		m.log.Debug("status poll failed, will retry on next tick", zap.Error(err))
		return
	}

	m.mu.Lock()
	if m.epoch != epoch || m.bookingID != bookingID {
		m.mu.Unlock()
		return
	}

	prev := m.status
	m.status = result.Status
	if result.CaregiverID != 0 {
		m.caregiverID = result.CaregiverID
	}
	if result.CaregiverName != "" {
		m.caregiverName = result.CaregiverName
	}

	entered := prev != models.StatusInProgress && result.Status == models.StatusInProgress
	left := prev == models.StatusInProgress && result.Status != models.StatusInProgress
	if entered {
		m.seconds = 0
		m.startTimerLocked()
	}
	if left {
		m.seconds = 0
		m.stopTimerLocked()
	}
	done := m.status == models.StatusRated || models.TerminalStatus(m.status)
	changed := prev != m.status
	m.mu.Unlock()

	if result.CaregiverName != "" {
		if err := m.store.SetValue(models.RoleCivilian, session.KeyCaregiverName, result.CaregiverName); err != nil {
			m.log.Warn("failed to persist caregiver name", zap.Error(err))
		}
	}
	if done {
		m.poller.Stop()
		m.clearBookingKeys()
	}
	if changed {
		m.notifyChange()
	}
}

// tick advances the in-progress timer by one second.
func (m *Machine) tick() {
	m.mu.Lock()
	if m.status != models.StatusInProgress {
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

func (m *Machine) clearBookingKeys() {
	_ = m.store.DeleteValue(models.RoleCivilian, session.KeyBookingID)
	_ = m.store.DeleteValue(models.RoleCivilian, session.KeyCaregiverName)
}

func (m *Machine) notifyChange() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func parseBookingID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func formatBookingID(id int64) string {
	return strconv.FormatInt(id, 10)
}
