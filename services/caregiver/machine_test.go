package caregiver

import (
	"context"
	"testing"
	"time"

	"sevasetu/gateway"
	"sevasetu/models"
	"sevasetu/session"
)

// fakeAPI implements API with overridable function fields.
type fakeAPI struct {
	myJobs           func(ctx context.Context) ([]models.Job, error)
	pendingBookings  func(ctx context.Context) ([]models.Job, error)
	setBookingStatus func(ctx context.Context, id int64, status string) error
	startJob         func(ctx context.Context, id int64) error
	endJob           func(ctx context.Context, id int64) error
}

func (f *fakeAPI) MyJobs(ctx context.Context) ([]models.Job, error) {
	if f.myJobs != nil {
		return f.myJobs(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) PendingBookings(ctx context.Context) ([]models.Job, error) {
	if f.pendingBookings != nil {
		return f.pendingBookings(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) SetBookingStatus(ctx context.Context, id int64, status string) error {
	if f.setBookingStatus != nil {
		return f.setBookingStatus(ctx, id, status)
	}
	return nil
}

func (f *fakeAPI) StartJob(ctx context.Context, id int64) error {
	if f.startJob != nil {
		return f.startJob(ctx, id)
	}
	return nil
}

func (f *fakeAPI) EndJob(ctx context.Context, id int64) error {
	if f.endJob != nil {
		return f.endJob(ctx, id)
	}
	return nil
}

func job(id int64) models.Job {
	return models.Job{
		ID:           id,
		CivilianID:   1,
		CivilianName: "Asha",
		StartTime:    time.Now().Add(time.Hour),
		EndTime:      time.Now().Add(3 * time.Hour),
		Status:       models.StatusConfirmed,
	}
}

// newTestMachine uses an hour-long poll interval so only explicit poll() and
// tick() calls drive the machine.
func newTestMachine(api API) (*Machine, session.Store) {
	store := session.NewMemoryStore()
	_ = store.Set(models.RoleCaregiver, models.Session{AccessToken: "tok", Role: models.RoleCaregiver})
	m := New(api, store, WithPollInterval(time.Hour), WithTickInterval(time.Hour))
	return m, store
}

func unauthorized() error {
	return &gateway.APIError{Kind: gateway.KindUnauthorized, Status: 401, Message: "expired"}
}

func TestStartWithNoJobsEntersWaitingAndPolls(t *testing.T) {
	m, _ := newTestMachine(&fakeAPI{})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if m.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", m.Phase())
	}
	if !m.Polling() {
		t.Fatal("poller not running in waiting")
	}
}

func TestStartResumesAcceptedJobAsTraveling(t *testing.T) {
	accepted := job(5)
	accepted.Status = models.StatusAccepted
	m, _ := newTestMachine(&fakeAPI{
		myJobs: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{accepted}, nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if m.Phase() != PhaseTraveling {
		t.Fatalf("phase = %s, want traveling", m.Phase())
	}
	active := m.ActiveJob()
	if active == nil || active.ID != 5 {
		t.Fatalf("active job = %+v, want id 5", active)
	}
	if m.Polling() {
		t.Fatal("poller must not run while traveling")
	}
}

func TestStartResumesInProgressJobAsInSession(t *testing.T) {
	running := job(6)
	running.Status = models.StatusInProgress
	m, _ := newTestMachine(&fakeAPI{
		myJobs: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{running}, nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if m.Phase() != PhaseInSession {
		t.Fatalf("phase = %s, want in_session", m.Phase())
	}
	if m.Seconds() != 0 {
		t.Fatalf("seconds = %d, want 0 on resume", m.Seconds())
	}
}

func TestStartUnauthorizedForcesLogout(t *testing.T) {
	m, store := newTestMachine(&fakeAPI{
		myJobs: func(ctx context.Context) ([]models.Job, error) {
			return nil, unauthorized()
		},
	})
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected the 401 to surface")
	}

	if m.Phase() != PhaseLoggedOut {
		t.Fatalf("phase = %s, want logged_out", m.Phase())
	}
	if _, ok := store.Get(models.RoleCaregiver); ok {
		t.Fatal("session not cleared on 401")
	}
}

func TestPollTransitionsBetweenWaitingAndJobOffered(t *testing.T) {
	var offers []models.Job
	api := &fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return offers, nil
		},
	}
	// Drive polls by hand; the real poller stays off so the fake can be
	// swapped between calls without racing it.
	m, _ := newTestMachine(api)
	m.mu.Lock()
	m.phase = PhaseWaiting
	m.mu.Unlock()

	offers = []models.Job{job(1), job(2)}
	m.poll()
	if m.Phase() != PhaseJobOffered {
		t.Fatalf("phase = %s, want job_offered", m.Phase())
	}
	if got := m.Offers(); len(got) != 2 {
		t.Fatalf("offers = %d, want 2", len(got))
	}

	// Offers withdrawn server-side.
	offers = nil
	m.poll()
	if m.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting after offers vanished", m.Phase())
	}
	if len(m.Offers()) != 0 {
		t.Fatal("offer list not cleared")
	}
}

func TestAcceptMovesToTravelingAndStopsPolling(t *testing.T) {
	var sentStatus string
	offer := job(3)
	m, _ := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{offer}, nil
		},
		setBookingStatus: func(ctx context.Context, id int64, status string) error {
			sentStatus = status
			return nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	m.poll()

	m.Accept(context.Background(), offer)

	if sentStatus != models.StatusAccepted {
		t.Fatalf("sent status %q, want accepted", sentStatus)
	}
	if m.Phase() != PhaseTraveling {
		t.Fatalf("phase = %s, want traveling", m.Phase())
	}
	if m.Polling() {
		t.Fatal("poller still running after accept")
	}
	if len(m.Offers()) != 0 {
		t.Fatal("offers not cleared after accept")
	}
}

func TestAcceptProceedsWhenCallFails(t *testing.T) {
	offer := job(4)
	m, _ := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{offer}, nil
		},
		setBookingStatus: func(ctx context.Context, id int64, status string) error {
			return &gateway.APIError{Kind: gateway.KindServer, Status: 500, Message: "boom"}
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	m.poll()

	m.Accept(context.Background(), offer)
	if m.Phase() != PhaseTraveling {
		t.Fatalf("phase = %s, want traveling despite failed call", m.Phase())
	}
}

func TestRejectRemovesOnlyThatOffer(t *testing.T) {
	offers := []models.Job{job(1), job(2)}
	m, _ := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return offers, nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	m.poll()

	m.Reject(context.Background(), offers[0])
	if m.Phase() != PhaseJobOffered {
		t.Fatalf("phase = %s, want job_offered with one offer left", m.Phase())
	}
	left := m.Offers()
	if len(left) != 1 || left[0].ID != 2 {
		t.Fatalf("offers after reject = %+v, want only id 2", left)
	}

	m.Reject(context.Background(), left[0])
	if m.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting after last reject", m.Phase())
	}
}

// Accept and Reject from a phase without offers must not reach the server:
// a stale key press after the offer list changed is dropped locally.
func TestAcceptRejectOutsideJobOfferedMakeNoCalls(t *testing.T) {
	var calls int
	m, _ := newTestMachine(&fakeAPI{
		setBookingStatus: func(ctx context.Context, id int64, status string) error {
			calls++
			return nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	if m.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", m.Phase())
	}

	stale := job(13)
	m.Accept(context.Background(), stale)
	m.Reject(context.Background(), stale)

	if calls != 0 {
		t.Fatalf("%d status calls reached the server from waiting", calls)
	}
	if m.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting untouched", m.Phase())
	}
}

func TestArrivedStartsSessionTimerFromZero(t *testing.T) {
	offer := job(8)
	m, _ := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{offer}, nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	m.poll()
	m.Accept(context.Background(), offer)

	m.Arrived(context.Background())
	if m.Phase() != PhaseInSession {
		t.Fatalf("phase = %s, want in_session", m.Phase())
	}
	if m.Seconds() != 0 {
		t.Fatalf("seconds = %d, want 0", m.Seconds())
	}

	m.tick()
	m.tick()
	m.tick()
	if m.Seconds() != 3 {
		t.Fatalf("seconds = %d, want 3", m.Seconds())
	}
}

func TestEndSessionReturnsToWaitingAndRepolls(t *testing.T) {
	offer := job(9)
	var ended int64
	m, _ := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{offer}, nil
		},
		endJob: func(ctx context.Context, id int64) error {
			ended = id
			return nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	m.poll()
	m.Accept(context.Background(), offer)
	m.Arrived(context.Background())
	m.tick()

	m.EndSession(context.Background())

	if ended != 9 {
		t.Fatalf("end-job called with %d, want 9", ended)
	}
	if m.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", m.Phase())
	}
	if m.ActiveJob() != nil {
		t.Fatal("active job not cleared")
	}
	if m.Seconds() != 0 {
		t.Fatalf("seconds = %d, want 0 after end", m.Seconds())
	}
	if !m.Polling() {
		t.Fatal("polling not resumed after end")
	}
}

func TestTickOnlyCountsInSession(t *testing.T) {
	m, _ := newTestMachine(&fakeAPI{})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	m.tick()
	if m.Seconds() != 0 {
		t.Fatal("timer advanced outside a session")
	}
}

func TestUnauthorizedPollForcesLogout(t *testing.T) {
	m, store := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return nil, unauthorized()
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	m.poll()
	if m.Phase() != PhaseLoggedOut {
		t.Fatalf("phase = %s, want logged_out", m.Phase())
	}
	if _, ok := store.Get(models.RoleCaregiver); ok {
		t.Fatal("session survived 401 poll")
	}
	if m.Polling() {
		t.Fatal("poller still running after forced logout")
	}
}

// A poll that was in flight when the user accepted must not overwrite the
// newer phase when its stale result lands.
func TestStalePollResultIsDiscarded(t *testing.T) {
	offer := job(11)
	api := &fakeAPI{}
	// Poller stays off; polls are driven by hand so swapping the fake
	// between calls cannot race the background goroutine.
	m, _ := newTestMachine(api)
	m.mu.Lock()
	m.phase = PhaseJobOffered
	m.offers = []models.Job{offer}
	m.mu.Unlock()

	// The poll's response is empty, but the user accepts while the request
	// is in flight. Its result must be discarded.
	api.pendingBookings = func(ctx context.Context) ([]models.Job, error) {
		m.Accept(context.Background(), offer)
		return nil, nil
	}
	m.poll()

	if m.Phase() != PhaseTraveling {
		t.Fatalf("phase = %s, want traveling; stale poll won", m.Phase())
	}
	active := m.ActiveJob()
	if active == nil || active.ID != 11 {
		t.Fatalf("active job = %+v, want id 11", active)
	}
}

// Full lifecycle walk: waiting, offer, accept, arrive, three seconds of
// session, end, back to waiting.
func TestFullLifecycle(t *testing.T) {
	offer := job(21)
	var statuses []string
	m, _ := newTestMachine(&fakeAPI{
		pendingBookings: func(ctx context.Context) ([]models.Job, error) {
			return []models.Job{offer}, nil
		},
		setBookingStatus: func(ctx context.Context, id int64, status string) error {
			statuses = append(statuses, status)
			return nil
		},
		startJob: func(ctx context.Context, id int64) error {
			statuses = append(statuses, models.StatusInProgress)
			return nil
		},
		endJob: func(ctx context.Context, id int64) error {
			statuses = append(statuses, models.StatusCompleted)
			return nil
		},
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	m.poll()
	m.Accept(context.Background(), offer)
	m.Arrived(context.Background())
	m.tick()
	m.tick()
	m.tick()
	if m.Seconds() != 3 {
		t.Fatalf("seconds = %d, want 3", m.Seconds())
	}
	m.EndSession(context.Background())

	want := []string{models.StatusAccepted, models.StatusInProgress, models.StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("api calls = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("api calls = %v, want %v", statuses, want)
		}
	}
	if m.Phase() != PhaseWaiting {
		t.Fatalf("final phase = %s, want waiting", m.Phase())
	}
}
