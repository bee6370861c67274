package routes_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sevasetu/config"
	"sevasetu/database/repository"
	"sevasetu/gateway"
	"sevasetu/handlers"
	"sevasetu/models"
	"sevasetu/routes"
	"sevasetu/services/caregiver"
	"sevasetu/services/civilian"
	"sevasetu/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig.JWTSecret = "e2e-test-secret"

	r := gin.New()
	routes.SetupRoutes(r, handlers.NewBundle(repository.NewMemorySet()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, role string) *gateway.Client {
	t.Helper()
	return gateway.New(gateway.Config{
		AuthURL:      srv.URL,
		CaregiverURL: srv.URL,
		CivilianURL:  srv.URL,
		Role:         role,
		Store:        session.NewMemoryStore(),
	})
}

// login walks the OTP flow using the dev-mode echo and stores the session.
func login(t *testing.T, c *gateway.Client, store session.Store, role, phone string) models.Session {
	t.Helper()
	ctx := context.Background()

	otpResp, err := c.RequestOTP(ctx, phone)
	if err != nil {
		t.Fatalf("request OTP: %v", err)
	}
	if len(otpResp.OTP) != 6 {
		t.Fatalf("dev OTP echo = %q", otpResp.OTP)
	}

	sess, err := c.VerifyOTP(ctx, phone, otpResp.OTP)
	if err != nil {
		t.Fatalf("verify OTP: %v", err)
	}
	if sess.Role != role || sess.AccessToken == "" {
		t.Fatalf("bad session: %+v", sess)
	}
	if err := store.Set(role, sess); err != nil {
		t.Fatal(err)
	}
	return sess
}

func loggedInClient(t *testing.T, srv *httptest.Server, role, phone string) *gateway.Client {
	t.Helper()
	store := session.NewMemoryStore()
	c := gateway.New(gateway.Config{
		AuthURL:      srv.URL,
		CaregiverURL: srv.URL,
		CivilianURL:  srv.URL,
		Role:         role,
		Store:        store,
	})
	login(t, c, store, role, phone)
	return c
}

func TestWrongOTPRejected(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv, models.RoleCivilian)
	ctx := context.Background()

	if _, err := c.RequestOTP(ctx, "9876543210"); err != nil {
		t.Fatal(err)
	}
	_, err := c.VerifyOTP(ctx, "9876543210", "000000")
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("got %v, want unauthorized", err)
	}
}

func TestProtectedEndpointWithoutToken(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv, models.RoleCaregiver)

	_, err := c.MyJobs(context.Background())
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("got %v, want unauthorized", err)
	}
}

func TestRoleEnforcement(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	// A civilian token must not open caregiver endpoints.
	store := session.NewMemoryStore()
	civ := gateway.New(gateway.Config{
		AuthURL: srv.URL, CaregiverURL: srv.URL, CivilianURL: srv.URL,
		Role: models.RoleCivilian, Store: store,
	})
	sess := login(t, civ, store, models.RoleCivilian, "9876500001")

	cross := gateway.New(gateway.Config{
		AuthURL: srv.URL, CaregiverURL: srv.URL, CivilianURL: srv.URL,
		Role: models.RoleCaregiver, Store: store,
	})
	_ = store.Set(models.RoleCaregiver, sess)

	_, err := cross.MyJobs(ctx)
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("got %v, want unauthorized for cross-role token", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := loggedInClient(t, srv, models.RoleCaregiver, "9876500002")

	if _, err := c.MyJobs(ctx); err != nil {
		t.Fatalf("pre-logout call failed: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := c.MyJobs(ctx)
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("got %v, want unauthorized after logout", err)
	}
}

// Full booking lifecycle across both roles, driven through the public API
// exactly as the two apps drive it.
func TestBookingLifecycleEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	cg := loggedInClient(t, srv, models.RoleCaregiver, "9876500010")
	civ := loggedInClient(t, srv, models.RoleCivilian, "9876500011")

	// Caregiver sets up a profile and goes available.
	skills := []string{"elder_care", "medical"}
	years := 4
	profile, err := cg.UpdateCaregiverProfile(ctx, gateway.CaregiverUpdate{Skills: &skills, ExperienceYears: &years})
	if err != nil {
		t.Fatal(err)
	}
	if err := cg.SetAvailability(ctx, profile.ID, true); err != nil {
		t.Fatal(err)
	}

	// Civilian requests care.
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	careReq := gateway.CareRequest{
		RequiredSkills: []string{"elder_care"},
		StartTime:      start,
		EndTime:        start.Add(2 * time.Hour),
	}
	bookingID, err := civ.RequestCare(ctx, careReq)
	if err != nil {
		t.Fatal(err)
	}
	if bookingID == 0 {
		t.Fatal("no booking id returned")
	}

	// One live booking per civilian.
	if _, err := civ.RequestCare(ctx, careReq); err == nil {
		t.Fatal("second care request succeeded, want 409")
	}

	// Matching surfaces the available caregiver.
	candidates, err := civ.MatchCaregivers(ctx, careReq)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) == 0 {
		t.Fatal("no candidates matched")
	}
	chosen := candidates[0]

	confirmedID, err := civ.ConfirmBooking(ctx, gateway.ConfirmBookingRequest{
		CaregiverID: chosen.CaregiverID,
		StartTime:   careReq.StartTime,
		EndTime:     careReq.EndTime,
	})
	if err != nil {
		t.Fatal(err)
	}
	if confirmedID != bookingID {
		t.Fatalf("confirm returned booking %d, want %d", confirmedID, bookingID)
	}

	// Double booking the caregiver's slot is refused.
	civ2 := loggedInClient(t, srv, models.RoleCivilian, "9876500012")
	_, err = civ2.ConfirmBooking(ctx, gateway.ConfirmBookingRequest{
		CaregiverID: chosen.CaregiverID,
		StartTime:   careReq.StartTime.Add(30 * time.Minute),
		EndTime:     careReq.EndTime.Add(30 * time.Minute),
	})
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 409 {
		t.Fatalf("overlapping confirm: got %v, want 409", err)
	}

	// Caregiver sees the offer and accepts.
	offers, err := cg.PendingBookings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 || offers[0].ID != bookingID {
		t.Fatalf("offers = %+v, want booking %d", offers, bookingID)
	}
	if err := cg.SetBookingStatus(ctx, bookingID, models.StatusAccepted); err != nil {
		t.Fatal(err)
	}

	// Starting the job twice violates the workflow guard.
	if err := cg.StartJob(ctx, bookingID); err != nil {
		t.Fatal(err)
	}
	if err := cg.StartJob(ctx, bookingID); err == nil {
		t.Fatal("second start-job succeeded, want 409")
	}

	status, err := civ.BookingStatus(ctx, bookingID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != models.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", status.Status)
	}
	if status.CaregiverName == "" {
		t.Fatal("caregiver name missing from status")
	}

	// Pause and resume around a safety alert.
	if err := cg.PauseJob(ctx, bookingID); err != nil {
		t.Fatal(err)
	}
	if err := cg.ResumeJob(ctx, bookingID); err != nil {
		t.Fatal(err)
	}

	if err := cg.EndJob(ctx, bookingID); err != nil {
		t.Fatal(err)
	}
	status, err = civ.BookingStatus(ctx, bookingID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != models.StatusCompleted {
		t.Fatalf("status = %q, want completed", status.Status)
	}

	// Rate: booking closes and the caregiver's trust score moves.
	if err := civ.SubmitRating(ctx, gateway.RatingRequest{
		CaregiverID: chosen.CaregiverID,
		Rating:      5,
		ReviewText:  "very kind",
	}); err != nil {
		t.Fatal(err)
	}
	status, err = civ.BookingStatus(ctx, bookingID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != models.StatusClosed {
		t.Fatalf("status = %q, want closed after rating", status.Status)
	}

	rated, err := cg.CaregiverProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rated.RatingAverage != 5.0 {
		t.Fatalf("rating average = %v, want 5.0", rated.RatingAverage)
	}
	if rated.TrustScore <= profile.TrustScore {
		t.Fatalf("trust score did not increase: %v -> %v", profile.TrustScore, rated.TrustScore)
	}

	// The finished booking shows up in the caregiver's job history.
	jobs, err := cg.MyJobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Status != models.StatusClosed {
		t.Fatalf("jobs = %+v, want one closed booking", jobs)
	}
}

func TestRejectedOfferIsTerminal(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	cg := loggedInClient(t, srv, models.RoleCaregiver, "9876500020")
	civ := loggedInClient(t, srv, models.RoleCivilian, "9876500021")

	profile, err := cg.CaregiverProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := cg.SetAvailability(ctx, profile.ID, true); err != nil {
		t.Fatal(err)
	}

	start := time.Now().Add(time.Hour)
	careReq := gateway.CareRequest{StartTime: start, EndTime: start.Add(time.Hour)}
	if _, err := civ.RequestCare(ctx, careReq); err != nil {
		t.Fatal(err)
	}
	candidates, err := civ.MatchCaregivers(ctx, careReq)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) == 0 {
		t.Fatal("no candidates")
	}
	bookingID, err := civ.ConfirmBooking(ctx, gateway.ConfirmBookingRequest{
		CaregiverID: candidates[0].CaregiverID,
		StartTime:   careReq.StartTime,
		EndTime:     careReq.EndTime,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := cg.SetBookingStatus(ctx, bookingID, models.StatusRejected); err != nil {
		t.Fatal(err)
	}

	status, err := civ.BookingStatus(ctx, bookingID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != models.StatusRejected {
		t.Fatalf("status = %q, want rejected", status.Status)
	}

	// Rejected is terminal: no accept afterwards.
	if err := cg.SetBookingStatus(ctx, bookingID, models.StatusAccepted); err == nil {
		t.Fatal("accept after reject succeeded, want 409")
	}
	// And the offer list is empty again.
	offers, err := cg.PendingBookings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 0 {
		t.Fatalf("offers = %+v, want none", offers)
	}
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

// Both state machines against the live server: the closest thing to running
// the two apps side by side.
func TestMachinesAgainstLiveServer(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	cgStore := session.NewMemoryStore()
	cgClient := gateway.New(gateway.Config{
		AuthURL: srv.URL, CaregiverURL: srv.URL, CivilianURL: srv.URL,
		Role: models.RoleCaregiver, Store: cgStore,
	})
	login(t, cgClient, cgStore, models.RoleCaregiver, "9876500030")

	profile, err := cgClient.CaregiverProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := cgClient.SetAvailability(ctx, profile.ID, true); err != nil {
		t.Fatal(err)
	}

	civStore := session.NewMemoryStore()
	civClient := gateway.New(gateway.Config{
		AuthURL: srv.URL, CaregiverURL: srv.URL, CivilianURL: srv.URL,
		Role: models.RoleCivilian, Store: civStore,
	})
	login(t, civClient, civStore, models.RoleCivilian, "9876500031")

	cgM := caregiver.New(cgClient, cgStore,
		caregiver.WithPollInterval(50*time.Millisecond),
		caregiver.WithTickInterval(time.Hour))
	if err := cgM.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer cgM.Stop()
	if cgM.Phase() != caregiver.PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", cgM.Phase())
	}

	civM := civilian.New(civClient, civStore,
		civilian.WithPollInterval(50*time.Millisecond),
		civilian.WithTickInterval(time.Hour),
		civilian.WithMatchRetryDelay(10*time.Millisecond))
	defer civM.Stop()

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	careReq := gateway.CareRequest{StartTime: start, EndTime: start.Add(time.Hour)}
	if _, err := civM.RequestCare(ctx, careReq); err != nil {
		t.Fatal(err)
	}
	candidates, err := civM.FindCaregivers(ctx, careReq)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) == 0 {
		t.Fatal("no candidates")
	}
	if _, err := civM.ConfirmBooking(ctx, gateway.ConfirmBookingRequest{
		CaregiverID: candidates[0].CaregiverID,
		StartTime:   careReq.StartTime,
		EndTime:     careReq.EndTime,
	}, candidates[0].Name); err != nil {
		t.Fatal(err)
	}
	if civM.Status() != models.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", civM.Status())
	}

	// The confirmed booking reaches the caregiver as an offer.
	waitFor(t, "job offer", func() bool { return cgM.Phase() == caregiver.PhaseJobOffered })
	offers := cgM.Offers()
	if len(offers) != 1 {
		t.Fatalf("offers = %+v, want one", offers)
	}

	cgM.Accept(ctx, offers[0])
	if cgM.Phase() != caregiver.PhaseTraveling {
		t.Fatalf("phase = %s, want traveling", cgM.Phase())
	}

	cgM.Arrived(ctx)
	if cgM.Phase() != caregiver.PhaseInSession {
		t.Fatalf("phase = %s, want in_session", cgM.Phase())
	}
	waitFor(t, "civilian sees in_progress", func() bool {
		return civM.Status() == models.StatusInProgress
	})
	if _, name := civM.Caregiver(); name == "" {
		t.Fatal("caregiver name not picked up from status poll")
	}

	cgM.EndSession(ctx)
	if cgM.Phase() != caregiver.PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", cgM.Phase())
	}
	waitFor(t, "civilian sees completed", func() bool {
		return civM.Status() == models.StatusCompleted
	})

	if err := civM.SubmitRating(ctx, 5, "wonderful"); err != nil {
		t.Fatal(err)
	}
	if civM.Status() != models.StatusRated {
		t.Fatalf("status = %q, want rated", civM.Status())
	}
	if civM.Polling() {
		t.Fatal("civilian machine still polling after rating")
	}
	if v := civStore.Value(models.RoleCivilian, session.KeyBookingID); v != "" {
		t.Fatalf("booking id still cached: %q", v)
	}
}
