package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ridehail/internal/domain/entities"
	"ridehail/internal/repository"
	"ridehail/internal/repository/memory"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	dispatcher *Dispatcher
	store      *repository.Store
	clock      *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupLifecycle(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.Riders.Create(ctx, entities.NewRider("rider-1", "Rider One", "r1@example.com", "555-0100")); err != nil {
		t.Fatalf("seed rider: %v", err)
	}
	for _, id := range []string{"driver-1", "driver-2"} {
		if err := store.Drivers.Create(ctx, entities.NewDriver(id, "Driver", id+"@example.com", "555-0200", "vehicle-"+id)); err != nil {
			t.Fatalf("seed driver: %v", err)
		}
	}
	clock := &fakeClock{t: fixedNow}
	seq := 0
	d := NewDispatcher(store.Rides, store.Riders, store.Drivers,
		WithClock(clock.now),
		WithIDGenerator(func() string {
			seq++
			return "ride-" + string(rune('0'+seq))
		}),
	)
	return &testEnv{dispatcher: d, store: store, clock: clock}
}

func validRequest() entities.NewRideRequest {
	return entities.NewRideRequest{
		RiderID:           "rider-1",
		DriverID:          "driver-1",
		VehicleID:         "vehicle-driver-1",
		PickupLocationID:  "loc-a",
		DropoffLocationID: "loc-b",
	}
}

// seedRide stores a ride that is already in the given status.
func (e *testEnv) seedRide(t *testing.T, status entities.RideStatus) *entities.Ride {
	t.Helper()
	ride := entities.NewRide("seeded", validRequest(), fixedNow)
	ride.Status = status
	if status == entities.RideStatusActive || status == entities.RideStatusCompleted {
		started := fixedNow.Add(time.Minute)
		ride.StartedAt = &started
	}
	if status == entities.RideStatusCompleted {
		completed := fixedNow.Add(20 * time.Minute)
		ride.CompletedAt = &completed
	}
	if err := e.store.Rides.Create(context.Background(), ride); err != nil {
		t.Fatalf("seed ride: %v", err)
	}
	return ride
}

// commit persists a handler result the way the service layer does.
func (e *testEnv) commit(t *testing.T, ride *entities.Ride, expected entities.RideStatus) {
	t.Helper()
	if err := e.store.Rides.UpdateIfStatus(context.Background(), ride, expected); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func (e *testEnv) handler(t *testing.T, status entities.RideStatus) Handler {
	t.Helper()
	h, err := e.dispatcher.Resolve(string(status))
	if err != nil {
		t.Fatalf("Resolve(%q): %v", status, err)
	}
	return h
}

func invoke(ctx context.Context, h Handler, action Action, rideID, actor string, privileged bool) (*entities.Ride, error) {
	switch action {
	case ActionCreate:
		return h.Create(ctx, validRequest())
	case ActionAccept:
		return h.Accept(ctx, rideID, actor)
	case ActionReject:
		return h.Reject(ctx, rideID, actor)
	case ActionStart:
		return h.Start(ctx, rideID)
	case ActionComplete:
		return h.Complete(ctx, rideID)
	case ActionCancel:
		return h.Cancel(ctx, rideID, privileged)
	}
	panic("unknown action " + action)
}

func TestDispatcher_ResolveIsCaseInsensitive(t *testing.T) {
	env := setupLifecycle(t)

	lower, err := env.dispatcher.Resolve("requested")
	if err != nil {
		t.Fatalf("Resolve(requested): %v", err)
	}
	upper, err := env.dispatcher.Resolve("REQUESTED")
	if err != nil {
		t.Fatalf("Resolve(REQUESTED): %v", err)
	}
	if lower != upper {
		t.Error("Expected the same handler for REQUESTED and requested")
	}
	padded, err := env.dispatcher.Resolve("  Accepted ")
	if err != nil {
		t.Fatalf("Resolve(padded): %v", err)
	}
	if padded.Status() != entities.RideStatusAccepted {
		t.Errorf("Expected accepted handler, got %s", padded.Status())
	}
}

func TestDispatcher_ResolveEveryStatus(t *testing.T) {
	env := setupLifecycle(t)
	for _, status := range entities.RideStatuses() {
		h := env.handler(t, status)
		if h.Status() != status {
			t.Errorf("Resolve(%s) returned handler for %s", status, h.Status())
		}
	}
}

func TestDispatcher_ResolveRejectsInvalidTokens(t *testing.T) {
	env := setupLifecycle(t)

	for _, token := range []string{"", "   ", "bogus", "in_progress", "request ed", "cancelled!"} {
		t.Run(token, func(t *testing.T) {
			_, err := env.dispatcher.Resolve(token)
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("Expected ErrInvalidState, got %v", err)
			}
			if errors.Is(err, ErrActionNotAllowed) {
				t.Error("Invalid state must not look like an action-not-allowed error")
			}
		})
	}

	if _, err := env.dispatcher.ResolveRide(nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for nil ride, got %v", err)
	}
}

func TestDispatcher_InitialStateCreatesRequestedRide(t *testing.T) {
	env := setupLifecycle(t)
	ctx := context.Background()

	h := env.dispatcher.InitialState()
	if h.Status() != "" {
		t.Errorf("Expected empty status for the initial handler, got %q", h.Status())
	}

	ride, err := h.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ride.Status != entities.RideStatusRequested {
		t.Errorf("Expected status requested, got %s", ride.Status)
	}
	if !ride.RequestedAt.Equal(fixedNow) {
		t.Errorf("Expected requested_at %v, got %v", fixedNow, ride.RequestedAt)
	}
	if ride.StartedAt != nil || ride.CompletedAt != nil {
		t.Error("Expected started_at and completed_at to be absent")
	}
	if ride.ID != "ride-1" || ride.DriverID != "driver-1" || ride.RiderID != "rider-1" {
		t.Errorf("Unexpected ride identity: %+v", ride)
	}

	// Create does not persist.
	if _, err := env.store.Rides.GetByID(ctx, ride.ID); !errors.Is(err, repository.ErrRideNotFound) {
		t.Errorf("Expected the handler not to store the ride, got %v", err)
	}
}

func TestCreate_ValidatesPayloadAndParties(t *testing.T) {
	env := setupLifecycle(t)
	h := env.dispatcher.InitialState()
	ctx := context.Background()

	missing := validRequest()
	missing.PickupLocationID = ""
	if _, err := h.Create(ctx, missing); !errors.Is(err, entities.ErrInvalidRideRequest) {
		t.Errorf("Expected ErrInvalidRideRequest, got %v", err)
	}

	unknownRider := validRequest()
	unknownRider.RiderID = "rider-404"
	if _, err := h.Create(ctx, unknownRider); !errors.Is(err, repository.ErrRiderNotFound) {
		t.Errorf("Expected ErrRiderNotFound, got %v", err)
	}

	unknownDriver := validRequest()
	unknownDriver.DriverID = "driver-404"
	if _, err := h.Create(ctx, unknownDriver); !errors.Is(err, repository.ErrDriverNotFound) {
		t.Errorf("Expected ErrDriverNotFound, got %v", err)
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from       entities.RideStatus
		action     Action
		privileged bool
		want       entities.RideStatus // empty means the action is rejected
	}{
		{entities.RideStatusRequested, ActionCreate, false, ""},
		{entities.RideStatusRequested, ActionAccept, false, entities.RideStatusAccepted},
		{entities.RideStatusRequested, ActionReject, false, entities.RideStatusCancelled},
		{entities.RideStatusRequested, ActionStart, false, ""},
		{entities.RideStatusRequested, ActionComplete, false, ""},
		{entities.RideStatusRequested, ActionCancel, false, entities.RideStatusCancelled},

		{entities.RideStatusAccepted, ActionCreate, false, ""},
		{entities.RideStatusAccepted, ActionAccept, false, ""},
		{entities.RideStatusAccepted, ActionReject, false, ""},
		{entities.RideStatusAccepted, ActionStart, false, entities.RideStatusActive},
		{entities.RideStatusAccepted, ActionComplete, false, ""},
		{entities.RideStatusAccepted, ActionCancel, false, entities.RideStatusCancelled},

		{entities.RideStatusActive, ActionCreate, false, ""},
		{entities.RideStatusActive, ActionAccept, false, ""},
		{entities.RideStatusActive, ActionReject, false, ""},
		{entities.RideStatusActive, ActionStart, false, ""},
		{entities.RideStatusActive, ActionComplete, false, entities.RideStatusCompleted},
		{entities.RideStatusActive, ActionCancel, true, entities.RideStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			env := setupLifecycle(t)
			ride := env.seedRide(t, tt.from)

			got, err := invoke(context.Background(), env.handler(t, tt.from), tt.action, ride.ID, "driver-1", tt.privileged)
			if tt.want == "" {
				if !errors.Is(err, ErrWrongState) {
					t.Fatalf("Expected ErrWrongState, got %v", err)
				}
				if got != nil {
					t.Error("Expected no ride on rejection")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected %s, got error %v", tt.want, err)
			}
			if got.Status != tt.want {
				t.Errorf("Expected status %s, got %s", tt.want, got.Status)
			}
			if got.ID != ride.ID || got.DriverID != ride.DriverID {
				t.Error("Transition must not change the ride's identity or driver")
			}
		})
	}
}

func TestTerminalStatesAbsorbEveryAction(t *testing.T) {
	actions := []Action{ActionCreate, ActionAccept, ActionReject, ActionStart, ActionComplete, ActionCancel}

	for _, status := range []entities.RideStatus{entities.RideStatusCompleted, entities.RideStatusCancelled} {
		for _, action := range actions {
			for _, privileged := range []bool{false, true} {
				env := setupLifecycle(t)
				ride := env.seedRide(t, status)

				_, err := invoke(context.Background(), env.handler(t, status), action, ride.ID, "driver-1", privileged)
				if !errors.Is(err, ErrActionNotAllowed) {
					t.Errorf("%s/%s privileged=%v: expected ErrActionNotAllowed, got %v", status, action, privileged, err)
				}
			}
		}
	}
}

func TestStart_StampsStartedAtOnce(t *testing.T) {
	env := setupLifecycle(t)
	ctx := context.Background()
	ride := env.seedRide(t, entities.RideStatusAccepted)

	env.clock.advance(5 * time.Minute)
	started, err := env.handler(t, entities.RideStatusAccepted).Start(ctx, ride.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	wantStarted := fixedNow.Add(5 * time.Minute)
	if started.StartedAt == nil || !started.StartedAt.Equal(wantStarted) {
		t.Fatalf("Expected started_at %v, got %v", wantStarted, started.StartedAt)
	}
	if started.CompletedAt != nil {
		t.Error("Expected completed_at to stay absent")
	}
	env.commit(t, started, entities.RideStatusAccepted)

	// Starting again from active is not a legal transition.
	env.clock.advance(time.Minute)
	if _, err := env.handler(t, entities.RideStatusActive).Start(ctx, ride.ID); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState, got %v", err)
	}
	// Nor can the accepted handler be used on a ride that moved on.
	if _, err := env.handler(t, entities.RideStatusAccepted).Start(ctx, ride.ID); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState for a stale handler, got %v", err)
	}

	stored, _ := env.store.Rides.GetByID(ctx, ride.ID)
	if !stored.StartedAt.Equal(wantStarted) {
		t.Errorf("started_at changed to %v", stored.StartedAt)
	}
}

func TestComplete_StampsCompletedAtFromActiveOnly(t *testing.T) {
	env := setupLifecycle(t)
	ctx := context.Background()

	accepted := env.seedRide(t, entities.RideStatusAccepted)
	if _, err := env.handler(t, entities.RideStatusAccepted).Complete(ctx, accepted.ID); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState completing an accepted ride, got %v", err)
	}

	env2 := setupLifecycle(t)
	active := env2.seedRide(t, entities.RideStatusActive)
	env2.clock.advance(30 * time.Minute)
	done, err := env2.handler(t, entities.RideStatusActive).Complete(ctx, active.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	want := fixedNow.Add(30 * time.Minute)
	if done.CompletedAt == nil || !done.CompletedAt.Equal(want) {
		t.Errorf("Expected completed_at %v, got %v", want, done.CompletedAt)
	}
	if done.StartedAt == nil || !done.StartedAt.Equal(*active.StartedAt) {
		t.Error("Complete must keep started_at")
	}
}

func TestAcceptReject_WrongDriverIsAuthorizationFailure(t *testing.T) {
	for _, action := range []Action{ActionAccept, ActionReject} {
		t.Run(string(action), func(t *testing.T) {
			env := setupLifecycle(t)
			ctx := context.Background()
			ride := env.seedRide(t, entities.RideStatusRequested)

			_, err := invoke(ctx, env.handler(t, entities.RideStatusRequested), action, ride.ID, "driver-2", false)
			if !errors.Is(err, ErrNotAuthorized) {
				t.Fatalf("Expected ErrNotAuthorized, got %v", err)
			}
			if !errors.Is(err, ErrActionNotAllowed) {
				t.Error("Authorization failures are still action-not-allowed errors")
			}
			if errors.Is(err, ErrWrongState) {
				t.Error("Authorization failure must be distinguishable from a wrong-state failure")
			}

			stored, _ := env.store.Rides.GetByID(ctx, ride.ID)
			if stored.Status != entities.RideStatusRequested {
				t.Errorf("Expected status to remain requested, got %s", stored.Status)
			}

			// The same action on a ride that is not requested is a
			// lifecycle failure, not an authorization one.
			env2 := setupLifecycle(t)
			accepted := env2.seedRide(t, entities.RideStatusAccepted)
			_, err = invoke(ctx, env2.handler(t, entities.RideStatusRequested), action, accepted.ID, "driver-1", false)
			if !errors.Is(err, ErrWrongState) || errors.Is(err, ErrNotAuthorized) {
				t.Errorf("Expected a pure wrong-state error, got %v", err)
			}
		})
	}
}

func TestCancel_PrivilegeGate(t *testing.T) {
	tests := []struct {
		from       entities.RideStatus
		privileged bool
		wantErr    error
	}{
		{entities.RideStatusRequested, false, nil},
		{entities.RideStatusRequested, true, nil},
		{entities.RideStatusAccepted, false, nil},
		{entities.RideStatusAccepted, true, nil},
		{entities.RideStatusActive, false, ErrNotAuthorized},
		{entities.RideStatusActive, true, nil},
	}

	for _, tt := range tests {
		env := setupLifecycle(t)
		ride := env.seedRide(t, tt.from)

		got, err := env.handler(t, tt.from).Cancel(context.Background(), ride.ID, tt.privileged)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s privileged=%v: expected %v, got %v", tt.from, tt.privileged, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s privileged=%v: unexpected error %v", tt.from, tt.privileged, err)
			continue
		}
		if got.Status != entities.RideStatusCancelled {
			t.Errorf("%s privileged=%v: expected cancelled, got %s", tt.from, tt.privileged, got.Status)
		}
	}
}

func TestHandler_RejectsCorruptStoredStatus(t *testing.T) {
	env := setupLifecycle(t)
	ride := env.seedRide(t, entities.RideStatus("teleported"))

	_, err := env.handler(t, entities.RideStatusRequested).Cancel(context.Background(), ride.ID, true)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestHandler_NormalizesStoredStatusCase(t *testing.T) {
	env := setupLifecycle(t)
	ride := env.seedRide(t, entities.RideStatus("REQUESTED"))

	h, err := env.dispatcher.Resolve(string(ride.Status))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, err := h.Accept(context.Background(), ride.ID, "driver-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if got.Status != entities.RideStatusAccepted {
		t.Errorf("Expected accepted, got %s", got.Status)
	}
}

func TestHandler_MissingRide(t *testing.T) {
	env := setupLifecycle(t)

	_, err := env.handler(t, entities.RideStatusRequested).Accept(context.Background(), "nope", "driver-1")
	if !errors.Is(err, repository.ErrRideNotFound) {
		t.Errorf("Expected ErrRideNotFound, got %v", err)
	}
}

func TestTransitionError_MessageNamesActionAndStatus(t *testing.T) {
	env := setupLifecycle(t)
	ride := env.seedRide(t, entities.RideStatusCompleted)

	_, err := env.handler(t, entities.RideStatusCompleted).Cancel(context.Background(), ride.ID, true)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("Expected *TransitionError, got %T", err)
	}
	if te.Action != ActionCancel || te.Status != entities.RideStatusCompleted {
		t.Errorf("Unexpected error context: %+v", te)
	}
	if !strings.Contains(err.Error(), "cancel") || !strings.Contains(err.Error(), "completed") {
		t.Errorf("Expected message to name action and status, got %q", err.Error())
	}

	initialErr := NewTransitionError(ActionStart, "", "")
	if !strings.Contains(initialErr.Error(), "initial") {
		t.Errorf("Expected the empty status to read as initial, got %q", initialErr.Error())
	}
}

func TestScenario_FullLifecycleWithAdminCancel(t *testing.T) {
	env := setupLifecycle(t)
	ctx := context.Background()

	ride, err := env.dispatcher.InitialState().Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := env.store.Rides.Create(ctx, ride); err != nil {
		t.Fatalf("store: %v", err)
	}

	accepted, err := env.handler(t, entities.RideStatusRequested).Accept(ctx, ride.ID, "driver-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	env.commit(t, accepted, entities.RideStatusRequested)

	// A second driver arriving after the commit sees the new status.
	if _, err := env.handler(t, entities.RideStatusRequested).Accept(ctx, ride.ID, "driver-2"); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected late accept to fail with ErrWrongState, got %v", err)
	}

	active, err := env.handler(t, entities.RideStatusAccepted).Start(ctx, ride.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	env.commit(t, active, entities.RideStatusAccepted)

	cancelled, err := env.handler(t, entities.RideStatusActive).Cancel(ctx, ride.ID, true)
	if err != nil {
		t.Fatalf("Admin cancel failed: %v", err)
	}
	env.commit(t, cancelled, entities.RideStatusActive)

	current, _ := env.store.Rides.GetByID(ctx, ride.ID)
	h, err := env.dispatcher.ResolveRide(current)
	if err != nil {
		t.Fatalf("ResolveRide: %v", err)
	}
	if _, err := h.Complete(ctx, ride.ID); !errors.Is(err, ErrActionNotAllowed) {
		t.Errorf("Expected complete on a cancelled ride to fail, got %v", err)
	}
	if current.StartedAt == nil || current.CompletedAt != nil {
		t.Error("Expected started_at set and completed_at absent after cancellation")
	}
}
