package devserver_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"sidewayqr/internal/api"
	"sidewayqr/internal/attendance"
	"sidewayqr/internal/devserver"
	"sidewayqr/internal/notify"
	"sidewayqr/internal/scan"
	"sidewayqr/internal/session"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo, err := devserver.NewMemoryRepository()
	if err != nil {
		t.Fatalf("NewMemoryRepository() error: %v", err)
	}
	srv := httptest.NewServer(devserver.NewRouter(repo, devserver.Options{
		Issuer:     "sideway-e2e",
		SigningKey: "e2e-key",
		SessionTTL: time.Hour,
		Gatherer:   prometheus.NewRegistry(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckInFlowAgainstReferenceBackend(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	store := session.NewMemoryStore()
	client := api.New(srv.URL, store, 5*time.Second)
	bus := notify.NewInMemory(128)
	sess := attendance.New(client, bus)
	defer sess.Close()

	if _, err := sess.SubmitScan(ctx, "2:NET-42"); err != nil {
		t.Fatalf("SubmitScan() before login error: %v", err)
	}
	if st := sess.Snapshot(); st.LastOutcome != api.OutcomeUnauthenticated || !st.NeedsLogin {
		t.Fatalf("expected unauthenticated before login, got %+v", st)
	}

	if err := sess.Login(ctx, "student1@email.com", "wrong"); !errors.Is(err, api.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatal("failed login must not persist a credential")
	}

	if err := sess.Login(ctx, devserver.DemoEmail, devserver.DemoPassword); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if st := sess.Snapshot(); !st.Loaded || !st.Empty() {
		t.Fatalf("expected loaded empty list after login, got %+v", st)
	}

	cases := []struct {
		payload string
		want    api.Outcome
	}{
		{"2:NET-42", api.OutcomeSuccess},
		{"2:NET-42", api.OutcomeAlreadyMarked},
		{"3:OS:LAB:7", api.OutcomeSuccess},
		{"1:wrong", api.OutcomeInvalid},
		{"99:anything", api.OutcomeInvalid},
	}
	for _, tc := range cases {
		got, err := sess.SubmitScan(ctx, tc.payload)
		if err != nil {
			t.Fatalf("%s: SubmitScan() error: %v", tc.payload, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.payload, tc.want, got)
		}
	}

	st := sess.Snapshot()
	if len(st.Events) != 2 {
		t.Fatalf("expected 2 attended events, got %+v", st.Events)
	}
	if got := sess.Search("networks"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("unexpected search result %+v", got)
	}

	if err := sess.Logout(ctx); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatal("logout must clear the credential")
	}
	outcome, err := client.SubmitAttendance(ctx, mustParse(t, "2:NET-42"))
	if err != nil || outcome != api.OutcomeUnauthenticated {
		t.Fatalf("expected unauthenticated after logout, got %s %v", outcome, err)
	}
}

func TestFileBackedCredentialSurvivesNewClient(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cookies.json")

	store, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if _, err := api.New(srv.URL, store, 5*time.Second).Login(ctx, devserver.DemoEmail, devserver.DemoPassword); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	reopened, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	events, err := api.New(srv.URL, reopened, 5*time.Second).FetchEvents(ctx)
	if err != nil {
		t.Fatalf("FetchEvents() with persisted credential error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events yet, got %+v", events)
	}
}

func mustParse(t *testing.T, raw string) scan.Command {
	t.Helper()
	cmd, err := scan.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", raw, err)
	}
	return cmd
}
