package stub

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aprsa/phoebe-lab/internal/client"
	"github.com/aprsa/phoebe-lab/internal/types"
)

func newTestServer(t *testing.T) (*Server, *client.Client) {
	t.Helper()
	srv := NewServer("test", nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, client.New(ts.URL)
}

func startTestSession(t *testing.T, c *client.Client) *types.SessionInfo {
	t.Helper()
	info, err := c.StartSession(context.Background(), types.User{FirstName: "A", LastName: "B"}, "demo")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return info
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t)
	res, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !res.OK || res.Version != "test" {
		t.Fatalf("health = %+v", res)
	}
}

func TestStartSessionValidation(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.StartSession(context.Background(), types.User{}, "demo")
	remote := client.AsRemoteError(err)
	if remote == nil {
		t.Fatalf("err = %v, want RemoteError", err)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.GetSession(context.Background(), "nope")
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	_, err = c.GetParameter(context.Background(), "nope", "period@binary@component")
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestParameterRoundTrip(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	meta, err := c.GetParameter(ctx, info.SessionID, "teff@primary@component")
	if err != nil {
		t.Fatalf("get parameter: %v", err)
	}
	if meta.Kind != "numeric" || meta.Value.(float64) != 6000 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.UniqueID == "" {
		t.Fatal("missing unique id")
	}

	if err := c.SetValue(ctx, info.SessionID, "teff@primary@component", 6500.0); err != nil {
		t.Fatalf("set value: %v", err)
	}
	v, err := c.GetValue(ctx, info.SessionID, "teff@primary@component")
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if v.(float64) != 6500 {
		t.Fatalf("value = %v", v)
	}
}

func TestUnknownTwigIsProtocolError(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)

	// Unknown twig answers HTTP 200 with success=false; only a vanished
	// session produces 404.
	_, err := c.GetParameter(context.Background(), info.SessionID, "bogus@twig")
	if errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("unknown twig misreported as expired session: %v", err)
	}
	remote := client.AsRemoteError(err)
	if remote == nil || remote.Status != http.StatusOK {
		t.Fatalf("err = %v, want RemoteError with status 200", err)
	}
}

func TestSetValueRejections(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	// Constrained parameter.
	err := c.SetValue(ctx, info.SessionID, "sma@binary@component", 6.0)
	if client.AsRemoteError(err) == nil {
		t.Fatalf("constrained write: %v", err)
	}
	// Out of bounds.
	err = c.SetValue(ctx, info.SessionID, "incl@binary@component", 270.0)
	if client.AsRemoteError(err) == nil {
		t.Fatalf("out-of-bounds write: %v", err)
	}
	// Invalid choice.
	err = c.SetValue(ctx, info.SessionID, "atm@primary@compute", "phoenix")
	if client.AsRemoteError(err) == nil {
		t.Fatalf("invalid choice write: %v", err)
	}
	// Valid choice succeeds.
	if err := c.SetValue(ctx, info.SessionID, "atm@primary@compute", "blackbody"); err != nil {
		t.Fatalf("valid choice write: %v", err)
	}
}

func TestDatasetLifecycle(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	spec := types.DefaultDatasetSpec()
	spec.Label = "lc01"
	id, err := c.AddDataset(ctx, info.SessionID, spec)
	if err != nil {
		t.Fatalf("add dataset: %v", err)
	}

	datasets, err := c.GetDatasets(ctx, info.SessionID)
	if err != nil {
		t.Fatalf("get datasets: %v", err)
	}
	if len(datasets) != 1 || datasets[0].ID != id || datasets[0].Label != "lc01" {
		t.Fatalf("datasets = %+v", datasets)
	}

	if err := c.RemoveDataset(ctx, info.SessionID, id); err != nil {
		t.Fatalf("remove dataset: %v", err)
	}
	if err := c.RemoveDataset(ctx, info.SessionID, id); client.AsRemoteError(err) == nil {
		t.Fatalf("double remove: %v", err)
	}

	bad := types.DefaultDatasetSpec()
	bad.NPoints = 0
	if _, err := c.AddDataset(ctx, info.SessionID, bad); client.AsRemoteError(err) == nil {
		t.Fatalf("invalid spec accepted: %v", err)
	}
}

func TestMorphologyRebuild(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	if _, err := c.AddDataset(ctx, info.SessionID, types.DefaultDatasetSpec()); err != nil {
		t.Fatal(err)
	}
	if err := c.ChangeMorphology(ctx, info.SessionID, "contact"); err != nil {
		t.Fatalf("change morphology: %v", err)
	}

	// Datasets are dropped by the rebuild.
	datasets, err := c.GetDatasets(ctx, info.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(datasets) != 0 {
		t.Fatalf("datasets survived rebuild: %+v", datasets)
	}

	// The secondary geometry is now derived.
	constrained, err := c.IsParameterConstrained(ctx, info.SessionID, "requiv@secondary@component")
	if err != nil {
		t.Fatal(err)
	}
	if !constrained {
		t.Fatal("secondary requiv not constrained in contact morphology")
	}

	if err := c.ChangeMorphology(ctx, info.SessionID, "detached"); err != nil {
		t.Fatal(err)
	}
	constrained, err = c.IsParameterConstrained(ctx, info.SessionID, "requiv@secondary@component")
	if err != nil {
		t.Fatal(err)
	}
	if constrained {
		t.Fatal("secondary requiv still constrained after switch back")
	}

	if err := c.ChangeMorphology(ctx, info.SessionID, "overcontact"); client.AsRemoteError(err) == nil {
		t.Fatalf("unknown morphology accepted: %v", err)
	}
}

func TestComputeProducesCurves(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	lc := types.DefaultDatasetSpec()
	lc.Label = "lc01"
	lcID, err := c.AddDataset(ctx, info.SessionID, lc)
	if err != nil {
		t.Fatal(err)
	}
	rv := types.DefaultDatasetSpec()
	rv.Label = "rv01"
	rv.Kind = types.DatasetRV
	rvID, err := c.AddDataset(ctx, info.SessionID, rv)
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.RunCompute(ctx, info.SessionID, client.ComputeOptions{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	curve, ok := res.Model[lcID]
	if !ok || len(curve.Values) != lc.NPoints {
		t.Fatalf("lc curve missing or wrong length: %v", res.Model)
	}
	// The primary eclipse sits at phase zero; quadrature is out of
	// eclipse, so the edge-on default geometry must dip in between.
	mid := curve.Values[lc.NPoints/2]
	quad := curve.Values[(3*lc.NPoints)/4]
	if !(mid < quad) {
		t.Fatalf("no eclipse dip: mid=%v quadrature=%v", mid, quad)
	}

	rvCurve, ok := res.Model[rvID]
	if !ok || len(rvCurve.Values) != rv.NPoints {
		t.Fatalf("rv curve missing: %v", res.Model)
	}
	if math.Abs(rvCurve.Values[rv.NPoints/2]) > 1e-9 {
		t.Fatalf("rv at conjunction = %v, want 0", rvCurve.Values[rv.NPoints/2])
	}

	// Identical state computes identical curves.
	again, err := c.RunCompute(ctx, info.SessionID, client.ComputeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range again.Model[lcID].Values {
		if v != curve.Values[i] {
			t.Fatalf("compute not deterministic at %d: %v vs %v", i, v, curve.Values[i])
		}
	}
}

func TestSolver(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	twigs := []string{"incl@binary@component", "teff@primary@component"}
	steps := []float64{0.5, 100}
	fit, err := c.RunSolver(ctx, info.SessionID, twigs, steps, client.SolverOptions{})
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if len(fit.Twigs) != 2 || len(fit.Initial) != 2 || len(fit.Fitted) != 2 {
		t.Fatalf("fit = %+v", fit)
	}
	if fit.Initial[0] != 90 {
		t.Fatalf("initial incl = %v", fit.Initial[0])
	}
	for i := range fit.Fitted {
		if math.Abs(fit.Fitted[i]-fit.Initial[i]) > steps[i] {
			t.Fatalf("fitted moved beyond step: %v -> %v", fit.Initial[i], fit.Fitted[i])
		}
	}

	// Constrained twigs are rejected.
	_, err = c.RunSolver(ctx, info.SessionID, []string{"sma@binary@component"}, []float64{0.1}, client.SolverOptions{})
	if client.AsRemoteError(err) == nil {
		t.Fatalf("constrained twig accepted: %v", err)
	}
	// Empty selection is rejected.
	_, err = c.RunSolver(ctx, info.SessionID, nil, nil, client.SolverOptions{})
	if client.AsRemoteError(err) == nil {
		t.Fatalf("empty selection accepted: %v", err)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	_, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	if err := c.SetValue(ctx, info.SessionID, "period@binary@component", 2.5); err != nil {
		t.Fatal(err)
	}
	spec := types.DefaultDatasetSpec()
	spec.Label = "lc01"
	if _, err := c.AddDataset(ctx, info.SessionID, spec); err != nil {
		t.Fatal(err)
	}

	raw, err := c.SaveBundle(ctx, info.SessionID)
	if err != nil {
		t.Fatalf("save bundle: %v", err)
	}

	// Reset and confirm defaults came back.
	if err := c.NewBundle(ctx, info.SessionID); err != nil {
		t.Fatalf("new bundle: %v", err)
	}
	v, err := c.GetValue(ctx, info.SessionID, "period@binary@component")
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 1.0 {
		t.Fatalf("period after reset = %v", v)
	}
	datasets, err := c.GetDatasets(ctx, info.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(datasets) != 0 {
		t.Fatalf("datasets after reset: %+v", datasets)
	}

	// Load the saved bundle and confirm the edits returned.
	if err := c.LoadBundle(ctx, info.SessionID, raw); err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	v, err = c.GetValue(ctx, info.SessionID, "period@binary@component")
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 2.5 {
		t.Fatalf("period after load = %v", v)
	}
	datasets, err = c.GetDatasets(ctx, info.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(datasets) != 1 || datasets[0].Label != "lc01" {
		t.Fatalf("datasets after load: %+v", datasets)
	}

	if err := c.LoadBundle(ctx, info.SessionID, []byte("not json")); client.AsRemoteError(err) == nil {
		t.Fatal("malformed bundle accepted")
	}
}

func TestIdleExpiry(t *testing.T) {
	srv, c := newTestServer(t)
	info := startTestSession(t, c)
	ctx := context.Background()

	srv.SetIdleTTL(10 * time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, err := c.GetSession(ctx, info.SessionID)
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}
