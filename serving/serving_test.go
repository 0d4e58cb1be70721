package serving

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/dataset"
	"github.com/rushteam/scoutkit/feature"
	"github.com/rushteam/scoutkit/model"
	"github.com/rushteam/scoutkit/registry"
)

// recruitCSV generates a training CSV with n rows covering all four divisions.
func recruitCSV(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("athlete_id,position,height_inches,weight_lbs,state,division,games,senior_ypg,junior_ypg,forty_yard_dash,vertical_jump\n")
	divisions := []string{"Power5", "FCS", "D2", "D3"}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "ath-%03d,QB,%.1f,%.1f,TX,%s,%d,%.1f,%.1f,%.2f,%.1f\n",
			i,
			71.0+float64(i%6),
			190.0+float64(i%40),
			divisions[i%4],
			10+i%4,
			150.0+float64(i)*4,
			120.0+float64(i)*3,
			4.5+float64(i%10)*0.05,
			27.0+float64(i%9),
		)
	}
	return buf.Bytes()
}

func newServing(t *testing.T) *Registry {
	t.Helper()
	source, err := registry.New(t.TempDir())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewRegistry(source)
}

func allPositionBlobs(n int) *dataset.DummyBlobClient {
	blobs := make(map[string][]byte, len(core.Positions))
	for _, pos := range core.Positions {
		blobs[fmt.Sprintf("recruits_%s.csv", pos)] = recruitCSV(n)
	}
	return dataset.NewDummyBlobClient(blobs)
}

// stubArtifact builds a deployable artifact without going through a registry.
func stubArtifact(t *testing.T, position, version string) *registry.Artifact {
	t.Helper()
	records, err := dataset.ParseCSV(recruitCSV(48))
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	pre := feature.NewPreprocessor(position)
	if err := pre.Fit(records); err != nil {
		t.Fatalf("fit: %v", err)
	}
	matrix, err := pre.Transform(records)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	labels := make([]int, len(records))
	for i, rec := range records {
		div, _ := rec.String("division")
		labels[i], _ = core.DivisionClass(div)
	}
	clf := model.NewCentroidClassifier()
	if err := clf.Fit(context.Background(), matrix, labels); err != nil {
		t.Fatalf("classifier fit: %v", err)
	}
	return &registry.Artifact{Position: position, Version: version, Preprocessor: pre, Classifier: clf}
}

func TestActiveFastFail(t *testing.T) {
	reg := newServing(t)
	_, err := reg.Active("qb")
	if !core.IsVersionNotFound(err) {
		t.Fatalf("expected VERSION_NOT_FOUND for unloaded position, got %v", err)
	}
}

func TestActiveErrorNamesAvailablePositions(t *testing.T) {
	reg := newServing(t)
	if err := reg.Switch("qb", stubArtifact(t, "qb", "1.0.0")); err != nil {
		t.Fatalf("switch: %v", err)
	}

	_, err := reg.Active("wr")
	if !core.IsVersionNotFound(err) {
		t.Fatalf("expected VERSION_NOT_FOUND, got %v", err)
	}
	// The client error must say which positions are currently served
	// and which ones exist at all.
	if !strings.Contains(err.Error(), "qb") {
		t.Fatalf("error should name loaded positions: %v", err)
	}
	for _, pos := range core.Positions {
		if !strings.Contains(err.Error(), pos) {
			t.Fatalf("error should name known position %s: %v", pos, err)
		}
	}
}

func TestLoadAllNoModels(t *testing.T) {
	reg := newServing(t)
	err := reg.LoadAll(context.Background())
	if !core.IsUnavailable(err) {
		t.Fatalf("expected UNAVAILABLE when nothing can be loaded, got %v", err)
	}
}

func TestRetrainSwapsAllPositions(t *testing.T) {
	reg := newServing(t)
	ctx := context.Background()

	err := reg.Retrain(ctx, allPositionBlobs(48), RetrainRequest{
		Version:   "1.0.0",
		Changelog: []string{"First training round"},
	})
	if err != nil {
		t.Fatalf("retrain: %v", err)
	}

	for _, pos := range core.Positions {
		artifact, err := reg.Active(pos)
		if err != nil {
			t.Fatalf("active %s: %v", pos, err)
		}
		if artifact.Version != "1.0.0" {
			t.Fatalf("active %s = v%s, want v1.0.0", pos, artifact.Version)
		}
	}

	info := reg.Info()
	if len(info) != len(core.Positions) {
		t.Fatalf("info reports %d positions, want %d", len(info), len(core.Positions))
	}
}

func TestRetrainFailureKeepsActiveSet(t *testing.T) {
	reg := newServing(t)
	ctx := context.Background()

	if err := reg.Retrain(ctx, allPositionBlobs(48), RetrainRequest{Version: "1.0.0"}); err != nil {
		t.Fatalf("bootstrap retrain: %v", err)
	}

	// Missing the wr dataset: the whole round must abort and the
	// active set must stay on 1.0.0 for every position.
	partial := dataset.NewDummyBlobClient(map[string][]byte{
		"recruits_qb.csv": recruitCSV(48),
		"recruits_rb.csv": recruitCSV(48),
	})
	err := reg.Retrain(ctx, partial, RetrainRequest{Version: "1.1.0"})
	if err == nil {
		t.Fatal("retrain with a missing dataset must fail")
	}
	if !core.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND from the missing dataset, got %v", err)
	}

	for _, pos := range core.Positions {
		artifact, aerr := reg.Active(pos)
		if aerr != nil {
			t.Fatalf("active %s: %v", pos, aerr)
		}
		if artifact.Version != "1.0.0" {
			t.Fatalf("active %s = v%s after failed round, want v1.0.0", pos, artifact.Version)
		}
	}
}

func TestCommitInstallsAllPositionsAtomically(t *testing.T) {
	reg := newServing(t)

	makeSet := func(version string) map[string]*registry.Artifact {
		set := make(map[string]*registry.Artifact, len(core.Positions))
		for _, pos := range core.Positions {
			set[pos] = stubArtifact(t, pos, version)
		}
		return set
	}
	setA, setB := makeSet("1.0.0"), makeSet("2.0.0")
	reg.install(setA)

	// Readers must never observe a half-committed set: every Info snapshot
	// has all positions on the same version.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if i%2 == 0 {
				reg.install(setB)
			} else {
				reg.install(setA)
			}
		}
	}()
	for {
		info := reg.Info()
		if len(info) != len(core.Positions) {
			t.Errorf("info = %+v, want all positions", info)
			break
		}
		mixed := false
		for _, m := range info {
			if m.Version != info[0].Version {
				mixed = true
			}
		}
		if mixed {
			t.Errorf("observed mixed active set: %+v", info)
			break
		}
		select {
		case <-done:
			return
		default:
		}
	}
	<-done
}

func TestManualSwitchBlockedDuringRetrain(t *testing.T) {
	reg := newServing(t)
	pinned := stubArtifact(t, "qb", "1.0.0")
	if err := reg.Switch("qb", pinned); err != nil {
		t.Fatalf("switch: %v", err)
	}

	// Simulate an in-flight retraining round: version pins made while a
	// round runs would be silently clobbered by its commit, so the manual
	// paths must refuse instead.
	reg.retrainMu.Lock()

	if err := reg.Switch("qb", stubArtifact(t, "qb", "0.9.0")); !core.IsUnavailable(err) {
		t.Fatalf("switch during round: %v", err)
	}
	if err := reg.Rollback(context.Background(), "qb", "1.0.0"); !core.IsUnavailable(err) {
		t.Fatalf("rollback during round: %v", err)
	}

	reg.retrainMu.Unlock()

	active, err := reg.Active("qb")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.Version != "1.0.0" {
		t.Fatalf("active = v%s, pinned version must survive", active.Version)
	}
}

func TestRetrainNamedLock(t *testing.T) {
	reg := newServing(t)

	// Simulate an in-flight round by holding the lock.
	reg.retrainMu.Lock()
	defer reg.retrainMu.Unlock()

	err := reg.Retrain(context.Background(), allPositionBlobs(48), RetrainRequest{Version: "2.0.0"})
	if !core.IsUnavailable(err) {
		t.Fatalf("expected UNAVAILABLE while a round is in progress, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "already in progress") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRetrainTimeout(t *testing.T) {
	reg := newServing(t)

	// slowBlobClient blocks until the round context expires.
	err := reg.Retrain(context.Background(), slowBlobClient{}, RetrainRequest{
		Version: "1.0.0",
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("retrain must fail when the round times out")
	}
	for _, pos := range core.Positions {
		if _, aerr := reg.Active(pos); !core.IsVersionNotFound(aerr) {
			t.Fatalf("no model should have been activated for %s, got %v", pos, aerr)
		}
	}
}

type slowBlobClient struct{}

func (slowBlobClient) Name() string { return "slow" }

func (slowBlobClient) Fetch(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPredictAfterRetrain(t *testing.T) {
	reg := newServing(t)
	ctx := context.Background()

	if err := reg.Retrain(ctx, allPositionBlobs(48), RetrainRequest{Version: "1.0.0"}); err != nil {
		t.Fatalf("retrain: %v", err)
	}

	records := []core.Record{{
		"position":        "QB",
		"height_inches":   75.0,
		"weight_lbs":      210.0,
		"state":           "TX",
		"senior_ypg":      320.0,
		"junior_ypg":      260.0,
		"forty_yard_dash": 4.55,
		"vertical_jump":   33.0,
	}}
	predictions, err := reg.Predict(ctx, "qb", records)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(predictions) != 1 {
		t.Fatalf("got %d predictions", len(predictions))
	}

	p := predictions[0]
	if p.ModelVersion != "1.0.0" {
		t.Fatalf("model version = %s", p.ModelVersion)
	}
	if p.PredictedClass < 0 || p.PredictedClass >= core.NumClasses {
		t.Fatalf("predicted class = %d", p.PredictedClass)
	}
	if core.ClassName(p.PredictedClass) != p.PredictedDivision {
		t.Fatalf("division %q does not match class %d", p.PredictedDivision, p.PredictedClass)
	}
	var total float64
	for _, prob := range p.Probabilities {
		total += prob
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("probabilities sum to %f", total)
	}
	if p.RuleScore < 0 || p.RuleScore > 100 {
		t.Fatalf("rule score = %f", p.RuleScore)
	}
	if p.RuleTier == "" {
		t.Fatal("rule tier missing")
	}
}

func TestPredictInfersPositionFromRecords(t *testing.T) {
	reg := newServing(t)
	ctx := context.Background()

	if err := reg.Retrain(ctx, allPositionBlobs(48), RetrainRequest{Version: "1.0.0"}); err != nil {
		t.Fatalf("retrain: %v", err)
	}

	qb := core.Record{
		"position":        "QB",
		"height_inches":   75.0,
		"weight_lbs":      212.0,
		"state":           "TX",
		"senior_ypg":      300.0,
		"junior_ypg":      240.0,
		"forty_yard_dash": 4.6,
	}
	wr := core.Record{
		"position":        "WR",
		"height_inches":   73.0,
		"weight_lbs":      192.0,
		"state":           "FL",
		"senior_ypg":      110.0,
		"junior_ypg":      85.0,
		"forty_yard_dash": 4.45,
	}

	// Mixed batch routed per record, output in input order.
	preds, err := reg.Predict(ctx, "", []core.Record{qb, wr})
	if err != nil {
		t.Fatalf("predict inferred: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions", len(preds))
	}

	// Each record must land on the same model as an explicit call.
	explicit, err := reg.Predict(ctx, "qb", []core.Record{qb})
	if err != nil {
		t.Fatalf("predict explicit: %v", err)
	}
	if preds[0].PredictedClass != explicit[0].PredictedClass || preds[0].RuleScore != explicit[0].RuleScore {
		t.Fatalf("inferred qb prediction differs: %+v vs %+v", preds[0], explicit[0])
	}

	// A record without a position cannot be routed.
	_, err = reg.Predict(ctx, "", []core.Record{{"height_inches": 72.0}})
	if !core.IsDataValidation(err) {
		t.Fatalf("expected DATA_VALIDATION for missing position, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	reg := newServing(t)
	ctx := context.Background()

	status, err := reg.Describe(ctx, "qb")
	if err != nil {
		t.Fatalf("describe empty: %v", err)
	}
	if status.Loaded || status.ActiveVersion != "" || len(status.Available) != 0 {
		t.Fatalf("status = %+v, want unloaded", status)
	}

	if err := reg.Retrain(ctx, allPositionBlobs(48), RetrainRequest{Version: "1.0.0"}); err != nil {
		t.Fatalf("retrain: %v", err)
	}

	status, err = reg.Describe(ctx, "qb")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !status.Loaded || status.ActiveVersion != "1.0.0" {
		t.Fatalf("status = %+v", status)
	}
	if len(status.Available) != 1 || status.Available[0].Version != "1.0.0" {
		t.Fatalf("available = %+v", status.Available)
	}
	if status.Metadata == nil || status.Metadata.TrainingSamples != 48 {
		t.Fatalf("metadata = %+v", status.Metadata)
	}
}

func TestRollbackSwitchesActive(t *testing.T) {
	reg := newServing(t)
	ctx := context.Background()

	if err := reg.Retrain(ctx, allPositionBlobs(48), RetrainRequest{Version: "1.0.0"}); err != nil {
		t.Fatalf("retrain 1.0.0: %v", err)
	}
	if err := reg.Retrain(ctx, allPositionBlobs(52), RetrainRequest{Version: "1.1.0"}); err != nil {
		t.Fatalf("retrain 1.1.0: %v", err)
	}

	if err := reg.Rollback(ctx, "qb", "1.0.0"); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	artifact, err := reg.Active("qb")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if artifact.Version != "1.0.0" {
		t.Fatalf("after rollback active = v%s, want v1.0.0", artifact.Version)
	}

	// Other positions stay on the newer version.
	rb, err := reg.Active("rb")
	if err != nil {
		t.Fatalf("active rb: %v", err)
	}
	if rb.Version != "1.1.0" {
		t.Fatalf("rb = v%s, want v1.1.0", rb.Version)
	}
}
