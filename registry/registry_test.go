package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/feature"
	"github.com/rushteam/scoutkit/model"
	"github.com/rushteam/scoutkit/store"
)

func trainingRecords(n int) []core.Record {
	divisions := []string{"Power5", "FCS", "D2", "D3"}
	records := make([]core.Record, n)
	for i := 0; i < n; i++ {
		records[i] = core.Record{
			"position":        "QB",
			"height_inches":   71.0 + float64(i%6),
			"weight_lbs":      190.0 + float64(i%40),
			"state":           "TX",
			"division":        divisions[i%4],
			"senior_ypg":      150.0 + float64(i)*4,
			"junior_ypg":      120.0 + float64(i)*3,
			"forty_yard_dash": 4.5 + float64(i%10)*0.05,
		}
	}
	return records
}

func buildArtifact(t *testing.T, version string) *Artifact {
	t.Helper()
	records := trainingRecords(40)

	pre := feature.NewPreprocessor("qb")
	if err := pre.Fit(records); err != nil {
		t.Fatalf("fit: %v", err)
	}
	matrix, err := pre.Transform(records)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	labels := make([]int, len(records))
	for i := range labels {
		labels[i], _ = core.DivisionClass(records[i]["division"].(string))
	}

	classifier := model.NewCentroidClassifier()
	if err := classifier.Fit(context.Background(), matrix, labels); err != nil {
		t.Fatalf("classifier fit: %v", err)
	}

	return &Artifact{
		Position:     "qb",
		Version:      version,
		Preprocessor: pre,
		Classifier:   classifier,
	}
}

func TestRegistrySaveLoadRoundTrip(t *testing.T) {
	reg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	artifact := buildArtifact(t, "1.0.0")

	if err := reg.Save(ctx, artifact, &Metadata{TrainingSamples: 40}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := reg.Load(ctx, "qb", "1.0.0")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Version != "1.0.0" || loaded.Position != "qb" {
		t.Fatalf("loaded %+v", loaded)
	}
	if !loaded.Preprocessor.Fitted() {
		t.Fatal("restored preprocessor must be fitted")
	}
	if loaded.Classifier.Name() != "centroid" {
		t.Fatalf("classifier = %q", loaded.Classifier.Name())
	}

	// The restored pipeline must produce the same matrix as the original.
	probe := trainingRecords(3)
	m1, err := artifact.Preprocessor.Transform(probe)
	if err != nil {
		t.Fatalf("transform original: %v", err)
	}
	m2, err := loaded.Preprocessor.Transform(probe)
	if err != nil {
		t.Fatalf("transform restored: %v", err)
	}
	for i := range m1.Rows {
		for j := range m1.Rows[i] {
			if m1.Rows[i][j] != m2.Rows[i][j] {
				t.Fatalf("restored transform differs at (%d,%d)", i, j)
			}
		}
	}
}

func TestRegistryLatestPointer(t *testing.T) {
	reg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := reg.Save(ctx, buildArtifact(t, "1.0.0"), nil); err != nil {
		t.Fatalf("save 1.0.0: %v", err)
	}
	if err := reg.Save(ctx, buildArtifact(t, "1.1.0"), nil); err != nil {
		t.Fatalf("save 1.1.0: %v", err)
	}

	latest, err := reg.LoadLatest(ctx, "qb")
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if latest.Version != "1.1.0" {
		t.Fatalf("latest = %s, want 1.1.0", latest.Version)
	}

	// Load with empty version resolves through the latest pointer too.
	viaEmpty, err := reg.Load(ctx, "qb", "")
	if err != nil {
		t.Fatalf("load empty version: %v", err)
	}
	if viaEmpty.Version != "1.1.0" {
		t.Fatalf("empty version = %s, want 1.1.0", viaEmpty.Version)
	}
}

func TestRegistryDuplicateVersionRejected(t *testing.T) {
	reg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := reg.Save(ctx, buildArtifact(t, "1.0.0"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	err = reg.Save(ctx, buildArtifact(t, "1.0.0"), nil)
	if err == nil {
		t.Fatal("duplicate save must fail")
	}
	if !core.IsVersionExists(err) {
		t.Fatalf("expected VERSION_EXISTS, got %v", err)
	}
}

func TestRegistryInvalidVersionRejected(t *testing.T) {
	reg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = reg.Save(context.Background(), buildArtifact(t, "not-semver"), nil)
	if err == nil {
		t.Fatal("invalid version must fail")
	}
	if !core.IsVersionInvalid(err) {
		t.Fatalf("expected VERSION_INVALID, got %v", err)
	}
}

func TestRegistryMissingVersionListsAvailable(t *testing.T) {
	reg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := reg.Save(ctx, buildArtifact(t, "1.0.0"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err = reg.Load(ctx, "qb", "9.9.9")
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if !core.IsVersionNotFound(err) {
		t.Fatalf("expected VERSION_NOT_FOUND, got %v", err)
	}
	if !strings.Contains(err.Error(), "1.0.0") {
		t.Fatalf("error should list available versions: %v", err)
	}
}

func TestRegistryVersionsSorted(t *testing.T) {
	reg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, v := range []string{"1.0.0", "1.10.0", "1.2.0"} {
		if err := reg.Save(ctx, buildArtifact(t, v), nil); err != nil {
			t.Fatalf("save %s: %v", v, err)
		}
	}

	infos, err := reg.Versions("qb")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	want := []string{"1.10.0", "1.2.0", "1.0.0"}
	if len(infos) != len(want) {
		t.Fatalf("got %d versions", len(infos))
	}
	for i, info := range infos {
		if info.Version != want[i] {
			t.Fatalf("versions[%d] = %s, want %s", i, info.Version, want[i])
		}
		if info.FileSize <= 0 {
			t.Fatalf("versions[%d] missing file size", i)
		}
	}
}

func TestRegistryRollback(t *testing.T) {
	dir := t.TempDir()
	reg, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := reg.Save(ctx, buildArtifact(t, "1.0.0"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := reg.Save(ctx, buildArtifact(t, "1.1.0"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := reg.Rollback("qb", "1.0.0"); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	latest, err := reg.LoadLatest(ctx, "qb")
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if latest.Version != "1.0.0" {
		t.Fatalf("after rollback latest = %s, want 1.0.0", latest.Version)
	}

	// Both artifacts remain on disk untouched.
	if _, err := os.Stat(filepath.Join(dir, "scoutkit_qb_pipeline_v1.1.0.model.json")); err != nil {
		t.Fatalf("1.1.0 artifact must survive rollback: %v", err)
	}

	if err := reg.Rollback("qb", "3.0.0"); !core.IsVersionNotFound(err) {
		t.Fatalf("rollback to missing version: %v", err)
	}
}

func TestRegistryMirrorKeepsMetadataAndVersionTimeline(t *testing.T) {
	mirror := store.NewMemoryStore()
	defer mirror.Close()

	reg, err := New(t.TempDir(), WithMirror(mirror))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := reg.Save(ctx, buildArtifact(t, "1.0.0"), &Metadata{TrainingSamples: 40}); err != nil {
		t.Fatalf("save 1.0.0: %v", err)
	}
	if err := reg.Save(ctx, buildArtifact(t, "1.1.0"), &Metadata{TrainingSamples: 55}); err != nil {
		t.Fatalf("save 1.1.0: %v", err)
	}

	// Per-position metadata hash, one field per version.
	raw, err := mirror.HGet(ctx, "scoutkit:models:qb:metadata", "1.1.0")
	if err != nil {
		t.Fatalf("mirror hget: %v", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("mirror metadata decode: %v", err)
	}
	if meta.ModelVersion != "1.1.0" || meta.TrainingSamples != 55 {
		t.Fatalf("mirror metadata = %+v", meta)
	}

	// Version timeline tracks every saved version.
	timeline, err := mirror.ZRange(ctx, "scoutkit:models:qb:versions", 0, -1)
	if err != nil {
		t.Fatalf("mirror zrange: %v", err)
	}
	seen := make(map[string]bool, len(timeline))
	for _, v := range timeline {
		seen[v] = true
	}
	if !seen["1.0.0"] || !seen["1.1.0"] {
		t.Fatalf("timeline = %v, want both saved versions", timeline)
	}

	// Local metadata loss falls back to the mirror hash.
	if err := os.Remove(reg.metadataPath("qb", "1.0.0")); err != nil {
		t.Fatalf("remove local metadata: %v", err)
	}
	restored, err := reg.LoadMetadata(ctx, "qb", "1.0.0")
	if err != nil {
		t.Fatalf("load metadata via mirror: %v", err)
	}
	if restored.ModelVersion != "1.0.0" || restored.TrainingSamples != 40 {
		t.Fatalf("restored metadata = %+v", restored)
	}
}

func TestChangelogNewestFirst(t *testing.T) {
	dir := t.TempDir()
	reg, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := reg.Save(ctx, buildArtifact(t, "1.0.0"), &Metadata{
		ChangelogEntry: []string{"Initial release"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := reg.Save(ctx, buildArtifact(t, "1.1.0"), &Metadata{
		ChangelogEntry: []string{"Added percentile features"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "CHANGELOG_qb.md"))
	if err != nil {
		t.Fatalf("read changelog: %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, "# ScoutKit QB Model Changelog") {
		t.Fatalf("missing header:\n%s", text)
	}
	i110 := strings.Index(text, "## [1.1.0]")
	i100 := strings.Index(text, "## [1.0.0]")
	if i110 < 0 || i100 < 0 {
		t.Fatalf("missing entries:\n%s", text)
	}
	if i110 > i100 {
		t.Fatal("newest entry must come first")
	}
	if !strings.Contains(text, "- Initial release") || !strings.Contains(text, "- Added percentile features") {
		t.Fatalf("missing change bullets:\n%s", text)
	}
}
