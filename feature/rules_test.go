package feature

import (
	"testing"

	"github.com/rushteam/scoutkit/core"
)

// ruleFrame runs the full engineering path on raw records so the scorer
// sees the same working set it does in production.
func ruleFrame(t *testing.T, records []core.Record, position string, rules []BonusRule) *Frame {
	t.Helper()
	cfg := DefaultConfig()
	f := NewFrame(records)
	if err := validateFrame(f, position); err != nil {
		t.Fatalf("validate: %v", err)
	}
	engineerFrame(f, position, &cfg)
	computeRuleScores(f, position, rules)
	return f
}

func TestAssignTierPower5QB(t *testing.T) {
	elite := core.Record{
		"position":        "QB",
		"height_inches":   75.0,
		"weight_lbs":      215.0,
		"senior_ypg":      265.0,
		"forty_yard_dash": 4.65,
		"vertical_jump":   32.0,
		"shuttle":         4.4,
		"broad_jump":      110.0,
	}
	f := ruleFrame(t, []core.Record{elite}, "qb", nil)

	tiers := f.Str("rule_score_tier")
	if tiers[0] != "Power 5" {
		t.Fatalf("tier = %q, want Power 5", tiers[0])
	}
	if score := f.ValueOr(0, "rule_score", -1); score < 54 {
		// base 90 contributes 54 before sub-scores and bonuses
		t.Fatalf("rule_score = %v, want >= 54", score)
	}
}

func TestAssignTierFallback(t *testing.T) {
	marginal := core.Record{
		"position":        "QB",
		"height_inches":   68.0,
		"weight_lbs":      160.0,
		"senior_ypg":      40.0,
		"forty_yard_dash": 5.4,
		"vertical_jump":   20.0,
		"shuttle":         5.2,
		"broad_jump":      70.0,
	}
	f := ruleFrame(t, []core.Record{marginal}, "qb", nil)

	tiers := f.Str("rule_score_tier")
	if tiers[0] != "D3/NAIA" {
		t.Fatalf("tier = %q, want D3/NAIA", tiers[0])
	}
}

func TestRuleScoreClamped(t *testing.T) {
	records := qbRecords(35)
	f := ruleFrame(t, records, "qb", nil)
	for i := 0; i < f.Rows(); i++ {
		score := f.ValueOr(i, "rule_score", -1)
		if score < 0 || score > 100 {
			t.Fatalf("row %d: rule_score %v out of [0,100]", i, score)
		}
	}
}

func TestSpeedBonus(t *testing.T) {
	base := core.Record{
		"position":      "RB",
		"height_inches": 70.0,
		"weight_lbs":    200.0,
		"senior_yds":    1200.0,
		"games":         12.0,
	}
	slow := base.Clone()
	slow["forty_yard_dash"] = 4.8
	fast := base.Clone()
	fast["forty_yard_dash"] = 4.4 // under the 4.5 RB threshold: +10 bonus

	f := ruleFrame(t, []core.Record{slow, fast}, "rb", nil)
	slowScore := f.ValueOr(0, "rule_score", 0)
	fastScore := f.ValueOr(1, "rule_score", 0)
	if fastScore <= slowScore {
		t.Fatalf("fast RB should outscore slow RB: %v vs %v", fastScore, slowScore)
	}
}

func TestStrongStateBonus(t *testing.T) {
	base := core.Record{
		"position":      "WR",
		"height_inches": 72.0,
		"weight_lbs":    185.0,
		"senior_rec":    50.0,
		"senior_rec_yds": 800.0,
	}
	texan := base.Clone()
	texan["state"] = "TX"
	montanan := base.Clone()
	montanan["state"] = "MT"

	// Score separately so group percentiles are identical for both.
	fTX := ruleFrame(t, []core.Record{texan}, "wr", nil)
	fMT := ruleFrame(t, []core.Record{montanan}, "wr", nil)

	if fTX.ValueOr(0, "is_strong_state", 0) != 1 {
		t.Fatal("TX should be a strong state")
	}
	if fMT.ValueOr(0, "is_strong_state", 0) != 0 {
		t.Fatal("MT should not be a strong state")
	}
	if fTX.ValueOr(0, "rule_score", 0) <= fMT.ValueOr(0, "rule_score", 0) {
		t.Fatalf("strong-state WR should outscore: %v vs %v",
			fTX.ValueOr(0, "rule_score", 0), fMT.ValueOr(0, "rule_score", 0))
	}
}

func TestBonusRulesCEL(t *testing.T) {
	rec := core.Record{
		"position":      "QB",
		"height_inches": 75.0,
		"weight_lbs":    210.0,
		"senior_ypg":    240.0,
	}
	rules := []BonusRule{
		{Name: "volume-passer", Expr: `row["senior_ypg"] > 200.0 && position == "qb"`, Points: 8},
		{Name: "broken", Expr: `this is not CEL`, Points: 50}, // must be skipped, not fatal
	}

	fWith := ruleFrame(t, []core.Record{rec}, "qb", rules)
	fWithout := ruleFrame(t, []core.Record{rec}, "qb", nil)

	with := fWith.ValueOr(0, "rule_score", 0)
	without := fWithout.ValueOr(0, "rule_score", 0)
	if with <= without {
		t.Fatalf("CEL bonus should raise the score: %v vs %v", with, without)
	}
}

func TestBenchmarkRangeFallbacks(t *testing.T) {
	tests := []struct {
		position string
		division string
		metric   string
	}{
		{"qb", "Power5", "forty_yard_dash"},
		{"rb", "FCS", "vertical_jump"},
		{"wr", "D2", "shuttle"},
		{"qb", "UNKNOWN_DIVISION", "broad_jump"}, // falls back to D3
		{"kicker", "D3", "forty_yard_dash"},      // falls back to qb
	}
	for _, tt := range tests {
		r := BenchmarkRange(tt.position, tt.division, tt.metric)
		if r.Min <= 0 || r.Max <= r.Min {
			t.Fatalf("%s/%s/%s: invalid range %+v", tt.position, tt.division, tt.metric, r)
		}
	}
}
