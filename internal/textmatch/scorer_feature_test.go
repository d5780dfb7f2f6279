package textmatch

import (
	"fmt"
	"testing"

	"github.com/cucumber/godog"
)

type scorerFeature struct {
	scorer     *Scorer
	score      float64
	remembered float64
}

func (f *scorerFeature) phoneticMatchingIs(state string) error {
	f.scorer = NewScorer(ScorerConfig{
		PhoneticEnabled: state == "enabled",
		PhoneticWeight:  DefaultPhoneticWeight,
	})
	return nil
}

func (f *scorerFeature) iScoreAgainst(query, candidate string) error {
	f.score = f.scorer.Score(query, candidate)
	return nil
}

func (f *scorerFeature) iRememberTheScore() error {
	f.remembered = f.score
	return nil
}

func (f *scorerFeature) theScoreIs(want float64) error {
	if f.score != want {
		return fmt.Errorf("expected score %v, got %v", want, f.score)
	}
	return nil
}

func (f *scorerFeature) theScoreIsBetween(lo, hi float64) error {
	if f.score <= lo || f.score >= hi {
		return fmt.Errorf("expected score in (%v, %v), got %v", lo, hi, f.score)
	}
	return nil
}

func (f *scorerFeature) theScoreIsGreaterThan(lo float64) error {
	if f.score <= lo {
		return fmt.Errorf("expected score > %v, got %v", lo, f.score)
	}
	return nil
}

func (f *scorerFeature) theScoreIsLessThan(hi float64) error {
	if f.score >= hi {
		return fmt.Errorf("expected score < %v, got %v", hi, f.score)
	}
	return nil
}

func (f *scorerFeature) theScoreIsGreaterThanRemembered() error {
	return f.theScoreIsGreaterThan(f.remembered)
}

func initializeScorerScenario(ctx *godog.ScenarioContext) {
	f := &scorerFeature{scorer: NewScorer(ScorerConfig{})}

	ctx.Step(`^phonetic matching is (enabled|disabled)$`, f.phoneticMatchingIs)
	ctx.Step(`^I score "([^"]*)" against "([^"]*)"$`, f.iScoreAgainst)
	ctx.Step(`^I remember the score$`, f.iRememberTheScore)
	ctx.Step(`^the score is (\d+(?:\.\d+)?)$`, f.theScoreIs)
	ctx.Step(`^the score is between (\d+) and (\d+) exclusive$`, f.theScoreIsBetween)
	ctx.Step(`^the score is greater than (\d+)$`, f.theScoreIsGreaterThan)
	ctx.Step(`^the score is less than (\d+)$`, f.theScoreIsLessThan)
	ctx.Step(`^the score is greater than the remembered score$`, f.theScoreIsGreaterThanRemembered)
}

func TestScorerFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "scorer",
		ScenarioInitializer: initializeScorerScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run scorer feature tests")
	}
}
