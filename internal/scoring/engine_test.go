package scoring

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/repcoach/repcoach/internal/domain"
)

func traineeMessage(text string) domain.TranscriptItem {
	return domain.TranscriptItem{
		ItemID:    "trainee-item",
		Type:      domain.ItemTypeMessage,
		Role:      domain.RoleTrainee,
		Title:     text,
		CreatedAt: time.Unix(1700000000, 0),
	}
}

func personaMessage(text string) domain.TranscriptItem {
	return domain.TranscriptItem{
		ItemID:    "persona-item",
		Type:      domain.ItemTypeMessage,
		Role:      domain.RolePersona,
		Title:     text,
		CreatedAt: time.Unix(1700000001, 0),
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	t.Parallel()

	items := []domain.TranscriptItem{
		traineeMessage("I understand this is frustrating, let me check what I can do"),
		personaMessage("Well it took you long enough."),
		traineeMessage("Absolutely, just to confirm your policy number?"),
	}

	first := Evaluate(items, "Auto Claim")
	second := Evaluate(items, "Auto Claim")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results for identical transcripts:\n%+v\n%+v", first, second)
	}
}

func TestEmpathyAndResolutionScenario(t *testing.T) {
	t.Parallel()

	items := []domain.TranscriptItem{
		traineeMessage("I understand this is frustrating, let me check what I can do"),
	}
	result := Evaluate(items, "Auto Claim")

	if result.EmpathyScore != 25 {
		t.Errorf("empathy = %d, want 25", result.EmpathyScore)
	}
	if result.ProblemResolutionScore != 25 {
		t.Errorf("problem resolution = %d, want 25", result.ProblemResolutionScore)
	}
	if result.CommunicationScore != 20 || result.ProfessionalismScore != 20 {
		t.Errorf("communication/professionalism = %d/%d, want 20/20",
			result.CommunicationScore, result.ProfessionalismScore)
	}
	if result.OverallScore != 90 {
		t.Errorf("overall = %d, want 90", result.OverallScore)
	}
	if !result.Passed {
		t.Error("expected a 90 to pass")
	}
}

func TestRudenessGate(t *testing.T) {
	t.Parallel()

	items := []domain.TranscriptItem{
		traineeMessage("whatever, just calm down"),
	}
	result := Evaluate(items, "House Fire")

	if result.ProfessionalismScore != 5 {
		t.Errorf("professionalism = %d, want 5", result.ProfessionalismScore)
	}
	if result.EmpathyScore != 5 {
		t.Errorf("empathy = %d, want 5", result.EmpathyScore)
	}
	if result.OverallScore != 50 {
		t.Errorf("overall = %d, want 50", result.OverallScore)
	}
	if result.Passed {
		t.Error("rude transcript must not pass")
	}
	if len(result.SpecificExamples) == 0 || !strings.Contains(result.SpecificExamples[0], "whatever, just calm down") {
		t.Errorf("expected a specific example quoting the offending line, got %v", result.SpecificExamples)
	}
}

func TestRudenessOverridesPositiveKeywords(t *testing.T) {
	t.Parallel()

	// Every positive set hits, but one rude phrase caps the ceiling at 60.
	items := []domain.TranscriptItem{
		traineeMessage("I understand, let me check, just to confirm, absolutely. But seriously, hurry up"),
	}
	result := Evaluate(items, "Windshield Damage")

	if result.OverallScore > 60 {
		t.Errorf("overall = %d, want <= 60 when rudeness gate fires", result.OverallScore)
	}
	if result.EmpathyScore != 5 || result.ProfessionalismScore != 5 {
		t.Errorf("penalty scores = %d/%d, want 5/5", result.EmpathyScore, result.ProfessionalismScore)
	}
	for _, s := range result.Strengths {
		if strings.Contains(s, "empathy") {
			t.Errorf("positive-signal strength recorded on rude path: %q", s)
		}
	}
}

func TestEmptyTranscriptNeutralFloor(t *testing.T) {
	t.Parallel()

	result := Evaluate(nil, "Customer Service")

	for name, score := range map[string]int{
		"problem_resolution": result.ProblemResolutionScore,
		"empathy":            result.EmpathyScore,
		"communication":      result.CommunicationScore,
		"professionalism":    result.ProfessionalismScore,
	} {
		if score != 20 {
			t.Errorf("%s = %d, want neutral floor 20", name, score)
		}
	}
	// Documented boundary: neutral floors sum to a passing 80.
	if result.OverallScore != 80 {
		t.Errorf("overall = %d, want 80", result.OverallScore)
	}
	if !result.Passed {
		t.Error("neutral floor of 80 is a pass by contract")
	}
	if len(result.Strengths) == 0 {
		t.Error("expected fallback strength note")
	}
	if len(result.AreasForImprovement) == 0 {
		t.Error("expected improvement notes")
	}
}

func TestPersonaMessagesAreIgnored(t *testing.T) {
	t.Parallel()

	// The customer is rude and empathetic; the trainee says nothing that
	// matches. None of it may leak into the trainee's score.
	items := []domain.TranscriptItem{
		personaMessage("shut up, you idiot, I understand nothing"),
		traineeMessage("Good afternoon, how may I help?"),
	}
	result := Evaluate(items, "Auto Claim")

	if result.ProfessionalismScore != 20 || result.EmpathyScore != 20 {
		t.Errorf("persona text affected scores: professionalism=%d empathy=%d",
			result.ProfessionalismScore, result.EmpathyScore)
	}
	if result.OverallScore != 80 {
		t.Errorf("overall = %d, want 80", result.OverallScore)
	}
}

func TestHiddenItemsAndBreadcrumbsAreIgnored(t *testing.T) {
	t.Parallel()

	hidden := traineeMessage("whatever, hidden seed message")
	hidden.Hidden = true
	breadcrumb := domain.TranscriptItem{
		ItemID: "bc-1",
		Type:   domain.ItemTypeBreadcrumb,
		Title:  "session.updated whatever",
	}
	result := Evaluate([]domain.TranscriptItem{hidden, breadcrumb}, "Auto Claim")

	if result.OverallScore != 80 {
		t.Errorf("hidden/breadcrumb items leaked into scoring: overall = %d", result.OverallScore)
	}
}

func TestSubScoreBoundsAndSum(t *testing.T) {
	t.Parallel()

	transcripts := [][]domain.TranscriptItem{
		nil,
		{traineeMessage("whatever")},
		{traineeMessage("i understand, let me check, to clarify, certainly, thank you for your patience")},
		{traineeMessage("hello there")},
	}

	for i, items := range transcripts {
		result := Evaluate(items, "Auto Claim")
		for name, score := range map[string]int{
			"problem_resolution": result.ProblemResolutionScore,
			"empathy":            result.EmpathyScore,
			"communication":      result.CommunicationScore,
			"professionalism":    result.ProfessionalismScore,
		} {
			if score < 0 || score > 25 {
				t.Errorf("case %d: %s = %d out of [0,25]", i, name, score)
			}
		}
		sum := result.ProblemResolutionScore + result.EmpathyScore +
			result.CommunicationScore + result.ProfessionalismScore
		if result.OverallScore != sum {
			t.Errorf("case %d: overall %d != sum of sub-scores %d", i, result.OverallScore, sum)
		}
		if result.OverallScore < 0 || result.OverallScore > 100 {
			t.Errorf("case %d: overall %d out of [0,100]", i, result.OverallScore)
		}
	}
}

func TestPassThresholdExactness(t *testing.T) {
	t.Parallel()

	// All four positive sets hit: 25*4 = 100, passes.
	full := Evaluate([]domain.TranscriptItem{
		traineeMessage("i understand. let me check. to clarify. certainly."),
	}, "Auto Claim")
	if full.OverallScore != 100 || !full.Passed {
		t.Errorf("full-marks transcript: overall=%d passed=%v", full.OverallScore, full.Passed)
	}

	// Neutral floor = exactly 80, passes.
	floor := Evaluate(nil, "Auto Claim")
	if floor.OverallScore != 80 || !floor.Passed {
		t.Errorf("floor transcript: overall=%d passed=%v", floor.OverallScore, floor.Passed)
	}

	// Rude path = 50, fails.
	rude := Evaluate([]domain.TranscriptItem{traineeMessage("are you deaf")}, "Auto Claim")
	if rude.OverallScore >= 80 || rude.Passed {
		t.Errorf("rude transcript: overall=%d passed=%v", rude.OverallScore, rude.Passed)
	}
}

func TestAssessmentMentionsScoreAndPersona(t *testing.T) {
	t.Parallel()

	result := Evaluate([]domain.TranscriptItem{
		traineeMessage("i understand, let me check what i can do"),
	}, "Auto Claim")

	if !strings.Contains(result.OverallAssessment, "90/100") {
		t.Errorf("assessment missing numeric score: %q", result.OverallAssessment)
	}
	if !strings.Contains(result.OverallAssessment, "auto claim") {
		t.Errorf("assessment missing persona label: %q", result.OverallAssessment)
	}
}
