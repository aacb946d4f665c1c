// Package scoring converts a conversation transcript into a reproducible
// multi-dimensional evaluation. It is a deliberately transparent heuristic:
// lowercase substring matching against fixed keyword sets, no model calls,
// no randomness. Identical transcripts always produce identical results.
package scoring

import (
	"fmt"
	"strings"

	"github.com/repcoach/repcoach/internal/domain"
)

const (
	// neutralFloor is the per-dimension score with no signal either way.
	neutralFloor = 20
	// dimensionCap is the per-dimension maximum.
	dimensionCap = 25
	// keywordBonus is added to a dimension when its keyword set matches.
	keywordBonus = 5
	// rudePenaltyScore replaces empathy and professionalism when the
	// rudeness gate fires.
	rudePenaltyScore = 5
)

// Evaluate scores one conversation. personaLabel is the display name of the
// customer the trainee was handling; it only appears in generated prose.
//
// Only trainee messages are analyzed. Persona messages, breadcrumbs, and
// hidden items never feed the keyword checks. An empty transcript takes the
// neutral path: every dimension stays at its floor of 20, which sums to a
// passing 80. That boundary is part of the scoring contract.
func Evaluate(items []domain.TranscriptItem, personaLabel string) domain.EvaluationResult {
	traineeMessages := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != domain.ItemTypeMessage || item.Hidden {
			continue
		}
		if item.Role == domain.RoleTrainee {
			traineeMessages = append(traineeMessages, item.Title)
		}
	}

	corpus := strings.ToLower(strings.Join(traineeMessages, " "))

	problemResolution := neutralFloor
	empathy := neutralFloor
	communication := neutralFloor
	professionalism := neutralFloor

	var strengths, improvements, examples, recommendations []string

	rudePhrase := firstMatch(corpus, rudePhrases)
	isRude := rudePhrase != ""

	if isRude {
		professionalism = rudePenaltyScore
		empathy = rudePenaltyScore
		if offending := findMessage(traineeMessages, rudePhrase); offending != "" {
			examples = append(examples, fmt.Sprintf("%q - This phrase is unprofessional and dismissive.", offending))
		}
		improvements = append(improvements, "Maintained an unprofessional and rude tone with the customer.")
		recommendations = append(recommendations, "Focus on maintaining a professional demeanor, even with difficult customers. Avoid dismissive or insulting language.")
	} else {
		if matchesAny(corpus, empathyPhrases) {
			empathy = capped(empathy + keywordBonus)
			strengths = append(strengths, "Showed empathy and acknowledged the customer's feelings effectively.")
		} else {
			improvements = append(improvements, "Could have used more explicit empathy statements to build rapport.")
			recommendations = append(recommendations, "Try using phrases like 'I understand' or 'I can see why you'd feel that way.'")
		}

		if matchesAny(corpus, resolutionPhrases) {
			problemResolution = capped(problemResolution + keywordBonus)
			strengths = append(strengths, "Took ownership and actively worked towards a solution.")
		} else {
			improvements = append(improvements, "Could be more proactive in offering a path to resolution.")
			recommendations = append(recommendations, "Lead the conversation with phrases like 'Here's what I can do for you.'")
		}

		if matchesAny(corpus, clarityPhrases) {
			communication = capped(communication + keywordBonus)
			strengths = append(strengths, "Used clear language to explain the situation and confirm details.")
		} else {
			improvements = append(improvements, "Could have confirmed details more explicitly to avoid misunderstandings.")
			recommendations = append(recommendations, "Summarize and confirm with phrases like 'Just to confirm' or 'To clarify.'")
		}

		if matchesAny(corpus, courtesyPhrases) {
			professionalism = capped(professionalism + keywordBonus)
			strengths = append(strengths, "Maintained a positive and professional tone throughout the call.")
		} else {
			improvements = append(improvements, "Could have used more courteous language to reinforce a professional tone.")
			recommendations = append(recommendations, "Acknowledge the customer with phrases like 'Thank you for your patience.'")
		}
	}

	if len(strengths) == 0 && !isRude {
		strengths = append(strengths, "Handled the call with a neutral and standard approach.")
	}
	if len(improvements) == 0 && !isRude {
		improvements = append(improvements, "No major areas for improvement noted in this interaction.")
	}

	overall := problemResolution + empathy + communication + professionalism
	passed := overall >= domain.PassThreshold

	var assessment string
	switch {
	case isRude:
		assessment = "The interaction was unprofessional. The primary area for improvement is to avoid rude and dismissive language and focus on maintaining a professional demeanor, regardless of the situation."
	case passed:
		assessment = fmt.Sprintf("Excellent work! You handled the %s customer with great skill, scoring %d/100. You showed strong professionalism and worked effectively towards a resolution.", strings.ToLower(personaLabel), overall)
	default:
		assessment = fmt.Sprintf("A good effort, but there are areas for improvement. You scored %d/100. Review the recommendations to see how you can improve your approach for this customer type.", overall)
	}

	return domain.EvaluationResult{
		OverallScore:           overall,
		ProblemResolutionScore: problemResolution,
		EmpathyScore:           empathy,
		CommunicationScore:     communication,
		ProfessionalismScore:   professionalism,
		Strengths:              strengths,
		AreasForImprovement:    improvements,
		SpecificExamples:       examples,
		Recommendations:        recommendations,
		OverallAssessment:      assessment,
		Passed:                 passed,
	}
}

// KeywordSetVersion reports the version of the shipped keyword lists.
func KeywordSetVersion() string {
	return keywordSetVersion
}

func capped(score int) int {
	if score > dimensionCap {
		return dimensionCap
	}
	return score
}

func matchesAny(corpus string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(corpus, phrase) {
			return true
		}
	}
	return false
}

// firstMatch returns the first phrase, in list order, found in the corpus.
func firstMatch(corpus string, phrases []string) string {
	for _, phrase := range phrases {
		if strings.Contains(corpus, phrase) {
			return phrase
		}
	}
	return ""
}

// findMessage returns the first message containing the phrase, preserving
// its original casing for quoting in the report.
func findMessage(messages []string, phrase string) string {
	for _, msg := range messages {
		if strings.Contains(strings.ToLower(msg), phrase) {
			return msg
		}
	}
	return ""
}
