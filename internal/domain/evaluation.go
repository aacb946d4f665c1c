package domain

// PassThreshold is the minimum overall score required to pass a conversation.
const PassThreshold = 80

// EvaluationResult is the scored assessment of one completed conversation.
// It is derived from a transcript snapshot and never mutated after creation.
type EvaluationResult struct {
	OverallScore           int      `json:"overall_score"`
	ProblemResolutionScore int      `json:"problem_resolution_score"`
	EmpathyScore           int      `json:"empathy_score"`
	CommunicationScore     int      `json:"communication_score"`
	ProfessionalismScore   int      `json:"professionalism_score"`
	Strengths              []string `json:"strengths"`
	AreasForImprovement    []string `json:"areas_for_improvement"`
	SpecificExamples       []string `json:"specific_examples"`
	Recommendations        []string `json:"recommendations"`
	OverallAssessment      string   `json:"overall_assessment"`
	Passed                 bool     `json:"passed"`
}
