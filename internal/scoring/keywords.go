package scoring

// Keyword sets are the scoring contract: plain data, matched as lowercase
// substrings against the trainee's side of the transcript only. Changing a
// list changes the advertised scoring behavior, so keep them versioned here
// rather than inlining them in the evaluator.

// keywordSetVersion identifies the shipped keyword lists.
const keywordSetVersion = "2024-06"

// rudePhrases trigger the rudeness gate. Any hit forces the professionalism
// and empathy sub-scores to their penalty floor and skips positive scanning.
var rudePhrases = []string{
	"shut up",
	"whatever",
	"idiot",
	"stupid",
	"useless",
	"can't you understand",
	"are you deaf",
	"hurry up",
	"just do it",
}

// empathyPhrases raise the empathy sub-score.
var empathyPhrases = []string{
	"i understand",
	"i see",
	"i can imagine",
	"i apologize",
	"you're right",
	"i know this is frustrating",
}

// resolutionPhrases raise the problem-resolution sub-score.
var resolutionPhrases = []string{
	"let me check",
	"i can help with that",
	"what i can do is",
	"we can resolve this",
	"let's fix this",
}

// clarityPhrases raise the communication sub-score.
var clarityPhrases = []string{
	"to clarify",
	"just to confirm",
	"let me explain",
	"in other words",
}

// courtesyPhrases raise the professionalism sub-score.
var courtesyPhrases = []string{
	"thank you for your patience",
	"i appreciate you",
	"certainly",
	"absolutely",
}
