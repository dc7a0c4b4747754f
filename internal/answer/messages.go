package answer

// Fixed user-facing messages. Wording is policy; callers distinguish refusals by
// Result.RefusalReason, not by text.
const (
	MessageNonLegal       = "This question does not appear to be about Indian statutory law, so no legal answer can be provided."
	MessageUnderspecified = "Please rephrase the question with the specific offence, act, or section you are asking about."
	MessageNoLawFound     = "No applicable legal provision was found in the indexed statutes for this question."
	MessageModelEmpty     = "The relevant provisions were found, but an answer could not be generated. Please review the cited sections below."
)
