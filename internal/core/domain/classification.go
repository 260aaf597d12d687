package domain

type IntentType string

const (
	IntentCatalogBrowse      IntentType = "catalog_browse"
	IntentBookRecommendation IntentType = "book_recommendation"
	IntentTopicBookList      IntentType = "topic_book_list"
	IntentSpecificSearch     IntentType = "specific_search"
	IntentHRScenario         IntentType = "hr_scenario"
	IntentAdviceRestricted   IntentType = "advice_restricted"
	IntentAdviceGeneral      IntentType = "advice_general"
	IntentDirectQuestion     IntentType = "direct_question"
	IntentHybrid             IntentType = "hybrid"
)

type ReferenceType string

const (
	ReferenceAnother  ReferenceType = "another"
	ReferenceSimilar  ReferenceType = "similar"
	ReferenceMore     ReferenceType = "more"
	ReferenceContinue ReferenceType = "continue"
)

// Constraints are soft filters pulled out of the user message. A zero
// ResultCount means "use the intent-type default".
type Constraints struct {
	RestrictToCorpusOnly bool       `json:"restrict_to_corpus_only"`
	TopicFilter          string     `json:"topic_filter,omitempty"`
	DifficultyFilter     Difficulty `json:"difficulty_filter,omitempty"`
	ResultCount          int        `json:"result_count,omitempty"`
}

// ContextualInfo is derived once from the last assistant turn and never
// mutated afterward.
type ContextualInfo struct {
	IsFollowUp    bool          `json:"is_follow_up"`
	PreviousTopic string        `json:"previous_topic,omitempty"`
	ReferenceType ReferenceType `json:"reference_type,omitempty"`
}

// QueryClassification is created once per request and flows through the rest
// of the pipeline as a read-only directive.
type QueryClassification struct {
	Type        IntentType     `json:"type"`
	Confidence  float64        `json:"confidence"`
	Reasoning   string         `json:"reasoning"`
	Constraints Constraints    `json:"constraints"`
	Contextual  ContextualInfo `json:"contextual"`
}
