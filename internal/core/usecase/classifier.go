package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// Intent confidence constants are calibrated per branch; catalog browsing is
// the most recognizable phrasing and carries the highest confidence.
const (
	confidenceCatalogBrowse   = 0.95
	confidenceRecommendation  = 0.90
	confidenceTopicBookList   = 0.85
	confidenceSpecificSearch  = 0.80
	confidenceHRScenario      = 0.80
	confidenceAdviceRestrict  = 0.75
	confidenceAdviceGeneral   = 0.70
	confidenceDirectQuestion  = 0.70
	confidenceDomainQuestion  = 0.65
	confidenceFallbackGeneral = 0.60
)

var (
	catalogMarkers = []string{
		"list all", "list your", "list the books", "list books",
		"what books do you have", "which books do you have",
		"how many books", "show me your books", "show all books",
		"show your books", "your catalog", "the catalog", "your library",
		"what's in your library", "inventory",
	}
	recommendMarkers = []string{"recommend", "recommendation", "recommendations", "suggest", "suggestion", "suggestions"}
	searchMarkers    = []string{"find", "search", "looking for"}
	hrMarkers        = []string{"hiring", "firing", "fire", "hire", "performance review", "performance", "employee", "employees", "underperforming", "layoff", "layoffs"}
	adviceMarkers    = []string{"advice", "advise", "should i", "how do i", "how should", "what should", "help me", "how can i", "how to"}
	questionMarkers  = []string{"what is", "what are", "explain", "define", "tell me about", "who is"}
	listMarkers      = []string{"give me", "list", "show me", "name"}
)

// classifyInput is the precomputed view of one message a rule predicate
// evaluates against.
type classifyInput struct {
	message     string
	lower       string
	tokens      map[string]struct{}
	constraints domain.Constraints
	contextual  domain.ContextualInfo
}

type intentRule struct {
	match func(in classifyInput) bool
	build func(in classifyInput) domain.QueryClassification
}

// QueryClassifier assigns one intent per message by evaluating an ordered
// rule list; the first matching rule wins and the ordering is load-bearing
// because intents overlap.
type QueryClassifier struct {
	topics    []string
	extractor *ConstraintExtractor
	rules     []intentRule
}

func NewQueryClassifier(topics []string, extractor *ConstraintExtractor) *QueryClassifier {
	c := &QueryClassifier{
		topics:    topics,
		extractor: extractor,
	}
	c.rules = []intentRule{
		{match: matchCatalogBrowse, build: buildFixed(domain.IntentCatalogBrowse, confidenceCatalogBrowse, "browsing/inventory phrasing detected")},
		{match: matchRecommendation, build: buildRecommendation},
		{match: matchTopicBookList, build: buildTopicBookList},
		{match: matchSpecificSearch, build: buildFixed(domain.IntentSpecificSearch, confidenceSpecificSearch, "explicit search phrasing or topical preposition")},
		{match: matchHRScenario, build: buildFixed(domain.IntentHRScenario, confidenceHRScenario, "workforce-management keywords with advice-seeking phrasing")},
		{match: matchAdviceRestricted, build: buildFixed(domain.IntentAdviceRestricted, confidenceAdviceRestrict, "advice phrasing restricted to uploaded material")},
		{match: matchAdviceGeneral, build: buildFixed(domain.IntentAdviceGeneral, confidenceAdviceGeneral, "advice-seeking phrasing")},
		{match: matchDirectQuestion, build: c.buildDirectQuestion},
	}
	return c
}

// Classify never falls through silently: when no rule matches, the fallback
// hybrid classification at confidence 0.60 is returned.
func (c *QueryClassifier) Classify(message string, contextual domain.ContextualInfo) domain.QueryClassification {
	in := classifyInput{
		message:     message,
		lower:       strings.ToLower(message),
		tokens:      toTokenSet(message),
		constraints: c.extractor.Extract(message),
		contextual:  contextual,
	}

	for _, rule := range c.rules {
		if rule.match(in) {
			return rule.build(in)
		}
	}

	return domain.QueryClassification{
		Type:        domain.IntentHybrid,
		Confidence:  confidenceFallbackGeneral,
		Reasoning:   "no clear intent pattern; answering with corpus-assisted general reasoning",
		Constraints: in.constraints,
		Contextual:  in.contextual,
	}
}

func buildFixed(intent domain.IntentType, confidence float64, reasoning string) func(classifyInput) domain.QueryClassification {
	return func(in classifyInput) domain.QueryClassification {
		return domain.QueryClassification{
			Type:        intent,
			Confidence:  confidence,
			Reasoning:   reasoning,
			Constraints: in.constraints,
			Contextual:  in.contextual,
		}
	}
}

func matchCatalogBrowse(in classifyInput) bool {
	if containsAnyMarker(in.lower, in.tokens, catalogMarkers) {
		return true
	}
	// "list ... books" split across the sentence.
	return hasToken(in.tokens, "list") && (hasToken(in.tokens, "books") || hasToken(in.tokens, "book"))
}

// matchRecommendation fires on explicit recommendation verbs, or on a
// follow-up whose contextual info already names a previous topic.
func matchRecommendation(in classifyInput) bool {
	if containsAnyMarker(in.lower, in.tokens, recommendMarkers) {
		return true
	}
	return in.contextual.IsFollowUp && in.contextual.PreviousTopic != ""
}

func buildRecommendation(in classifyInput) domain.QueryClassification {
	reasoning := "explicit recommendation language"
	if in.contextual.IsFollowUp && in.contextual.PreviousTopic != "" {
		reasoning = fmt.Sprintf("follow-up recommendation referring to previous topic %q", in.contextual.PreviousTopic)
	}
	return domain.QueryClassification{
		Type:        domain.IntentBookRecommendation,
		Confidence:  confidenceRecommendation,
		Reasoning:   reasoning,
		Constraints: in.constraints,
		Contextual:  in.contextual,
	}
}

// matchTopicBookList covers counted topical list requests that avoid
// recommendation verbs ("give me 3 books on leadership"); explicit verbs are
// claimed by the higher-priority recommendation rule.
func matchTopicBookList(in classifyInput) bool {
	if in.constraints.ResultCount <= 0 || in.constraints.TopicFilter == "" {
		return false
	}
	return containsAnyMarker(in.lower, in.tokens, listMarkers) || hasToken(in.tokens, "books")
}

func buildTopicBookList(in classifyInput) domain.QueryClassification {
	return domain.QueryClassification{
		Type:       domain.IntentTopicBookList,
		Confidence: confidenceTopicBookList,
		Reasoning: fmt.Sprintf("counted list request: %d items on %q",
			in.constraints.ResultCount, in.constraints.TopicFilter),
		Constraints: in.constraints,
		Contextual:  in.contextual,
	}
}

func matchSpecificSearch(in classifyInput) bool {
	if containsAnyMarker(in.lower, in.tokens, searchMarkers) {
		return true
	}
	return topicPrepositionPattern.MatchString(in.lower)
}

func matchHRScenario(in classifyInput) bool {
	return containsAnyMarker(in.lower, in.tokens, hrMarkers) &&
		containsAnyMarker(in.lower, in.tokens, adviceMarkers)
}

func matchAdviceRestricted(in classifyInput) bool {
	if !in.constraints.RestrictToCorpusOnly {
		return false
	}
	return containsAnyMarker(in.lower, in.tokens, adviceMarkers) ||
		containsAnyMarker(in.lower, in.tokens, questionMarkers)
}

func matchAdviceGeneral(in classifyInput) bool {
	return containsAnyMarker(in.lower, in.tokens, adviceMarkers)
}

func matchDirectQuestion(in classifyInput) bool {
	return containsAnyMarker(in.lower, in.tokens, questionMarkers)
}

// buildDirectQuestion routes domain-keyword questions to hybrid so the
// corpus is checked before general knowledge.
func (c *QueryClassifier) buildDirectQuestion(in classifyInput) domain.QueryClassification {
	for _, topic := range c.topics {
		if hasToken(in.tokens, strings.ToLower(topic)) {
			return domain.QueryClassification{
				Type:        domain.IntentHybrid,
				Confidence:  confidenceDomainQuestion,
				Reasoning:   fmt.Sprintf("domain question about %q; checking corpus before general knowledge", topic),
				Constraints: in.constraints,
				Contextual:  in.contextual,
			}
		}
	}
	return domain.QueryClassification{
		Type:        domain.IntentDirectQuestion,
		Confidence:  confidenceDirectQuestion,
		Reasoning:   "general knowledge question outside the domain vocabulary",
		Constraints: in.constraints,
		Contextual:  in.contextual,
	}
}
