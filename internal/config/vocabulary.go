package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultTopics is the built-in domain vocabulary. A deployment with a
// different corpus overrides it with a YAML file via TOPIC_VOCABULARY_PATH.
var defaultTopics = []string{
	"leadership",
	"management",
	"hr",
	"hiring",
	"coaching",
	"communication",
	"negotiation",
	"productivity",
	"strategy",
	"finance",
	"banking",
	"marketing",
	"sales",
	"psychology",
	"motivation",
	"culture",
	"teamwork",
	"entrepreneurship",
}

type vocabularyFile struct {
	Topics []string `yaml:"topics"`
}

// LoadTopicVocabulary returns the configured topic vocabulary. An empty path
// selects the built-in defaults; a configured file must parse and contain at
// least one topic.
func LoadTopicVocabulary(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		out := make([]string, len(defaultTopics))
		copy(out, defaultTopics)
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topic vocabulary: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse topic vocabulary: %w", err)
	}

	topics := make([]string, 0, len(file.Topics))
	seen := make(map[string]struct{}, len(file.Topics))
	for _, topic := range file.Topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("topic vocabulary %s contains no topics", path)
	}
	return topics, nil
}
