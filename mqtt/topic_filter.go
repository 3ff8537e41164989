// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import "strings"

const sharedPrefix = "$share/"

// IsTopicFilterMatch reports whether a topic name matches a topic filter,
// including single-level (+) and multi-level (#) wildcards and shared
// subscription filters.
func IsTopicFilterMatch(topicFilter, topicName string) bool {
	if tf, ok := strings.CutPrefix(topicFilter, sharedPrefix); ok {
		idx := strings.Index(tf, "/")
		if idx == -1 {
			return false
		}
		topicFilter = tf[idx+1:]
	}

	// Wildcards never match topics starting with $.
	if strings.HasPrefix(topicName, "$") &&
		(strings.HasPrefix(topicFilter, "+") || strings.HasPrefix(topicFilter, "#")) {
		return false
	}

	filters := strings.Split(topicFilter, "/")
	names := strings.Split(topicName, "/")

	for i, filter := range filters {
		if filter == "#" {
			return i == len(filters)-1
		}
		if filter == "+" {
			if i >= len(names) {
				return false
			}
			continue
		}
		if i >= len(names) || filter != names[i] {
			return false
		}
	}

	return len(filters) == len(names)
}

// TopicIs returns a message predicate matching one exact topic.
func TopicIs(topic string) func(*Message) bool {
	return func(m *Message) bool { return m.Topic == topic }
}

// TopicMatches returns a message predicate matching a topic filter.
func TopicMatches(topicFilter string) func(*Message) bool {
	return func(m *Message) bool {
		return IsTopicFilterMatch(topicFilter, m.Topic)
	}
}
