// Package classifier scores operator questions against a keyword table to
// pick an analysis type and a routing tier.
package classifier

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Classification is the classifier verdict for one query.
type Classification struct {
	AnalysisType domain.AnalysisType
	RoutingScore int
	// TopN is the N of a "top N" phrase, 0 when absent.
	TopN int
	// Hits lists the matched keys in query order.
	Hits []string
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules     map[string]Rule
	threshold int
}

// New builds a classifier. A nil rules map selects DefaultRules.
func New(rules map[string]Rule, threshold int) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	normalized := make(map[string]Rule, len(rules))
	for k, r := range rules {
		normalized[strings.Join(tokenize(k), " ")] = r
	}
	return &Classifier{rules: normalized, threshold: threshold}
}

func (c *Classifier) Threshold() int { return c.threshold }

// Route picks the tier for a routing score.
func (c *Classifier) Route(score int) domain.Tier {
	if score >= c.threshold {
		return domain.TierAgent
	}
	return domain.TierFast
}

// Classify makes one left-to-right pass over the tokens, preferring the
// longest phrase at each position. Each distinct rule counts once.
func (c *Classifier) Classify(query string) Classification {
	tokens := tokenize(query)
	out := Classification{AnalysisType: domain.AnalysisOEE}

	seen := make(map[string]struct{})
	perType := make(map[domain.AnalysisType]int)

	for i := 0; i < len(tokens); {
		step := 1
		for n := min(maxPhraseWords, len(tokens)-i); n >= 1; n-- {
			key := strings.Join(tokens[i:i+n], " ")
			rule, ok := c.rules[key]
			if !ok {
				continue
			}
			step = n
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				out.Hits = append(out.Hits, key)
				out.RoutingScore += rule.Weight
				if rule.Type != "" {
					perType[rule.Type] += rule.Weight
				}
			}
			break
		}
		if tokens[i] == "top" && i+1 < len(tokens) && out.TopN == 0 {
			if n, err := strconv.Atoi(tokens[i+1]); err == nil && n > 0 {
				out.TopN = n
			}
		}
		i += step
	}

	best := 0
	for _, t := range domain.AnalysisTypes {
		if w := perType[t]; w > best {
			best = w
			out.AnalysisType = t
		}
	}
	return out
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
