// Package policy parses declarative tag-policy documents and classifies
// resource records against them. Classification is a pure function; all
// regular expressions are compiled once at load time.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
)

// maxPatternLength bounds regex compilation cost. Go's regexp engine is
// RE2, so matching is already linear in the input.
const maxPatternLength = 512

// Document is the on-disk policy schema. JSON documents parse through the
// YAML decoder unchanged.
type Document struct {
	RequiredTags         []RequiredTag             `yaml:"required_tags" json:"required_tags" validate:"required,min=1,dive"`
	OptionalTags         []string                  `yaml:"optional_tags" json:"optional_tags"`
	Exemptions           []ExemptionRule           `yaml:"exemptions" json:"exemptions" validate:"dive"`
	TagPatterns          map[string]string         `yaml:"tag_patterns" json:"tag_patterns"`
	ServiceSpecificRules map[string]ServiceRuleDoc `yaml:"service_specific_rules" json:"service_specific_rules"`
}

// RequiredTag is one required key with optional value constraints. The
// document form is either a bare string or a {key, values?, pattern?}
// mapping.
type RequiredTag struct {
	Key     string   `yaml:"key" json:"key" validate:"required"`
	Values  []string `yaml:"values" json:"values,omitempty"`
	Pattern string   `yaml:"pattern" json:"pattern,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form
func (r *RequiredTag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.Key)
	}
	type plain RequiredTag
	return value.Decode((*plain)(r))
}

// ExemptionRule removes tag keys from the required set for matching records
type ExemptionRule struct {
	Service    string   `yaml:"service" json:"service" validate:"required"`
	Type       string   `yaml:"type" json:"type"`
	Pattern    string   `yaml:"pattern" json:"pattern"`
	ExemptTags []string `yaml:"exempt_tags" json:"exempt_tags" validate:"required,min=1"`
}

// ServiceRuleDoc replaces the global required/optional sets for a service
type ServiceRuleDoc struct {
	RequiredTags []RequiredTag `yaml:"required_tags" json:"required_tags" validate:"dive"`
	OptionalTags []string      `yaml:"optional_tags" json:"optional_tags"`
}

// Rule is a compiled required-tag constraint
type Rule struct {
	Key     string
	Values  map[string]bool
	Pattern *regexp.Regexp
}

// Exemption is a compiled exemption rule
type Exemption struct {
	Service    string
	Type       string
	IDPattern  *regexp.Regexp
	ExemptTags map[string]bool
}

// ServiceOverride replaces the global rule set for one service
type ServiceOverride struct {
	Required []Rule
	Optional []string
}

// RuleSet is the immutable, compiled form of a policy document
type RuleSet struct {
	Required         []Rule
	Optional         []string
	Exemptions       []Exemption
	ServiceOverrides map[string]ServiceOverride
}

// Load parses and validates a policy document into a rule set. A document
// that does not satisfy the schema fails with an invalid-policy error.
func Load(data []byte) (*RuleSet, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidPolicy, "policy document is not valid YAML or JSON", err)
	}

	if err := validator.New().Struct(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidPolicy, "policy document fails schema validation", err)
	}

	rs := &RuleSet{
		Optional:         append([]string{}, doc.OptionalTags...),
		ServiceOverrides: make(map[string]ServiceOverride, len(doc.ServiceSpecificRules)),
	}

	var err error
	if rs.Required, err = compileRules(doc.RequiredTags, doc.TagPatterns); err != nil {
		return nil, err
	}

	for service, ruleDoc := range doc.ServiceSpecificRules {
		compiled, err := compileRules(ruleDoc.RequiredTags, doc.TagPatterns)
		if err != nil {
			return nil, err
		}
		rs.ServiceOverrides[strings.ToUpper(service)] = ServiceOverride{
			Required: compiled,
			Optional: append([]string{}, ruleDoc.OptionalTags...),
		}
	}

	for _, ex := range doc.Exemptions {
		compiled := Exemption{
			Service:    strings.ToUpper(ex.Service),
			Type:       ex.Type,
			ExemptTags: make(map[string]bool, len(ex.ExemptTags)),
		}
		for _, key := range ex.ExemptTags {
			compiled.ExemptTags[key] = true
		}
		if ex.Pattern != "" {
			re, err := compilePattern(ex.Pattern)
			if err != nil {
				return nil, err
			}
			compiled.IDPattern = re
		}
		rs.Exemptions = append(rs.Exemptions, compiled)
	}

	return rs, nil
}

func compileRules(tags []RequiredTag, globalPatterns map[string]string) ([]Rule, error) {
	rules := make([]Rule, 0, len(tags))
	for _, tag := range tags {
		rule := Rule{Key: tag.Key}
		if len(tag.Values) > 0 {
			rule.Values = make(map[string]bool, len(tag.Values))
			for _, v := range tag.Values {
				rule.Values[v] = true
			}
		}
		pattern := tag.Pattern
		if pattern == "" {
			pattern = globalPatterns[tag.Key]
		}
		if pattern != "" {
			re, err := compilePattern(pattern)
			if err != nil {
				return nil, err
			}
			rule.Pattern = re
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > maxPatternLength {
		return nil, apperrors.New(apperrors.KindInvalidPolicy,
			fmt.Sprintf("pattern exceeds maximum length of %d bytes", maxPatternLength))
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidPolicy,
			fmt.Sprintf("pattern %q does not compile", pattern), err)
	}
	return re, nil
}
