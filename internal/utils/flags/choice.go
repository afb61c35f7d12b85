// Package flags formats and validates enumerated command flags.
package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplateConstant = "`<%s>`"
	choiceSeparatorConstant           = "|"
	choiceUsageTemplateConstant       = "%s %s"
	unsupportedChoiceTemplateConstant = "unsupported %s %q (expected one of %s)"
	choiceListSeparatorConstant       = ", "
)

// FormatChoiceUsage renders `<a|B|c> description`, upper-casing the default choice.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := normalizeChoice(defaultChoice)
	displayed := make([]string, 0, len(choices))
	for _, choice := range distinctChoices(choices) {
		if normalizeChoice(choice) == normalizedDefault && len(normalizedDefault) > 0 {
			choice = strings.ToUpper(choice)
		}
		displayed = append(displayed, choice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplateConstant, strings.Join(displayed, choiceSeparatorConstant))
	if len(strings.TrimSpace(description)) == 0 {
		return placeholder
	}
	return fmt.Sprintf(choiceUsageTemplateConstant, placeholder, description)
}

// ValidateChoice accepts an empty value or one of choices, compared case-insensitively.
func ValidateChoice(label string, value string, choices []string) error {
	normalizedValue := normalizeChoice(value)
	if len(normalizedValue) == 0 {
		return nil
	}
	distinct := distinctChoices(choices)
	for _, choice := range distinct {
		if normalizeChoice(choice) == normalizedValue {
			return nil
		}
	}
	return fmt.Errorf(unsupportedChoiceTemplateConstant, label, value, strings.Join(distinct, choiceListSeparatorConstant))
}

func distinctChoices(choices []string) []string {
	distinct := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := normalizeChoice(trimmedChoice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		distinct = append(distinct, trimmedChoice)
	}
	return distinct
}

func normalizeChoice(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
