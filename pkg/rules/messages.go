package rules

import "fmt"

var messages = map[RuleID]string{
	RuleLettersOnly:          "Please use letters only (A-Z).",
	RuleLettersNumbers:       "Please use letters and numbers only, without spaces.",
	RuleLettersNumbersSpaces: "Please use letters, numbers and spaces only.",
	RulePhoneNumber:          "Please enter a valid phone number (7-15 digits).",
	RulePostalCode:           "Please enter a valid postal code.",
	RuleNumbersOnly:          "Please enter numbers only.",
	RuleURL:                  "Please enter a valid URL starting with http:// or https://.",
	RuleEmailDomain:          "Please use an email address from the required domain.",
	RuleNoSpecialChars:       "Special characters are not allowed.",
	RuleUsername:             "Username must be 3-20 characters: letters, numbers, underscores or dashes.",
}

// ErrorMessage returns the user facing rejection message for id. Rules without
// a bespoke message fall back to their description.
func ErrorMessage(id RuleID) string {
	if msg, ok := messages[id]; ok {
		return msg
	}
	rule, err := Lookup(id)
	if err != nil {
		return "Please match the required format."
	}
	return fmt.Sprintf("Please match the required format: %s", rule.Description)
}
