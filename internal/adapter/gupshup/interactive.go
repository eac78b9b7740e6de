package gupshup

import (
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/convobridge/gupshup-gateway/internal/canonical"
)

// Provider-imposed limits on interactive content.
const (
	maxListChoices       = 10
	maxListChoiceLen     = 24
	maxQuickReplyChoices = 3
	maxQuickReplyTextLen = 20
	maxQuickReplyKeyLen  = 256

	listButtonLabel  = "Options"
	listSectionTitle = "Choose an option"
)

// choiceTextPattern is the character class the provider accepts in button
// and row titles.
var choiceTextPattern = regexp.MustCompile(`^[A-Za-z0-9 _(),+-.@#$%&*={}:;'<>]+$`)

// The action documents expose only the fields the outbound API expects.

type listAction struct {
	Button   string        `json:"button"`
	Sections []listSection `json:"sections"`
}

type listSection struct {
	Title string    `json:"title"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type quickReplyAction struct {
	Buttons []quickReplyButton `json:"buttons"`
}

type quickReplyButton struct {
	Type  string         `json:"type"`
	Reply quickReplyItem `json:"reply"`
}

type quickReplyItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// validateInteractiveChoices checks the button choices of a payload against
// the provider limits for its styling tag. Counts and text lengths are
// validated before any action document is built.
func validateInteractiveChoices(tag canonical.StylingTag, choices []canonical.ButtonChoice) bool {
	switch tag {
	case canonical.StylingTagList:
		if choices == nil || len(choices) > maxListChoices {
			return false
		}
		for _, choice := range choices {
			if utf8.RuneCountInString(choice.Text) > maxListChoiceLen || !choiceTextPattern.MatchString(choice.Text) {
				return false
			}
		}
		return true

	case canonical.StylingTagQuickReplyBtn:
		if choices == nil || len(choices) > maxQuickReplyChoices {
			return false
		}
		for _, choice := range choices {
			if utf8.RuneCountInString(choice.Text) > maxQuickReplyTextLen ||
				len(choice.Key) > maxQuickReplyKeyLen ||
				!choiceTextPattern.MatchString(choice.Text) {
				return false
			}
		}
		return true

	default:
		return false
	}
}

// buildListAction serializes the choices into the list action document:
// one fixed-label button and a single section with one row per choice.
func buildListAction(choices []canonical.ButtonChoice) (string, error) {
	rows := make([]listRow, 0, len(choices))
	for _, choice := range choices {
		rows = append(rows, listRow{ID: choice.Key, Title: choice.Text})
	}

	action := listAction{
		Button: listButtonLabel,
		Sections: []listSection{
			{Title: listSectionTitle, Rows: rows},
		},
	}

	content, err := json.Marshal(action)
	if err != nil {
		return "", fmt.Errorf("marshalling list action: %w", err)
	}
	return string(content), nil
}

// buildQuickReplyAction serializes the choices into the quick-reply action
// document: one reply button per choice.
func buildQuickReplyAction(choices []canonical.ButtonChoice) (string, error) {
	buttons := make([]quickReplyButton, 0, len(choices))
	for _, choice := range choices {
		buttons = append(buttons, quickReplyButton{
			Type:  "reply",
			Reply: quickReplyItem{ID: choice.Key, Title: choice.Text},
		})
	}

	content, err := json.Marshal(quickReplyAction{Buttons: buttons})
	if err != nil {
		return "", fmt.Errorf("marshalling quick reply action: %w", err)
	}
	return string(content), nil
}
