// Package share builds the WhatsApp share link shown by the page's share
// buttons.
package share

import (
	"net/url"
	"strings"
)

// DefaultPageURL is the public address embedded in the share message.
const DefaultPageURL = "https://air.nmn.gl"

// Title is the heading offered to the native share sheet.
const Title = "Toxic Air Alert | Protect Your Family's Health"

const whatsAppBase = "https://api.whatsapp.com/send/"

// Button labels used across the page.
const (
	LabelDefault = "Warn your loved ones now"
	LabelTruth   = "Share the Truth"
	LabelProtect = "Protect Your Loved Ones - Share Now"
	LabelHelp    = "Share & Help Others Stay Safe"
	LabelFamily  = "Share with Family"
)

// Labels returns every button label in page order.
func Labels() []string {
	return []string{LabelDefault, LabelTruth, LabelProtect, LabelHelp, LabelFamily}
}

// ButtonLabel returns the given label, or the default when it is blank.
func ButtonLabel(label string) string {
	if strings.TrimSpace(label) == "" {
		return LabelDefault
	}
	return label
}

// Message returns the share text pointing at pageURL.
func Message(pageURL string) string {
	if pageURL == "" {
		pageURL = DefaultPageURL
	}
	return "⚠️ The air we're breathing is toxic... Learn more about the health impacts: " + pageURL +
		"\n\n🫁 Protect your family - See how it's affecting our children and elderly RIGHT NOW! 😷" +
		"\n\nStay informed, stay safe! 🏥"
}

// DefaultMessage is the share text for the public page.
func DefaultMessage() string {
	return Message(DefaultPageURL)
}

// encode percent-encodes s the way encodeURIComponent does for the
// characters that appear in share text.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// WhatsAppURL returns the link that opens WhatsApp with text prefilled.
func WhatsAppURL(text string) string {
	return whatsAppBase + "?text=" + encode(text) + "&type=custom_url&app_absent=0"
}

// Payload feeds both the native share sheet and the WhatsApp fallback.
type Payload struct {
	Title    string `json:"title"`
	Label    string `json:"label"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	WhatsApp string `json:"whatsapp"`
}

// NewPayload builds the share payload for a page URL and button label.
func NewPayload(pageURL, label string) Payload {
	if pageURL == "" {
		pageURL = DefaultPageURL
	}
	text := Message(pageURL)
	return Payload{
		Title:    Title,
		Label:    ButtonLabel(label),
		Text:     text,
		URL:      pageURL,
		WhatsApp: WhatsAppURL(text),
	}
}
