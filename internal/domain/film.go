package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseCode reports whether text is a well-formed film code: decimal digits
// only, one to four characters (0-9999).
func ParseCode(text string) (int, bool) {
	if len(text) == 0 || len(text) >= 5 {
		return 0, false
	}

	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	code, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}

	return code, true
}

// Film is a single catalogue record addressable by its short numeric code.
// Optional fields are empty/nil when the admin skipped them in the wizard.
type Film struct {
	Code        int
	Title       string
	Description string
	LinksView   []string
	SourceURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label renders the short one-line form used by the /all listing.
func (f *Film) Label() string {
	return fmt.Sprintf("%d - %s", f.Code, f.Title)
}

// Card renders the full film description sent to users, including optional
// fields only when they are present.
func (f *Film) Card() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Название: %s\n", f.Title)
	if f.Description != "" {
		fmt.Fprintf(&b, "Описание: %s\n", f.Description)
	}
	if len(f.LinksView) > 0 {
		fmt.Fprintf(&b, "Ссылки для просмотра: %s\n", strings.Join(f.LinksView, ", "))
	}
	if f.SourceURL != "" {
		fmt.Fprintf(&b, "Ссылка shorts/reels: %s\n", f.SourceURL)
	}

	return b.String()
}
