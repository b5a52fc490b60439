package ui

import (
	"fmt"
	"strings"

	"github.com/steveyegge/git-start/internal/types"
)

// maxListTitle bounds titles in numbered listings.
const maxListTitle = 72

// FormatStoryLine renders the "<id> <type> <title>" line used in listings.
func FormatStoryLine(s types.StorySummary) string {
	return fmt.Sprintf("%s %s %s",
		RenderMuted(fmt.Sprint(s.ID)),
		TypeStyle(s.Type).Render(string(s.Type)),
		TruncateSimple(s.Title, maxListTitle))
}

// RenderStory renders the detail view shown once a story is chosen.
func RenderStory(s types.StorySummary) string {
	var b strings.Builder

	fmt.Fprintln(&b, TitleStyle.Render(s.Title))
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(name+":"), value)
		}
	}
	field("ID", fmt.Sprint(s.ID))
	field("Type", TypeStyle(s.Type).Render(TitleCase(string(s.Type))))
	field("State", StateStyle(s.CurrentState).Render(TitleCase(string(s.CurrentState))))
	if len(s.Labels) > 0 {
		field("Labels", strings.Join(s.Labels, ", "))
	}
	field("URL", s.URL)

	if desc := strings.TrimSpace(s.Description); desc != "" {
		fmt.Fprintln(&b, RenderMuted(SeparatorLight))
		b.WriteString(TruncateLines(RenderMarkdown(desc), DefaultMaxLines))
	}
	return b.String()
}
