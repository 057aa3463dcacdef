package dispatch

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/wedsync/guestlist/internal/entity"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const dateLayout = "Monday, 2 January 2006"

var templateSubjects = map[entity.InvitationType]string{
	entity.InvitationSaveTheDate:  "Save the date",
	entity.InvitationInvite:       "You're invited",
	entity.InvitationRSVPReminder: "Please RSVP",
	entity.InvitationThankYou:     "Thank you",
}

// messageData is what every template can refer to.
type messageData struct {
	GuestName      string
	CoupleName     string
	EventDate      string
	Deadline       string
	RSVPLink       string
	PlusOneAllowed bool
}

func parseTemplates() (map[entity.InvitationType]*template.Template, error) {
	const templateDir = "templates"
	dirEntries, err := templatesFS.ReadDir(templateDir)
	if err != nil {
		return nil, fmt.Errorf("error reading template directory: %w", err)
	}
	out := make(map[entity.InvitationType]*template.Template, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		tmpl, err := template.ParseFS(templatesFS, filepath.Join(templateDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("error parsing template '%s': %w", entry.Name(), err)
		}
		out[entity.InvitationType(strings.TrimSuffix(entry.Name(), ".gohtml"))] = tmpl
	}
	for t := range templateSubjects {
		if _, ok := out[t]; !ok {
			return nil, fmt.Errorf("template not found: %v", t)
		}
	}
	return out, nil
}

func (d *Dispatcher) render(t entity.InvitationType, w *entity.Wedding, g *entity.Guest) (subject, body string, err error) {
	tmpl, ok := d.templates[t]
	if !ok {
		return "", "", fmt.Errorf("template not found: %v", t)
	}
	data := messageData{
		GuestName:      g.FullName(),
		CoupleName:     w.CoupleName,
		RSVPLink:       d.rsvpLink(g),
		PlusOneAllowed: g.PlusOneAllowed,
	}
	if w.EventDate != nil {
		data.EventDate = w.EventDate.Format(dateLayout)
	}
	if w.RSVPDeadline != nil {
		data.Deadline = w.RSVPDeadline.Format(dateLayout)
	}
	sb := &strings.Builder{}
	if err := tmpl.Execute(sb, data); err != nil {
		return "", "", fmt.Errorf("error executing template: %w", err)
	}
	return templateSubjects[t], sb.String(), nil
}

func (d *Dispatcher) rsvpLink(g *entity.Guest) string {
	return strings.TrimSuffix(d.c.RSVPBaseURL, "/") + "/" + g.RSVPToken
}
