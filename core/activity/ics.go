package activity

import (
	"bytes"
	"strings"
	"text/template"
	"time"
)

// iCalendar wants CRLF line endings and UTC timestamps.
const icsTimeLayout = "20060102T150405Z"

var icsTmpl = template.Must(template.New("ics").Parse(strings.ReplaceAll(
	`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//StudyMate//Atividades//PT-BR
CALSCALE:GREGORIAN
METHOD:PUBLISH
BEGIN:VEVENT
UID:{{ .UID }}
DTSTAMP:{{ .Stamp }}
DTSTART:{{ .Start }}
DTEND:{{ .End }}
SUMMARY:{{ .Summary }}
DESCRIPTION:{{ .Description }}
LOCATION:{{ .Location }}
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")))

// Location stamped on exported calendar events.
const icsLocation = "ETEC"

// ExportICS renders the activity deadline as a one hour VCALENDAR event.
func ExportICS(a Activity) ([]byte, error) {
	if a.Deadline == nil {
		return nil, ErrNoDeadline
	}
	start := a.Deadline.UTC()
	data := struct {
		UID, Stamp, Start, End, Summary, Description, Location string
	}{
		UID:         a.ID + "@studymate",
		Stamp:       NowFunc().UTC().Format(icsTimeLayout),
		Start:       start.Format(icsTimeLayout),
		End:         start.Add(time.Hour).Format(icsTimeLayout),
		Summary:     icsEscape(a.Title),
		Description: icsEscape(a.Description),
		Location:    icsLocation,
	}

	var buf bytes.Buffer
	if err := icsTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// icsEscape escapes the TEXT characters RFC 5545 reserves.
func icsEscape(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return r.Replace(s)
}
