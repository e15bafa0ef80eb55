package adapt

import (
	"html"
	"strings"
)

type balloonRow struct {
	label string
	value num
	unit  string
}

func renderRows(rows []balloonRow) string {
	var b strings.Builder
	for _, r := range rows {
		v := formatNum(r.value)
		if r.value.Valid && r.unit != "" {
			v += " " + r.unit
		}
		b.WriteString(line(r.label, v))
	}
	return b.String()
}

// line renders one escaped "label: value" row of a balloon body.
func line(label, value string) string {
	return "<div><b>" + html.EscapeString(label) + ":</b> " + html.EscapeString(value) + "</div>"
}

func paragraph(text string) string {
	return `<p class="balloon-note">` + html.EscapeString(text) + "</p>"
}
