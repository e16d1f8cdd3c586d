// Package report renders the publication plan for the operator chat.
package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/captaintwin/itnews-portal/internal/model"
)

const maxTitleLen = 180

// FormatPlan renders the day's schedule as an HTML report, grouped by
// source in schedule order.
func FormatPlan(entries []model.ScheduleEntry, selection model.Selection, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Publication plan for %s</b>\n", now.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Total articles: <b>%d</b>\n", len(entries))

	byID := selection.ByID()

	var order []string
	bySource := make(map[string][]model.ScheduleEntry)
	for _, e := range entries {
		if _, ok := bySource[e.Source]; !ok {
			order = append(order, e.Source)
		}
		bySource[e.Source] = append(bySource[e.Source], e)
	}

	for _, source := range order {
		group := bySource[source]
		fmt.Fprintf(&b, "\n<b>%s</b> — %d articles\n", html.EscapeString(source), len(group))
		for _, e := range group {
			title := e.Title
			if runes := []rune(title); len(runes) > maxTitleLen {
				title = string(runes[:maxTitleLen])
			}
			fmt.Fprintf(&b, " • %s\n", html.EscapeString(title))
			if item, ok := byID[e.ItemID]; ok {
				fmt.Fprintf(&b, "   <i>%s</i> — %d chars\n", e.ScheduledTime.Format("15:04"), item.CharCount)
			} else {
				fmt.Fprintf(&b, "   <i>%s</i>\n", e.ScheduledTime.Format("15:04"))
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

var htmlTags = strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "")

// PlainText strips the report's HTML markup for the on-disk copy.
func PlainText(s string) string {
	return html.UnescapeString(htmlTags.Replace(s))
}
