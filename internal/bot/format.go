package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xaenox/daylog-bot/internal/models"
	"github.com/xaenox/daylog-bot/internal/tracker"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

const maxTopActivities = 5

const helpText = `📋 Available commands:

/start - Start the bot
/help - Show this help message
/track - How to log your day
/today - Show what you logged today
/stats [window] - Streaks and totals (today, week, month, all, 14d)
/timezone <zone> - Set your timezone, e.g. /timezone Europe/Berlin

You can also:
🎤 Send voice messages about your day
✍️ Type what you did, e.g. "worked 9 to 5, then read for an hour"`

const trackText = `🎯 Let's track your day!

You can either:
1. Send me a voice message describing your activities
2. Type out what you've done today

For example: "I woke up at 6, had breakfast at 7, and worked until noon"`

func welcomeText(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`👋 Hi %s!

I'm your daily habit tracker. Tell me what you did today and I'll turn it into a timeline of your day, with streaks and stats over time.

Send /help to see everything I can do.`, name)
}

var sentimentEmoji = map[models.Sentiment]string{
	models.SentimentPositive:    "😊",
	models.SentimentNeutral:     "😐",
	models.SentimentNegative:    "😕",
	models.SentimentUnspecified: "",
}

// failureText maps a pipeline error to what the user is told.
func failureText(err error) string {
	switch {
	case dlerrors.IsTranscription(err):
		return "I couldn't understand that voice message. Nothing was recorded, please try again or type it out."
	case dlerrors.IsExtraction(err):
		return "I couldn't make sense of that. Nothing was recorded, please try rephrasing."
	case dlerrors.IsStorage(err):
		return "I couldn't save your day. Nothing was recorded, please try again in a moment."
	}
	return "Something went wrong. Please try again later."
}

func formatTranscript(text string) string {
	if text == "" {
		return ""
	}
	return fmt.Sprintf("🎤 _%s_\n\n", escapeMarkdown(text))
}

func formatOutcome(out *tracker.Outcome) string {
	var sb strings.Builder
	if len(out.Recorded) == 0 {
		sb.WriteString(escapeMarkdown("I didn't find any activities in that. Nothing changed."))
		sb.WriteString("\n\n")
	}
	sb.WriteString(formatTimeline(out.Timeline))

	for _, w := range out.Warnings {
		switch w.Kind {
		case models.WarningTruncated:
			fmt.Fprintf(&sb, "\n✂️ %s", escapeMarkdown(fmt.Sprintf("%q now ends when %q starts", w.Segment.Description, w.Superseder.Description)))
		case models.WarningSuperseded:
			fmt.Fprintf(&sb, "\n🔁 %s", escapeMarkdown(fmt.Sprintf("%q was replaced by %q", w.Segment.Description, w.Superseder.Description)))
		}
	}
	if n := len(out.Ambiguities); n > 0 {
		fmt.Fprintf(&sb, "\n❓ %s", escapeMarkdown(fmt.Sprintf("%s I couldn't place exactly, marked with ~", plural(n, "time", "times"))))
	}
	return sb.String()
}

// formatTimeline renders a day as one line per segment.
func formatTimeline(tl models.DayTimeline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *%s*\n\n", escapeMarkdown("Your day, "+tl.Date))
	if len(tl.Segments) == 0 {
		sb.WriteString(escapeMarkdown("Nothing logged yet. Tell me what you did!"))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, s := range tl.Segments {
		mark := ""
		if s.Approximate {
			mark = "~"
		}
		line := fmt.Sprintf("%s%s–%s %s (%s)", mark, s.Start.Format("15:04"), s.End.Format("15:04"), s.Description, formatMinutes(s.DurationMinutes))
		if e := sentimentEmoji[s.Sentiment]; e != "" {
			line += " " + e
		}
		fmt.Fprintf(&sb, "⏰ %s\n", escapeMarkdown(line))
	}
	fmt.Fprintf(&sb, "\n*%s* %s\n", escapeMarkdown("Total:"), escapeMarkdown(formatMinutes(tl.TotalTrackedMinutes)))
	return sb.String()
}

func formatStats(st models.UserStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *%s* %s\n\n", escapeMarkdown("Your stats"), escapeMarkdown("("+windowLabel(st)+")"))
	fmt.Fprintf(&sb, "🔥 %s\n", escapeMarkdown("Current streak: "+plural(st.CurrentStreak, "day", "days")))
	fmt.Fprintf(&sb, "🏆 %s\n", escapeMarkdown("Longest streak: "+plural(st.LongestStreak, "day", "days")))
	fmt.Fprintf(&sb, "⏱ %s\n", escapeMarkdown(fmt.Sprintf("Tracked %s over %s",
		formatMinutes(st.TotalTrackedMinutes), plural(st.TrackedDays, "day", "days"))))

	if len(st.SentimentDistribution) > 0 {
		parts := make([]string, 0, len(models.Sentiments))
		for _, s := range models.Sentiments {
			n := st.SentimentDistribution[s]
			if n == 0 {
				continue
			}
			e := sentimentEmoji[s]
			if e == "" {
				e = "❔"
			}
			parts = append(parts, fmt.Sprintf("%s %d", e, n))
		}
		fmt.Fprintf(&sb, "\n%s %s\n", escapeMarkdown("Mood:"), escapeMarkdown(strings.Join(parts, "  ")))
	}

	top := topCategories(st.CategoryTotals, maxTopActivities)
	if len(top) > 0 {
		fmt.Fprintf(&sb, "\n*%s*\n", escapeMarkdown("Top activities:"))
		for _, c := range top {
			fmt.Fprintf(&sb, "• %s\n", escapeMarkdown(fmt.Sprintf("%s: %s", c.name, formatMinutes(c.minutes))))
		}
	}
	return sb.String()
}

type category struct {
	name    string
	minutes int
}

func topCategories(totals map[string]int, n int) []category {
	out := make([]category, 0, len(totals))
	for name, m := range totals {
		out = append(out, category{name, m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].minutes != out[j].minutes {
			return out[i].minutes > out[j].minutes
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func windowLabel(st models.UserStats) string {
	switch {
	case st.WindowStart == "":
		return "all time"
	case st.WindowStart == st.WindowEnd:
		return "today"
	}
	return st.WindowStart + " to " + st.WindowEnd
}

// formatMinutes renders 0 as "0m", 45 as "45m", 90 as "1h 30m" and 120 as "2h".
func formatMinutes(m int) string {
	h, mins := m/60, m%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, mins)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
