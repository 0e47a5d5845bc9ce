package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muwahhidun/durus/internal/domain"
)

func (m Model) View() string {
	if m.view == viewHelp {
		return m.helpView()
	}
	if m.view == viewQuiz {
		return m.quizView()
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m Model) headerView() string {
	title := titleStyle.Render("durus")
	crumb := m.breadcrumb()
	if m.syncing {
		crumb = crumb + "  " + m.spinner.View() + subtleStyle.Render("syncing...")
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", subtleStyle.Render(crumb))
}

func (m Model) breadcrumb() string {
	switch m.level {
	case levelThemes:
		return "themes"
	case levelSeries:
		return "themes / " + m.selectedTheme.Name
	default:
		return fmt.Sprintf("themes / %s / %s", m.selectedTheme.Name, m.selectedSeries.DisplayName())
	}
}

func (m Model) listView() string {
	if m.filtering {
		return paneStyle.Render(m.filter.View()) + "\n" + m.rowsView()
	}
	return m.rowsView()
}

func (m Model) rowsView() string {
	visible := m.height - 6
	if visible < 5 {
		visible = 5
	}

	var rows []string
	switch m.level {
	case levelThemes:
		for i, t := range m.themes {
			rows = append(rows, m.renderRow(i, t.Name, ""))
		}
	case levelSeries:
		for i, s := range m.series {
			var parts []string
			if s.BookName != "" {
				parts = append(parts, s.BookName)
			}
			if s.LessonCount > 0 {
				parts = append(parts, fmt.Sprintf("%d lessons", s.LessonCount))
			}
			if s.IsCompleted {
				parts = append(parts, "✓")
			}
			extra := strings.Join(parts, "  ")
			rows = append(rows, m.renderRow(i, s.DisplayName(), extra))
		}
	default:
		for i, l := range m.lessons {
			rows = append(rows, m.renderRow(i, m.lessonMarker(l)+" "+l.DisplayTitle(), m.lessonExtra(l)))
		}
	}

	if len(rows) == 0 {
		return dimStyle.Render("  nothing here yet, press s to sync")
	}

	rows = clampWindow(rows, m.cursor[m.level], visible)
	return strings.Join(rows, "\n")
}

func (m Model) renderRow(i int, label, extra string) string {
	if extra != "" {
		label = label + "  " + dimStyle.Render(extra)
	}
	if i == m.cursor[m.level] {
		return selectedStyle.Render(label)
	}
	return "  " + label
}

func (m Model) lessonMarker(l domain.Lesson) string {
	if _, ok := m.downloading[l.ID]; ok {
		return warnStyle.Render(markDownloading)
	}
	if m.svc.Downloads.IsDownloaded(l.ID) {
		return accentStyle.Render(markDownloaded)
	}
	return markNone
}

func (m Model) lessonExtra(l domain.Lesson) string {
	var parts []string
	if d := l.FormattedDuration(); d != "" {
		parts = append(parts, d)
	}
	if _, ok := m.bookmarks[l.ID]; ok {
		parts = append(parts, markBookmarked)
	}
	if p, ok := m.downloading[l.ID]; ok && p.Fraction >= 0 {
		parts = append(parts, fmt.Sprintf("%.0f%%", p.Fraction*100))
	}
	if !l.HasAudio() {
		parts = append(parts, "no audio")
	}
	return strings.Join(parts, "  ")
}

// clampWindow slices rows to a window of size around the cursor.
func clampWindow(rows []string, cursor, size int) []string {
	if len(rows) <= size {
		return rows
	}
	start := cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > len(rows) {
		start = len(rows) - size
	}
	return rows[start : start+size]
}

func (m Model) statusView() string {
	if m.status == "" {
		return statusStyle.Render(m.hintLine())
	}
	if m.statusErr {
		return statusStyle.Render(errorStyle.Render(m.status))
	}
	return statusStyle.Render(accentStyle.Render(m.status))
}

func (m Model) hintLine() string {
	switch m.level {
	case levelLessons:
		return "p play · d download · b bookmark · t test · / filter · ? help"
	case levelSeries:
		return "enter open · t test · / filter · s sync · ? help"
	default:
		return "enter open · / filter · s sync · q quit · ? help"
	}
}

func (m Model) quizView() string {
	test := m.svc.Quiz.Test()
	if test == nil {
		return errorStyle.Render("no test loaded")
	}

	switch m.phase {
	case quizIntro:
		return m.quizIntroView(test)
	case quizResult:
		return m.quizResultView()
	default:
		return m.quizQuestionView(test)
	}
}

func (m Model) quizIntroView(test *domain.Test) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(test.Title) + "\n\n")
	if test.Description != "" {
		b.WriteString(subtleStyle.Render(test.Description) + "\n\n")
	}
	b.WriteString(fmt.Sprintf("%d questions · %s per question · %d%% to pass\n\n",
		len(test.Questions), test.TimePerQuestion(), test.PassingScore))
	b.WriteString(dimStyle.Render("enter to begin · esc to go back"))
	return paneStyle.Render(b.String())
}

func (m Model) quizQuestionView(test *domain.Test) string {
	q, err := m.svc.Quiz.Current()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	b.WriteString(subtleStyle.Render(fmt.Sprintf("question %d of %d", m.svc.Quiz.Index()+1, len(test.Questions))))

	secs := int(m.remaining.Seconds())
	timer := fmt.Sprintf("  %ds", secs)
	if secs <= 5 {
		b.WriteString(errorStyle.Render(timer))
	} else {
		b.WriteString(subtleStyle.Render(timer))
	}

	b.WriteString("\n\n" + titleStyle.Render(q.Text) + "\n\n")

	selected, hasSel := m.svc.Quiz.Selected()
	for i, opt := range q.Options {
		line := fmt.Sprintf("%d. %s", i+1, opt)
		if hasSel && i == selected {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + dimStyle.Render("1-4 select · enter confirm"))
	return paneStyle.Render(b.String())
}

func (m Model) quizResultView() string {
	attempt := m.svc.Quiz.Result()
	if attempt == nil {
		return errorStyle.Render("no result")
	}

	var b strings.Builder
	if attempt.Passed {
		b.WriteString(accentStyle.Render("Passed") + "\n\n")
	} else {
		b.WriteString(errorStyle.Render("Not passed") + "\n\n")
	}
	b.WriteString(fmt.Sprintf("score: %d / %d (%.0f%%)\n", attempt.Score, attempt.MaxScore, attempt.ScorePercent()))
	b.WriteString(fmt.Sprintf("time: %ds\n\n", attempt.TimeSpentSeconds))
	b.WriteString(dimStyle.Render("any key to return"))
	return paneStyle.Render(b.String())
}

func (m Model) helpView() string {
	rows := [][2]string{
		{"j/k or arrows", "move"},
		{"enter", "open / select"},
		{"esc", "back"},
		{"/", "fuzzy filter"},
		{"s", "sync catalog"},
		{"p", "play lesson"},
		{"d", "download lesson"},
		{"x / X", "cancel / delete download"},
		{"b", "toggle bookmark"},
		{"t", "take series test"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("keys") + "\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-16s %s\n", accentStyle.Render(r[0]), r[1]))
	}
	b.WriteString("\n" + dimStyle.Render("any key to close"))
	return paneStyle.Render(b.String())
}
