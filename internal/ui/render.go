package ui

import "fmt"

// Title renders a bold heading.
func Title(text string) string {
	return titleStyle.Render(text)
}

// Section renders a section heading.
func Section(text string) string {
	return sectionStyle.Render(text)
}

// Status renders one "[OK] description" line. ok selects the mark and
// color; detail, when non-empty, is appended dimmed.
func Status(ok bool, description, detail string) string {
	mark := okStyle.Render(checkMark)
	if !ok {
		mark = failStyle.Render(crossMark)
	}
	line := fmt.Sprintf("  %s %s", mark, description)
	if detail != "" {
		line += " " + dimStyle.Render(detail)
	}
	return line
}

// Warn renders a "[??] description" line for indeterminate checks.
func Warn(description, detail string) string {
	line := fmt.Sprintf("  %s %s", warnStyle.Render(warnMark), description)
	if detail != "" {
		line += " " + dimStyle.Render(detail)
	}
	return line
}
