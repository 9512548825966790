package diag

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

var (
	errorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	errorColorFG = pterm.FgRed
	warnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	warnColorFG  = pterm.FgYellow
	infoColorFG  = pterm.FgLightGreen
)

// Report prints every accumulated diagnostic, in recording order, followed
// by a one-line summary ("n error(s), m warning(s)"). It mirrors the
// teacher's banner-per-message display, simplified to the stable one-line
// format this compiler's worked scenarios depend on.
func (s *Sink) Report() {
	for _, d := range s.diags {
		d.display()
	}
	if len(s.diags) == 0 {
		return
	}
	warnCount := len(s.diags) - s.errorCount
	fmt.Println()
	if s.errorCount > 0 {
		errorColorFG.Println(fmt.Sprintf("%d error(s), %d warning(s)", s.errorCount, warnCount))
	} else {
		warnColorFG.Println(fmt.Sprintf("%d warning(s)", warnCount))
	}
}

func (d *Diagnostic) display() {
	bannerLen := pterm.GetTerminalWidth() / 2
	if bannerLen > 60 {
		bannerLen = 60
	}
	tag := d.Kind.String()
	if d.IsError {
		tag += " Error"
		errorStyleBG.Print(tag)
	} else {
		tag += " Warning"
		warnStyleBG.Print(tag)
	}
	fmt.Print(" ")
	dashCount := bannerLen - len(tag) - 1
	if dashCount < 0 {
		dashCount = 0
	}
	infoColorFG.Println(strings.Repeat("-", dashCount))
	fmt.Println(d.Error())
}

// PrintError prints a standalone Go error with an error-styled tag, for
// failures that occur before a Sink exists (e.g. CLI argument parsing).
func PrintError(tag string, err error) {
	errorStyleBG.Print(tag)
	errorColorFG.Println(" " + err.Error())
}
