package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/guiperry/moneymanager/advisor"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	historyColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func printResponse(w io.Writer, resp *advisor.Response) {
	sections := []struct{ heading, text string }{
		{advisor.HeadingBestInvestments, resp.BestInvestments},
		{advisor.HeadingAdvice, resp.Advice},
		{advisor.HeadingFinancialInstitutions, resp.FinancialInstitutions},
	}
	for _, s := range sections {
		headingColor.Fprintf(w, "### %s\n", s.heading)
		fmt.Fprintln(w, s.text)
		fmt.Fprintln(w)
	}
}

func printHistory(w io.Writer, history advisor.History) {
	headingColor.Fprintln(w, advisor.HeadingHistory)
	lanes := []struct {
		title string
		lane  advisor.Lane
	}{
		{advisor.HistoryBestInvestments, history.BestInvestments},
		{advisor.HistoryAdvice, history.Advice},
		{advisor.HistoryFinancialInstitutions, history.FinancialInstitutions},
	}
	for _, l := range lanes {
		historyColor.Fprintf(w, "--- %s (%d) ---\n", l.title, len(l.lane.Turns))
		fmt.Fprintln(w, l.lane.Text)
	}
}

func printError(w io.Writer, err error) {
	errorColor.Fprintf(w, "error: %v\n", err)
}
