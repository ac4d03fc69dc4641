package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// RenderOptions controls terminal output.
type RenderOptions struct {
	Color bool
	// Width caps the title column. Zero means 72.
	Width int
}

type palette struct {
	pass, fail, errored, dim, location *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		pass:     color.New(color.FgGreen, color.Bold),
		fail:     color.New(color.FgRed, color.Bold),
		errored:  color.New(color.FgYellow, color.Bold),
		dim:      color.New(color.Faint),
		location: color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.errored, p.dim, p.location} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Render prints doc as a human readable report.
func Render(w io.Writer, doc Document, opts RenderOptions) error {
	width := opts.Width
	if width <= 0 {
		width = 72
	}
	p := newPalette(opts.Color)

	for _, res := range doc.Audits {
		mark, markColor := "✓", p.pass
		switch {
		case res.Errored():
			mark, markColor = "!", p.errored
		case !res.Passed():
			mark, markColor = "✗", p.fail
		}

		title := res.Title
		if title == "" {
			title = res.ID
		}
		title = runewidth.FillRight(runewidth.Truncate(title, width, "..."), width)

		if _, err := fmt.Fprintf(w, "%s %s %s\n", markColor.Sprint(mark), title, p.dim.Sprint(scoreLabel(res.Score))); err != nil {
			return err
		}

		if res.Errored() {
			if _, err := fmt.Fprintf(w, "    %s\n", p.errored.Sprint(res.ErrorMessage)); err != nil {
				return err
			}
			continue
		}

		if len(res.Details.Items) == 0 {
			continue
		}

		if len(res.Details.Headings) > 0 {
			if _, err := fmt.Fprintf(w, "    %s\n", p.dim.Sprint(res.Details.Headings[0].Text)); err != nil {
				return err
			}
		}
		for _, item := range res.Details.Items {
			if _, err := fmt.Fprintf(w, "    %s\n", p.location.Sprint(item.Source.String())); err != nil {
				return err
			}
		}
	}

	s := Summarize(doc)
	_, err := fmt.Fprintf(w, "\n%d audits: %s, %s, %s\n",
		s.Audits,
		p.pass.Sprintf("%d passed", s.Passed),
		p.fail.Sprintf("%d failed", s.Failed),
		p.errored.Sprintf("%d errored", s.Errored),
	)
	return err
}

func scoreLabel(score *float64) string {
	if score == nil {
		return "score n/a"
	}
	return "score " + strconv.FormatFloat(*score, 'f', -1, 64)
}
