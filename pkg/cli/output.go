package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/ekaya-inc/ekaya-discovery/pkg/feature"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
	"github.com/ekaya-inc/ekaya-discovery/pkg/services"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

// console prints human-facing progress and results. Structured logs go to
// the logger on stderr; this writes to the command's output.
type console struct {
	out   io.Writer
	start time.Time

	mu  sync.Mutex
	bar *progressbar.ProgressBar

	title *color.Color
	ok    *color.Color
	warn  *color.Color
	fail  *color.Color
	info  *color.Color
	dim   *color.Color
}

func newConsole(out io.Writer) *console {
	return &console{
		out:   out,
		start: time.Now(),
		title: color.New(color.FgCyan, color.Bold),
		ok:    color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		fail:  color.New(color.FgRed, color.Bold),
		info:  color.New(color.FgBlue),
		dim:   color.New(color.FgHiBlack),
	}
}

func (c *console) Phase(format string, args ...any) {
	c.title.Fprintf(c.out, "\n%s\n", fmt.Sprintf(format, args...))
	c.dim.Fprintln(c.out, strings.Repeat("-", 40))
}

func (c *console) Info(format string, args ...any) {
	c.info.Fprintf(c.out, "   "+format+"\n", args...)
}

func (c *console) Success(format string, args ...any) {
	c.ok.Fprintf(c.out, "   ✓ "+format+"\n", args...)
}

func (c *console) Warning(format string, args ...any) {
	c.warn.Fprintf(c.out, "   ! "+format+"\n", args...)
}

func (c *console) Failure(format string, args ...any) {
	c.fail.Fprintf(c.out, "   ✗ "+format+"\n", args...)
}

// Progress shows how many of the wanted members one example has found.
func (c *console) Progress(ex feature.Example, st services.BatchState, target int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		c.bar = progressbar.NewOptions(target,
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionSetDescription(fmt.Sprintf("example %d (%s)", ex.Index, ex.SearchKey())),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	_ = c.bar.Set(min(len(st.Matched), target))
}

// FinishProgress clears the current example's bar.
func (c *console) FinishProgress() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Finish()
		fmt.Fprintln(c.out)
		c.bar = nil
	}
}

// Summary prints one example's outcome. Concurrent examples may call it
// from several goroutines.
func (c *console) Summary(s *models.RunSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case s.Error != "":
		c.Failure("example %d (%s): %s", s.ExampleIndex, s.SearchKey, s.Error)
		return
	case s.Satisfied:
		c.Success("example %d (%s): %d/%d members after %d pages", s.ExampleIndex, s.SearchKey, s.ChosenCount, s.TargetCount, s.PagesFetched)
	default:
		c.Warning("example %d (%s): only %d/%d members (%s)", s.ExampleIndex, s.SearchKey, s.ChosenCount, s.TargetCount, s.StopReason)
	}
	if s.CandidatesFile != "" {
		c.Info("candidates: %s", s.CandidatesFile)
	}
	switch {
	case s.WarehouseError != "":
		c.Failure("warehouse: %s", s.WarehouseError)
	case s.WarehouseOutputFile != nil:
		c.Info("warehouse: %d rows via %s -> %s", s.WarehouseRows, s.WarehouseStrategy, *s.WarehouseOutputFile)
	}
	for _, r := range s.Rejections {
		c.dim.Fprintf(c.out, "     rejected: %s\n", r)
	}
}

// Report prints the run totals.
func (c *console) Report(r *services.PipelineReport) {
	satisfied := 0
	for _, s := range r.Summaries {
		if s.Satisfied {
			satisfied++
		}
	}
	c.Phase("Run complete")
	c.Info("examples:  %d processed, %d satisfied, %d skipped", len(r.Summaries), satisfied, len(r.Skipped))
	c.Info("llm:       %d calls, %d prompt + %d completion tokens, $%.4f",
		r.Usage.Calls, r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.CostUSD)
	c.Info("elapsed:   %v", time.Since(c.start).Round(time.Millisecond))
}

// Verdict prints a validation outcome.
func (c *console) Verdict(v sqlpkg.Verdict) {
	if v.Passed {
		c.Success("statement passed")
		if cols := sqlpkg.OutputColumns(v.SQL); len(cols) > 0 {
			names := make([]string, len(cols))
			for i, col := range cols {
				names[i] = col.Name
			}
			c.Info("columns: %s", strings.Join(names, ", "))
		}
		return
	}
	c.Failure("%s rejection: %s", v.Kind, v.Reason)
	for _, issue := range v.Issues {
		c.dim.Fprintf(c.out, "     %s\n", issue)
	}
}
