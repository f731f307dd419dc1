// Package cli provides output helpers for the cemantix command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/j0hanj0han/cemantix/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// TopProbes is how many probes the text output lists.
const TopProbes = 10

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// SolveReport is what the solve command prints.
type SolveReport struct {
	*models.SolveResult
	Hints *models.Hints `json:"hints,omitempty"`
}

// WriteSolveResult writes a solve result and its optional hints to w in the given format.
func WriteSolveResult(w io.Writer, result *models.SolveResult, hints *models.Hints, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, SolveReport{SolveResult: result, Hints: hints})
	}
	if result.Found {
		fmt.Fprintf(w, "\nPuzzle #%s solved: %q\n", result.Puzzle, result.Word)
	} else {
		fmt.Fprintf(w, "\nPuzzle #%s not solved (%s)\n", result.Puzzle, result.Reason)
	}
	fmt.Fprintf(w, "%d probes, %d requests, %d rounds in %s\n",
		result.CallCount, result.Requests, result.Rounds, result.Elapsed.Round(time.Millisecond))
	if result.Best != nil && !result.Found {
		fmt.Fprintf(w, "Best: %s (%.4f)\n", result.Best.Word, result.Best.Similarity)
	}

	top := topProbes(result.Probes, TopProbes)
	if len(top) > 0 {
		fmt.Fprintln(w, "\n--- Closest probes ---")
		for i, p := range top {
			fmt.Fprintf(w, "%2d. %-24s %7.4f", i+1, p.Word, p.Similarity)
			if p.Rank != nil {
				fmt.Fprintf(w, "  %4d‰", *p.Rank)
			}
			fmt.Fprintln(w)
		}
	}
	if !hints.Empty() {
		fmt.Fprintln(w, "\n--- Hints ---")
		fmt.Fprintf(w, "Level 1: %s\n", strings.Join(hints.Level1, ", "))
		fmt.Fprintf(w, "Level 2: %s\n", strings.Join(hints.Level2, ", "))
		fmt.Fprintf(w, "Level 3: %s\n", strings.Join(hints.Level3, ", "))
	}
	return nil
}

// topProbes returns the n highest-similarity probes; ties keep ledger order.
func topProbes(probes []models.Probe, n int) []models.Probe {
	sorted := append([]models.Probe(nil), probes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Similarity > sorted[j].Similarity })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// WriteSessions writes archived sessions, newest first.
func WriteSessions(w io.Writer, sessions []*models.Session, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if sessions == nil {
			sessions = []*models.Session{}
		}
		return writeJSON(w, map[string]interface{}{"sessions": sessions, "total": total})
	}
	fmt.Fprintf(w, "%d of %d sessions\n", len(sessions), total)
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  #%-5s %-9s", s.CreatedAt.Format("2006-01-02 15:04"), s.Puzzle, s.Status)
		switch {
		case s.Result != nil && s.Result.Found:
			fmt.Fprintf(w, " %-20s %d probes", s.Result.Word, s.Result.CallCount)
		case s.Result != nil:
			fmt.Fprintf(w, " %-20s %d probes", "-", s.Result.CallCount)
			if s.Result.Best != nil {
				fmt.Fprintf(w, ", best %s (%.4f)", s.Result.Best.Word, s.Result.Best.Similarity)
			}
		case s.Error != "":
			fmt.Fprintf(w, " %s", Truncate(s.Error, 60))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// Status summarizes the local installation.
type Status struct {
	Sessions       int64  `json:"sessions"`
	Vocabulary     int    `json:"vocabulary"`
	Dimensions     int    `json:"dimensions"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
	ModelPath      string `json:"model_path"`
	SnapshotPath   string `json:"snapshot_path,omitempty"`
	DatabasePath   string `json:"database_path"`
	OracleURL      string `json:"oracle_url"`
}

// WriteStatus writes st to w in the given format.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Sessions:    %d\n", st.Sessions)
	fmt.Fprintf(w, "Vocabulary:  %d words × %d dims\n", st.Vocabulary, st.Dimensions)
	fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(st.DiskUsageBytes))
	fmt.Fprintf(w, "Model:       %s\n", st.ModelPath)
	if st.SnapshotPath != "" {
		fmt.Fprintf(w, "Snapshot:    %s\n", st.SnapshotPath)
	}
	fmt.Fprintf(w, "Database:    %s\n", st.DatabasePath)
	fmt.Fprintf(w, "Oracle:      %s\n", st.OracleURL)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
