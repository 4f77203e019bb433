package notification

import (
	"Go2FlowText/internal/model"
	"fmt"
	"strings"
	"time"
)

// RunSummary renders the subject and body of the end-of-run mail.
func RunSummary(ds *model.Dataset, elapsed time.Duration, runErr error) (string, string) {
	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	subject := fmt.Sprintf("[flowtext] dataset '%s' %s", ds.Name, status)

	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", ds.Name)
	fmt.Fprintf(&b, "Elapsed: %s\n", elapsed.Round(time.Second))
	if runErr != nil {
		fmt.Fprintf(&b, "Error: %v\n", runErr)
	}
	fmt.Fprintf(&b, "Rows: %d (train %d, val %d, test %d)\n", len(ds.All), len(ds.Train), len(ds.Val), len(ds.Test))

	counts := make(map[int]int)
	for _, row := range ds.All {
		counts[row.Label]++
	}
	b.WriteString("Classes:\n")
	for _, l := range ds.Labels {
		fmt.Fprintf(&b, "  %d %s: %d\n", l.Int, l.Str, counts[l.Int])
	}
	return subject, b.String()
}
