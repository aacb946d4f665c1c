package transcript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/repcoach/repcoach/internal/domain"
)

// ExportText renders a transcript as human-readable plain text, one line
// per visible item in chronological order. The format is not a wire
// contract; only readability and stable ordering matter.
func ExportText(items []domain.TranscriptItem) string {
	sorted := make([]domain.TranscriptItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var b strings.Builder
	for _, item := range sorted {
		if item.Hidden {
			continue
		}
		ts := item.CreatedAt.Format("15:04:05")
		switch item.Type {
		case domain.ItemTypeMessage:
			speaker := "Customer"
			if item.Role == domain.RoleTrainee {
				speaker = "Rep"
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", ts, speaker, item.Title)
		case domain.ItemTypeBreadcrumb:
			fmt.Fprintf(&b, "[%s] -- %s\n", ts, item.Title)
		}
	}
	return b.String()
}
