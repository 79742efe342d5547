// Package merge concatenates per-page capture artifacts into the final
// output document.
package merge

import (
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/sathishvj/site-to-pdf/pkg/types"
)

// ArtifactPaths selects the artifacts of succeeded jobs in ascending
// sequence-index order. Exhausted or skipped jobs contribute nothing and
// leave no gap-filling placeholder. Ordering comes from the job sequence,
// never from a directory listing.
func ArtifactPaths(outcomes []types.Outcome) []string {
	succeeded := make([]types.Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.State == types.StateSucceeded && o.Artifact != "" {
			succeeded = append(succeeded, o)
		}
	}
	sort.Slice(succeeded, func(i, j int) bool {
		return succeeded[i].Job.Sequence < succeeded[j].Job.Sequence
	})

	paths := make([]string, 0, len(succeeded))
	for _, o := range succeeded {
		paths = append(paths, o.Artifact)
	}
	return paths
}

// Merge appends the given PDFs, in order, into one document at outPath.
// Pure concatenation: no re-rendering or content transformation.
func Merge(paths []string, outPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no artifacts to merge")
	}
	if err := api.MergeCreateFile(paths, outPath, false, nil); err != nil {
		return fmt.Errorf("merge %d artifacts into %s: %w", len(paths), outPath, err)
	}
	return nil
}
