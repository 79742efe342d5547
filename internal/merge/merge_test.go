package merge

import (
	"reflect"
	"testing"

	"github.com/sathishvj/site-to-pdf/pkg/types"
)

func TestArtifactPathsSkipsExhaustedWithoutReindexing(t *testing.T) {
	outcomes := []types.Outcome{
		{Job: types.CaptureJob{URL: "https://a/0", Sequence: 0}, State: types.StateSucceeded, Artifact: "temp_pdfs/page_0000.pdf"},
		{Job: types.CaptureJob{URL: "https://a/1", Sequence: 1}, State: types.StateExhausted},
		{Job: types.CaptureJob{URL: "https://a/2", Sequence: 2}, State: types.StateSucceeded, Artifact: "temp_pdfs/page_0002.pdf"},
	}

	want := []string{"temp_pdfs/page_0000.pdf", "temp_pdfs/page_0002.pdf"}
	if got := ArtifactPaths(outcomes); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestArtifactPathsOrdersBySequenceNotInput(t *testing.T) {
	outcomes := []types.Outcome{
		{Job: types.CaptureJob{Sequence: 2}, State: types.StateSucceeded, Artifact: "p2.pdf"},
		{Job: types.CaptureJob{Sequence: 0}, State: types.StateSucceeded, Artifact: "p0.pdf"},
		{Job: types.CaptureJob{Sequence: 1}, State: types.StateSucceeded, Artifact: "p1.pdf"},
	}

	want := []string{"p0.pdf", "p1.pdf", "p2.pdf"}
	if got := ArtifactPaths(outcomes); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestArtifactPathsIgnoresSkippedAndEmptyArtifacts(t *testing.T) {
	outcomes := []types.Outcome{
		{Job: types.CaptureJob{Sequence: 0}, State: types.StateSkipped},
		{Job: types.CaptureJob{Sequence: 1}, State: types.StateSucceeded, Artifact: ""},
		{Job: types.CaptureJob{Sequence: 2}, State: types.StateSucceeded, Artifact: "p2.pdf"},
	}

	want := []string{"p2.pdf"}
	if got := ArtifactPaths(outcomes); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMergeRejectsEmptyInput(t *testing.T) {
	if err := Merge(nil, "out.pdf"); err == nil {
		t.Fatal("expected error when no artifacts were produced")
	}
}
