package model

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSeverity_String(t *testing.T) {
	t.Parallel()

	got := make([]string, 0, 5)
	for _, s := range []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, Severity(42)} {
		got = append(got, s.String())
	}
	want := []string{"INFO", "LOW", "MEDIUM", "HIGH", "UNKNOWN"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("severity names mismatch (-want +got):\n%s", diff)
	}
}

// Sorting by severity must put privacy leaks ahead of export problems.
func TestSeverity_SortsByImportance(t *testing.T) {
	t.Parallel()

	findings := []string{FindingExifDevice, FindingCycle, FindingAssetFailed, FindingExifGPS}
	slices.SortStableFunc(findings, func(a, b string) int {
		return int(GetSeverity(b)) - int(GetSeverity(a))
	})

	want := []string{FindingExifGPS, FindingAssetFailed, FindingCycle, FindingExifDevice}
	if diff := cmp.Diff(want, findings); diff != "" {
		t.Errorf("sorted findings mismatch (-want +got):\n%s", diff)
	}
}

func TestGetSeverity(t *testing.T) {
	t.Parallel()

	cases := map[string]Severity{
		FindingExifGPS:           SeverityHigh,
		FindingExifSerial:        SeverityMedium,
		FindingIncomplete:        SeverityMedium,
		FindingAssetFailed:       SeverityMedium,
		FindingFilenameCollision: SeverityLow,
		FindingCycle:             SeverityLow,
		FindingExifDevice:        SeverityInfo,
		"not_a_finding":          SeverityInfo,
	}
	for findingType, want := range cases {
		t.Run(findingType, func(t *testing.T) {
			t.Parallel()
			if got := GetSeverity(findingType); got != want {
				t.Errorf("GetSeverity(%q) = %v, want %v", findingType, got, want)
			}
		})
	}
}

func TestGetFindingInfo(t *testing.T) {
	t.Parallel()

	for findingType, info := range findingInfoMapping {
		if info.Impact == "" || info.Recommendation == "" {
			t.Errorf("%s: missing guidance: %+v", findingType, info)
		}
		if got := GetFindingInfo(findingType); got != info {
			t.Errorf("GetFindingInfo(%q) = %+v, want %+v", findingType, got, info)
		}
	}

	fallback := GetFindingInfo("not_a_finding")
	if fallback.Severity != SeverityInfo || fallback.Impact == "" {
		t.Errorf("unexpected fallback: %+v", fallback)
	}
}
