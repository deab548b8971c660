package postgres

import (
	"strings"
	"testing"
	"time"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

func TestNormalizeFileSourceAppendsTarSuffix(t *testing.T) {
	if got := normalizeFileSource("export", nil); got != "export.tar" {
		t.Fatalf("normalizeFileSource(export) = %q, want %q", got, "export.tar")
	}
	if got := normalizeFileSource("export.tar", nil); got != "export.tar" {
		t.Fatalf("normalizeFileSource should be a no-op when already suffixed, got %q", got)
	}
}

func TestValidateArchiveRequiresTaskID(t *testing.T) {
	err := validateArchive(skypeetl.Export{FileSource: "export.tar"})
	if err == nil || !strings.Contains(err.Error(), "task_id") {
		t.Fatalf("expected task_id error, got %v", err)
	}
}

func TestValidateArchiveAcceptsWellFormedSource(t *testing.T) {
	if err := validateArchive(skypeetl.Export{TaskID: "t1", FileSource: "export.tar"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestExportDateAsTimeParsesFlexibleFormat(t *testing.T) {
	got := exportDateAsTime(skypeetl.Export{ExportDate: "2024-03-05T10:00:00Z"})
	want := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("exportDateAsTime = %v, want %v", got, want)
	}
}

func TestExportDateAsTimeFallsBackToCreatedAt(t *testing.T) {
	got := exportDateAsTime(skypeetl.Export{ExportDate: "not a date", CreatedAt: 1000})
	if got.Unix() != 1000 {
		t.Fatalf("expected fallback to CreatedAt, got %v", got)
	}
}
