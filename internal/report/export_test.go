package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/provoke-dev/provoke/internal/report"
	"github.com/provoke-dev/provoke/pkg/models"
)

func TestExportJSON(t *testing.T) {
	runs := sampleRuns()

	var buf bytes.Buffer
	if err := report.ExportJSON(&buf, runs); err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}

	var decoded []*models.RunRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(decoded))
	}
	if decoded[0].ID != runs[0].ID {
		t.Errorf("Expected run ID %q, got %q", runs[0].ID, decoded[0].ID)
	}
	if decoded[1].ErrorCode != "NotFound" {
		t.Errorf("Expected error code NotFound, got %q", decoded[1].ErrorCode)
	}
}

func TestExportCSV(t *testing.T) {
	runs := sampleRuns()
	runs[0].Warnings = []string{"one", "two"}

	var buf bytes.Buffer
	if err := report.ExportCSV(&buf, runs); err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Export is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d records", len(records))
	}

	header := records[0]
	if header[0] != "id" || header[5] != "state" {
		t.Errorf("Unexpected header layout: %v", header)
	}

	first := records[1]
	if first[0] != runs[0].ID {
		t.Errorf("Expected run ID %q, got %q", runs[0].ID, first[0])
	}
	if first[1] != "CREATE" {
		t.Errorf("Expected action CREATE, got %q", first[1])
	}
	if first[9] != "one; two" {
		t.Errorf("Expected joined warnings, got %q", first[9])
	}
	if first[12] != "900" {
		t.Errorf("Expected duration 900ms, got %q", first[12])
	}

	second := records[2]
	if second[7] != "NotFound" {
		t.Errorf("Expected error code NotFound, got %q", second[7])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := report.ExportCSV(&buf, nil); err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Export is not valid CSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected header only, got %d records", len(records))
	}
}
