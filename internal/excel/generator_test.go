package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/avakara/ewaste-platform/internal/model"
)

func TestGenerateWritesSummaryAndStatusSheets(t *testing.T) {
	report := model.RequestReport{
		Agency:      model.Agency{Name: "Green Loop"},
		PeriodStart: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		Requests: []model.Request{
			{ID: uuid.New(), Status: model.RequestStatusCompleted, Weight: 4.5, Items: []model.WasteItem{{Type: "Laptop", Quantity: 2}}},
			{ID: uuid.New(), Status: model.RequestStatusPending, Weight: 1, Items: []model.WasteItem{{Type: "mobile", Quantity: 3}}},
			{ID: uuid.New(), Status: model.RequestStatusCompleted, Weight: 2, Items: []model.WasteItem{{Type: "laptop", Quantity: 1}}},
		},
	}

	content, err := NewGenerator().Generate(report)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	want := []string{"Summary", "Pending", "Completed"}
	if len(sheets) != len(want) {
		t.Fatalf("expected sheets %v, got %v", want, sheets)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Fatalf("expected sheets %v, got %v", want, sheets)
		}
	}

	total, _ := file.GetCellValue("Summary", "B5")
	if total != "7.500" {
		t.Fatalf("expected total weight 7.500, got %q", total)
	}
	rows, _ := file.GetRows("Completed")
	if len(rows) != 3 {
		t.Fatalf("expected header plus two completed rows, got %d", len(rows))
	}
}

func TestBuildSheetNameDeduplicates(t *testing.T) {
	used := map[string]struct{}{"Pending": {}}
	if got := buildSheetName("Pending", used); got != "Pending-2" {
		t.Fatalf("expected Pending-2, got %q", got)
	}
	if got := buildSheetName("a/b", map[string]struct{}{}); got != "a-b" {
		t.Fatalf("expected sanitised name, got %q", got)
	}
}

func TestWasteTotalsNormalisesTypes(t *testing.T) {
	totals := wasteTotals([]model.Request{
		{Items: []model.WasteItem{{Type: "Laptop", Quantity: 2}, {Type: "batteries", Quantity: 4}}},
		{Items: []model.WasteItem{{Type: "laptop", Quantity: 1}}},
	})
	if len(totals) != 2 || totals[0].wasteType != "batteries" || totals[1].units != 3 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}
