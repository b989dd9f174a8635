package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/avakara/ewaste-platform/internal/model"
)

const maxSheetName = 31

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a summary sheet followed by one detail sheet per request status.
func (g *Generator) Generate(report model.RequestReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Summary"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	groups := report.Groups()
	g.writeSummary(file, summarySheet, report, groups)

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range groups {
		sheetName := buildSheetName(string(group.Status), usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		g.writeDetail(file, sheetName, group)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report model.RequestReport, groups []model.RequestGroup) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Agency")
	set("B1", report.Agency.Name)
	set("A2", "Period start")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(report.PeriodEnd))
	set("A4", "Requests")
	set("B4", len(report.Requests))
	set("A5", "Total weight, kg")
	set("B5", formatWeight(report.TotalWeight()))

	row := 7
	set(fmt.Sprintf("A%d", row), "Status")
	set(fmt.Sprintf("B%d", row), "Requests")
	set(fmt.Sprintf("C%d", row), "Weight, kg")
	for _, group := range groups {
		row++
		set(fmt.Sprintf("A%d", row), string(group.Status))
		set(fmt.Sprintf("B%d", row), len(group.Requests))
		set(fmt.Sprintf("C%d", row), formatWeight(groupWeight(group)))
	}

	row += 2
	set(fmt.Sprintf("A%d", row), "Waste type")
	set(fmt.Sprintf("B%d", row), "Units")
	for _, total := range wasteTotals(report.Requests) {
		row++
		set(fmt.Sprintf("A%d", row), total.wasteType)
		set(fmt.Sprintf("B%d", row), total.units)
	}

	_ = file.SetColWidth(sheet, "A", "A", 28)
	_ = file.SetColWidth(sheet, "B", "B", 36)
	_ = file.SetColWidth(sheet, "C", "C", 14)
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, group model.RequestGroup) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Created",
		"Request",
		"Waste",
		"Weight, kg",
		"Pickup date",
		"Pickup address",
		"Stage",
		"Volunteer",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, req := range group.Requests {
		row := i + 2
		set(fmt.Sprintf("A%d", row), formatDateTime(req.CreatedAt))
		set(fmt.Sprintf("B%d", row), req.ID.String())
		set(fmt.Sprintf("C%d", row), formatItems(req.Items))
		set(fmt.Sprintf("D%d", row), formatWeight(req.Weight))
		set(fmt.Sprintf("E%d", row), formatDate(req.PickupDate))
		set(fmt.Sprintf("F%d", row), req.PickupAddress)
		set(fmt.Sprintf("G%d", row), string(req.Stage))
		set(fmt.Sprintf("H%d", row), formatVolunteer(req))
	}

	_ = file.SetColWidth(sheet, "A", "A", 20)
	_ = file.SetColWidth(sheet, "B", "B", 38)
	_ = file.SetColWidth(sheet, "C", "C", 30)
	_ = file.SetColWidth(sheet, "D", "E", 14)
	_ = file.SetColWidth(sheet, "F", "F", 45)
	_ = file.SetColWidth(sheet, "G", "H", 38)
}

func buildSheetName(name string, used map[string]struct{}) string {
	base := sanitizeSheetName(name)
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}

	candidate := base
	counter := 2
	for {
		if _, exists := used[candidate]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetName {
			trimmed = trimmed[:maxSheetName-len(suffix)]
		}
		candidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Sheet"
	}
	return value
}

type wasteTotal struct {
	wasteType string
	units     int
}

func wasteTotals(requests []model.Request) []wasteTotal {
	units := map[string]int{}
	for _, req := range requests {
		for _, item := range req.Items {
			units[item.NormalizedType()] += item.Quantity
		}
	}
	totals := make([]wasteTotal, 0, len(units))
	for wasteType, count := range units {
		totals = append(totals, wasteTotal{wasteType: wasteType, units: count})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].wasteType < totals[j].wasteType })
	return totals
}

func groupWeight(group model.RequestGroup) float64 {
	total := 0.0
	for _, req := range group.Requests {
		total += req.Weight
	}
	return total
}

func formatItems(items []model.WasteItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Type, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

func formatVolunteer(req model.Request) string {
	if req.VolunteerID == nil {
		return ""
	}
	return req.VolunteerID.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatWeight(value float64) string {
	return fmt.Sprintf("%.3f", value)
}
