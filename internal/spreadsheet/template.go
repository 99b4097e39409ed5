package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/records/internal/domain"
)

// TemplateSheet is the sheet name used in generated templates.
const TemplateSheet = "Records"

// TemplateHeader is the header row expected by the importer.
var TemplateHeader = []string{"name", "position", "level"}

// Template builds an .xlsx workbook with the import header, one example row
// and a drop-down restricting the level column to the allowed values.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(TemplateHeader))
	for i, h := range TemplateHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(TemplateSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	example := []any{"Jane Doe", "Software Engineer", string(domain.LevelJunior)}
	if err := f.SetSheetRow(TemplateSheet, "A2", &example); err != nil {
		return nil, fmt.Errorf("write example row: %w", err)
	}

	levels := make([]string, len(domain.Levels))
	for i, l := range domain.Levels {
		levels[i] = string(l)
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = "C2:C1048576"
	if err := dv.SetDropList(levels); err != nil {
		return nil, fmt.Errorf("level list: %w", err)
	}
	if err := f.AddDataValidation(TemplateSheet, dv); err != nil {
		return nil, fmt.Errorf("add level validation: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
