package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
)

// readXLS reads the first sheet of a BIFF workbook. The xls reader panics on
// some malformed files, so panics surface as errors.
func readXLS(data []byte) (matrix [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			matrix, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoSheet
	}

	matrix = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			matrix = append(matrix, nil)
			continue
		}
		line := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			line = append(line, row.Col(c))
		}
		matrix = append(matrix, line)
	}
	return matrix, nil
}
