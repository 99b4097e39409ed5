package spreadsheet

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	return f.GetRows(sheets[0])
}
