package ledger

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteInventoryXLSX renders a store inventory view as an xlsx
// workbook and returns the serialized bytes.
func WriteInventoryXLSX(storeID int64, rows []InventoryRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	sheet := "Sheet1"

	f.SetCellValue(sheet, "A1", "Product ID")
	f.SetCellValue(sheet, "B1", "Product Name")
	f.SetCellValue(sheet, "C1", "Current Stock")

	for i, row := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), row.ProductID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), row.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", i+2), row.CurrentStock)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("ledger: write inventory workbook for store %d: %w", storeID, err)
	}
	return buf.Bytes(), nil
}
