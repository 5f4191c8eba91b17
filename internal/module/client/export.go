package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// MaxExportRows bounds a single export.
const MaxExportRows = 10000

const exportSheet = "Clients"

var exportHeader = []any{
	"ID", "Name", "Surname", "Email", "Phone", "Date of birth", "Age",
	"Street address", "City", "State", "Postal code", "Country",
	"Region", "Region code", "Latitude", "Longitude", "Accounts", "Created at",
}

// CollectExport pages through every client matching filter, up to
// MaxExportRows. The filter's own page and size are ignored.
func CollectExport(ctx context.Context, lister console.ClientLister, filter domain.ClientFilter) ([]domain.Client, error) {
	filter.Page = 0
	filter.Size = domain.MaxPageSize

	var all []domain.Client
	for {
		result, err := lister.ListClients(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Content...)
		if result.Last() || len(result.Content) == 0 || len(all) >= MaxExportRows {
			break
		}
		filter.Page++
	}
	if len(all) > MaxExportRows {
		all = all[:MaxExportRows]
	}
	return all, nil
}

// WriteXLSX writes clients as a single-sheet workbook. Ages are as of now.
func WriteXLSX(w io.Writer, clients []domain.Client, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "A", lastCol, 16); err != nil {
		return err
	}

	for i, c := range clients {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			c.ID, c.Name, c.Surname, c.Email, c.Phone, "", "",
			c.StreetAddress, c.City, c.State, c.PostalCode, c.Country,
			c.Region, c.RegionCode, "", "", len(c.Accounts), c.CreatedAt.Format(time.DateTime),
		}
		if c.DateOfBirth != nil {
			row[5] = c.DateOfBirth.String()
		}
		if age, ok := console.Age(c.DateOfBirth, now); ok {
			row[6] = age
		}
		if c.Latitude != nil {
			row[14] = *c.Latitude
		}
		if c.Longitude != nil {
			row[15] = *c.Longitude
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// writeExport streams the workbook for filter as an attachment.
func writeExport(c *gin.Context, lister console.ClientLister, filter domain.ClientFilter, now time.Time) {
	clients, err := CollectExport(c.Request.Context(), lister, filter)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	name := fmt.Sprintf("clients-%s.xlsx", now.Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := WriteXLSX(c.Writer, clients, now); err != nil {
		slog.ErrorContext(c.Request.Context(), "client export failed", "error", err)
		return
	}
	slog.InfoContext(c.Request.Context(), "clients exported", "rows", len(clients))
}
