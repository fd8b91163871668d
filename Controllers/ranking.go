package Controllers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"Workforce/Lifecycle"
	"Workforce/Scoring"
)

type RankingController struct {
	Service *Lifecycle.Service
	Now     func() time.Time
}

func NewRankingController(service *Lifecycle.Service) *RankingController {
	return &RankingController{Service: service, Now: time.Now}
}

// Ranking returns assignees ordered by total score over the caller's
// visible tasks.
func (r *RankingController) Ranking(c *fiber.Ctx) error {
	rows, err := r.Service.Ranking(c.UserContext(), actor(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	if rows == nil {
		rows = []Scoring.Row{}
	}
	return c.JSON(rows)
}

// Export sends the same ranking as an xlsx workbook.
func (r *RankingController) Export(c *fiber.Ctx) error {
	rows, err := r.Service.Ranking(c.UserContext(), actor(c).ID)
	if err != nil {
		return respondError(c, err)
	}

	buf, err := rankingWorkbook(rows)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("Failed to build workbook: %v", err)})
	}

	filename := fmt.Sprintf("ranking_%s.xlsx", r.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(buf.Bytes())
}

func rankingWorkbook(rows []Scoring.Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ranking"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("error removing default sheet: %w", err)
	}

	headers := []string{"Rank", "User ID", "Name", "Total Score", "Completed Tasks"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	if style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	}); err == nil {
		f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, row := range rows {
		values := []interface{}{i + 1, row.UserID, row.Name, row.TotalScore, row.CompletedCount}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}
	f.SetColWidth(sheet, "A", "E", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return &buf, nil
}
