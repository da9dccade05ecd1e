package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"clinic-ledger/backend/internal/model"
	"clinic-ledger/backend/internal/repository"
	"clinic-ledger/backend/pkg/clock"
)

// ── 导出模块业务错误 ──

var (
	ErrExportInvalidRange = errors.New("导出时间范围无效")
	ErrExportNoShifts     = errors.New("所选时间范围内没有班次")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const exportDateLayout = "2006-01-02"

// ExportService 导出业务接口（管理员）
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// from/to 为 YYYY-MM-DD，按业务时区解释，to 含当天。
type ExportService interface {
	// ExportShiftsExcel 每个班次一行：模板、用户、备用金、收入、支出、赊账
	ExportShiftsExcel(ctx context.Context, caller Caller, from, to string) (*bytes.Buffer, string, error)
	// ExportShiftsICS 每个班次一个 VEVENT
	ExportShiftsICS(ctx context.Context, caller Caller, from, to string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, clock: clk, logger: logger}
}

// shiftRow 单个班次的导出数据
type shiftRow struct {
	shift       model.Shift
	depenses    decimal.Decimal
	creditsOpen decimal.Decimal
	creditsPaid decimal.Decimal
}

// ═══════════════════════════════════════════════════════════
// ExportShiftsExcel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportShiftsExcel(ctx context.Context, caller Caller, from, to string) (*bytes.Buffer, string, error) {
	rows, err := s.loadRows(ctx, caller, from, to)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "班次"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"开始时间", "结束时间", "模板", "用户", "备用金", "收入", "支出", "未还赊账", "已还赊账"}
	f.SetColWidth(sheetName, "A", "B", 20)
	f.SetColWidth(sheetName, "C", "D", 16)
	f.SetColWidth(sheetName, "E", "I", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	loc := s.clock.Location()
	for i, r := range rows {
		row := i + 2
		sh := r.shift

		end := "-"
		if sh.EndTime != nil {
			end = sh.EndTime.In(loc).Format("2006-01-02 15:04")
		}
		tplName, userName := "-", "-"
		if sh.Template != nil {
			tplName = sh.Template.Name
		}
		if sh.User != nil {
			userName = sh.User.Name
		}
		fund, recette := decimal.Zero, decimal.Zero
		if sh.CashFund != nil {
			fund = sh.CashFund.Amount
		}
		if sh.Recette != nil {
			recette = sh.Recette.TotalAmount
		}

		values := []interface{}{
			sh.StartTime.In(loc).Format("2006-01-02 15:04"),
			end,
			tplName,
			userName,
			fund.InexactFloat64(),
			recette.InexactFloat64(),
			r.depenses.InexactFloat64(),
			r.creditsOpen.InexactFloat64(),
			r.creditsPaid.InexactFloat64(),
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("shifts_%s_%s.xlsx", from, to), nil
}

// ═══════════════════════════════════════════════════════════
// ExportShiftsICS
// ═══════════════════════════════════════════════════════════
//
// 未结束的班次以模板结束小时（或开始后 8 小时）作为 DTEND。

func (s *exportService) ExportShiftsICS(ctx context.Context, caller Caller, from, to string) (*bytes.Buffer, string, error) {
	rows, err := s.loadRows(ctx, caller, from, to)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//clinic-ledger//shifts//FR")

	stamp := s.clock.Now()
	for _, r := range rows {
		sh := r.shift
		evt := cal.AddEvent(sh.ShiftID + "@clinic-ledger")
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(sh.StartTime)
		evt.SetEndAt(plannedEnd(&sh))

		summary := "班次"
		if sh.Template != nil {
			summary = sh.Template.Name
		}
		if sh.User != nil {
			summary += " · " + sh.User.Name
		}
		evt.SetSummary(summary)

		recette := decimal.Zero
		if sh.Recette != nil {
			recette = sh.Recette.TotalAmount
		}
		evt.SetDescription(fmt.Sprintf("收入 %s / 支出 %s / 未还赊账 %s",
			recette.StringFixed(2), r.depenses.StringFixed(2), r.creditsOpen.StringFixed(2)))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("shifts_%s_%s.ics", from, to), nil
}

// ── 内部辅助方法 ──

func (s *exportService) loadRows(ctx context.Context, caller Caller, from, to string) ([]shiftRow, error) {
	if err := caller.require(CapExport); err != nil {
		return nil, err
	}

	start, end, err := parseRange(from, to, s.clock.Location())
	if err != nil {
		return nil, err
	}

	shifts, err := s.repo.Shift.ListBetween(ctx, start, end)
	if err != nil {
		s.logger.Error("查询导出班次失败", zap.Error(err))
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, ErrExportNoShifts
	}

	rows := make([]shiftRow, 0, len(shifts))
	for _, sh := range shifts {
		r := shiftRow{shift: sh}
		if r.depenses, err = s.repo.Depense.SumByShift(ctx, sh.ShiftID); err != nil {
			return nil, err
		}
		if r.creditsOpen, err = s.repo.Credit.SumUnpaidByShift(ctx, sh.ShiftID); err != nil {
			return nil, err
		}
		if r.creditsPaid, err = s.repo.Credit.SumPaidByShift(ctx, sh.ShiftID); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// parseRange 解析 [from 00:00, to+1 00:00)
func parseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(exportDateLayout, from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrExportInvalidRange
	}
	end, err := time.ParseInLocation(exportDateLayout, to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrExportInvalidRange
	}
	end = end.AddDate(0, 0, 1)
	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrExportInvalidRange
	}
	return start, end, nil
}

// plannedEnd 班次的结束时间；未结束时按模板推算
func plannedEnd(sh *model.Shift) time.Time {
	if sh.EndTime != nil {
		return *sh.EndTime
	}
	if sh.Template == nil {
		return sh.StartTime.Add(8 * time.Hour)
	}
	day := clock.StartOfDay(sh.StartTime)
	end := day.Add(time.Duration(sh.Template.EndHour) * time.Hour)
	if !end.After(sh.StartTime) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
