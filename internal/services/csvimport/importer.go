package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"TradeLens/internal/domain/models"
	"TradeLens/pkg/util"
)

// Default values applied when the CSV leaves a column blank.
const (
	defaultOrderType       = "MARKET"
	defaultWebullOrderType = "DAY"
)

// Importer parses broker CSV exports into executions. The two supported
// layouts are the plain journal format (symbol, side, quantity, price,
// timestamp, ...) and Webull order exports; the header row decides which.
type Importer struct {
	maxRows int
}

func NewImporter(maxRows int) *Importer {
	return &Importer{maxRows: maxRows}
}

// Parse decodes csvData and returns the accepted executions plus one error
// per rejected line. Bad rows never abort the batch. Lines count from 1
// including the header.
func (im *Importer) Parse(csvData string) ([]models.Execution, []models.ImportRowError, error) {
	reader := csv.NewReader(strings.NewReader(csvData))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.New("csv payload is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := headerIndex(header)
	webull := isWebullHeader(cols)

	var (
		execs    []models.Execution
		rowErrs  []models.ImportRowError
		line     = 1
		accepted int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, models.ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		if im.maxRows > 0 && accepted >= im.maxRows {
			return nil, nil, fmt.Errorf("csv exceeds the %d row import limit", im.maxRows)
		}

		row := newRow(cols, record)
		var exec *models.Execution
		if webull {
			exec, err = parseWebullRow(row)
		} else {
			exec, err = parseStandardRow(row)
		}
		if err != nil {
			rowErrs = append(rowErrs, models.ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		if exec == nil {
			continue // cancelled or zero-filled broker rows
		}
		execs = append(execs, *exec)
		accepted++
	}

	return execs, rowErrs, nil
}

// headerIndex maps lower-cased trimmed column names to their positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "﻿")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

// isWebullHeader spots the columns only Webull order exports carry.
func isWebullHeader(cols map[string]int) bool {
	for _, marker := range []string{"filled", "placed time", "filled time"} {
		if _, ok := cols[marker]; ok {
			return true
		}
	}
	return false
}

type row struct {
	cols   map[string]int
	record []string
}

func newRow(cols map[string]int, record []string) row {
	return row{cols: cols, record: record}
}

func (r row) get(name string) string {
	idx, ok := r.cols[name]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

// first returns the first non-empty value among the named columns.
func (r row) first(names ...string) string {
	for _, n := range names {
		if v := r.get(n); v != "" {
			return v
		}
	}
	return ""
}

func parseStandardRow(r row) (*models.Execution, error) {
	symbol := util.NormalizeSymbol(r.get("symbol"))
	if symbol == "" {
		return nil, errors.New("missing symbol")
	}
	side, err := normalizeSide(r.get("side"))
	if err != nil {
		return nil, err
	}

	qty, ok := util.ParseFloat(r.get("quantity"))
	if !ok || qty <= 0 {
		return nil, fmt.Errorf("invalid quantity %q", r.get("quantity"))
	}
	price, ok := util.ParseFloat(r.get("price"))
	if !ok || price <= 0 {
		return nil, fmt.Errorf("invalid price %q", r.get("price"))
	}
	ts, ok := util.ParseTime(r.get("timestamp"))
	if !ok {
		return nil, fmt.Errorf("invalid timestamp %q", r.get("timestamp"))
	}

	exec := &models.Execution{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: ts,
		OrderType: strings.ToUpper(r.get("order_type")),
		Status:    strings.ToUpper(r.get("status")),
		Notes:     r.get("notes"),
	}
	if exec.OrderType == "" {
		exec.OrderType = defaultOrderType
	}
	if exec.Status == "" {
		exec.Status = models.StatusFilled
	}
	if fees, ok := util.ParseFloat(r.get("fees")); ok {
		exec.Fees = fees
	}
	return exec, nil
}

// parseWebullRow maps one Webull order row. Cancelled and zero-filled
// orders return (nil, nil): they are order history, not trades.
func parseWebullRow(r row) (*models.Execution, error) {
	status := r.get("status")
	if strings.EqualFold(status, "Cancelled") {
		return nil, nil
	}
	filled, ok := util.ParseFloat(r.get("filled"))
	if !ok || filled <= 0 {
		return nil, nil
	}

	symbol := util.NormalizeSymbol(r.get("symbol"))
	if symbol == "" {
		return nil, errors.New("missing symbol")
	}
	side, err := normalizeSide(r.get("side"))
	if err != nil {
		return nil, err
	}

	// Prefer the fill average over the order limit price.
	price, ok := parseAtPrice(r.first("avg price", "price"))
	if !ok || price <= 0 {
		return nil, fmt.Errorf("invalid price %q", r.first("avg price", "price"))
	}

	// Fill time beats placed time when the broker recorded one.
	ts, ok := parseWebullTime(r.first("filled time", "placed time"))
	if !ok {
		return nil, fmt.Errorf("invalid timestamp %q", r.first("filled time", "placed time"))
	}

	exec := &models.Execution{
		Symbol:    symbol,
		Side:      side,
		Quantity:  filled,
		Price:     price,
		Timestamp: ts,
		OrderType: strings.ToUpper(r.get("time-in-force")),
		Status:    models.StatusFilled,
		Notes:     r.get("name"),
	}
	if exec.OrderType == "" {
		exec.OrderType = defaultWebullOrderType
	}
	if fees, ok := util.ParseFloat(r.first("commission", "fees", "fee", "total fees")); ok {
		exec.Fees = fees
	}
	return exec, nil
}

func normalizeSide(s string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case models.SideBuy:
		return models.SideBuy, nil
	case models.SideSell:
		return models.SideSell, nil
	case "":
		return "", errors.New("missing side")
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// parseAtPrice strips Webull's "@" prefix before parsing.
func parseAtPrice(s string) (float64, bool) {
	return util.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// parseWebullTime reads "MM/DD/YYYY HH:MM:SS EST". The zone token is
// dropped; session times stay naive the way the broker wrote them.
func parseWebullTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	fields := strings.Fields(s)
	if len(fields) >= 2 {
		if t, err := time.ParseInLocation("01/02/2006 15:04:05", fields[0]+" "+fields[1], time.UTC); err == nil {
			return t, true
		}
		if t, err := time.ParseInLocation("01/02/2006 15:04", fields[0]+" "+fields[1], time.UTC); err == nil {
			return t, true
		}
	}
	return util.ParseTime(s)
}
