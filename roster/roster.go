// Package roster imports the genesis transactions of a ledger from a spreadsheet: a sheet of
// pre-verified principals and an optional sheet of transactions.
package roster

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

const TransactionsSheet = "Transactions"

// Import reads the roster at filePath and returns the transactions to submit at genesis: one
// verify-user call by admin per verified principal, followed by the rows of the transactions
// sheet if the workbook has one.
func Import(filePath string, admin types.Principal) ([]*types.Tx, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("Failed to close Excel file", "error", err)
		}
	}()

	principals, err := parseVerified(f, config.DefaultRosterSheet)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Tx, 0, len(principals))
	for _, p := range principals {
		txs = append(txs, &types.Tx{Caller: admin, Kind: types.TxVerifyUser, Target: p})
	}

	if idx, err := f.GetSheetIndex(TransactionsSheet); err != nil || idx < 0 {
		return txs, nil
	}
	extra, err := parseTxs(f, TransactionsSheet)
	if err != nil {
		return nil, err
	}
	return append(txs, extra...), nil
}

// parseVerified returns the principals listed in the first column of sheet, skipping the
// header row, blank rows and duplicates.
func parseVerified(f *excelize.File, sheet string) ([]types.Principal, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet %s", sheet)
	}

	seen := make(map[types.Principal]struct{})
	principals := make([]types.Principal, 0, len(rows)-1)
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			slog.Warn("Row has no principal", "sheet", sheet, "row", i+1)
			continue
		}
		p := types.Principal(strings.TrimSpace(row[0]))
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		principals = append(principals, p)
	}
	return principals, nil
}

// transaction sheet columns
const (
	colCaller = iota
	colKind
	colTarget
	colID
	colAmount
	colCategory
	colWeight
	colReason
	colFlag
)

func parseTxs(f *excelize.File, sheet string) ([]*types.Tx, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	txs := make([]*types.Tx, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		tx, err := parseTx(row)
		if err != nil {
			slog.Warn("Failed to parse transaction", "sheet", sheet, "row", i+1, "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseTx(row []string) (*types.Tx, error) {
	cell := func(col int) string {
		if col < len(row) {
			return strings.TrimSpace(row[col])
		}
		return ""
	}
	number := func(col int) (uint64, error) {
		if cell(col) == "" {
			return 0, nil
		}
		return strconv.ParseUint(cell(col), 10, 64)
	}

	tx := &types.Tx{
		Caller:   types.Principal(cell(colCaller)),
		Kind:     types.TxKind(cell(colKind)),
		Target:   types.Principal(cell(colTarget)),
		Category: types.Category(cell(colCategory)),
		Reason:   cell(colReason),
	}
	if tx.Caller == "" {
		return nil, fmt.Errorf("missing caller")
	}
	if !tx.Kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", tx.Kind)
	}

	var err error
	if tx.ID, err = number(colID); err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}
	if tx.Amount, err = number(colAmount); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if tx.Weight, err = number(colWeight); err != nil {
		return nil, fmt.Errorf("invalid weight: %w", err)
	}
	if flag := cell(colFlag); flag != "" {
		if tx.Flag, err = strconv.ParseBool(flag); err != nil {
			return nil, fmt.Errorf("invalid flag: %w", err)
		}
	}
	return tx, nil
}
