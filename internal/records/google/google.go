// Package google stores expense records as rows of a Google Sheets tab.
//
// The tab holds one record per row in columns A:E (id, date, amount,
// category, description) below a header row written by Init.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"walletnote/internal/core"
	"walletnote/internal/records"
)

var _ records.Store = (*Store)(nil)

var header = []interface{}{"ID", "Date", "Amount", "Category", "Description"}

// Options selects the spreadsheet and the credentials used to reach it.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// sheetAPI is the slice of the Sheets API the store needs.
type sheetAPI interface {
	getValues(ctx context.Context, rng string) ([][]interface{}, error)
	appendRow(ctx context.Context, rng string, row []interface{}) error
	updateValues(ctx context.Context, rng string, rows [][]interface{}) error
	// deleteRows removes the given zero-based rows of sheet.
	deleteRows(ctx context.Context, sheet string, rows []int) error
}

type Store struct {
	mu     sync.Mutex
	api    sheetAPI
	sheet  string
	closed bool
}

// New connects to the spreadsheet with service account credentials and
// ensures the header row exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_SPREADSHEET_ID", core.ErrStorageUnavailable)
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: sheets service: %w", core.ErrStorageUnavailable, err)
	}
	s := newStore(&googleAPI{svc: svc, spreadsheetID: opts.SpreadsheetID}, opts.SheetName)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(api sheetAPI, sheet string) *Store {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Expenses"
	}
	return &Store{api: api, sheet: sheet}
}

// newSheetsService initializes a Sheets service from inline JSON, a key file
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(opts.CredentialsJSON)
	credsFile := strings.TrimSpace(opts.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credsJSON != "":
		raw = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service", "credentials_size", len(raw))
	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func (s *Store) rangeOf(cols string) string {
	return fmt.Sprintf("'%s'!%s", s.sheet, cols)
}

// Init writes the header row when the tab is empty.
func (s *Store) Init(ctx context.Context) error {
	values, err := s.api.getValues(ctx, s.rangeOf("A1:E1"))
	if err != nil {
		return fmt.Errorf("%w: read header of %s: %w", core.ErrStorageUnavailable, s.sheet, err)
	}
	if len(values) > 0 && len(values[0]) > 0 {
		return nil
	}
	if err := s.api.updateValues(ctx, s.rangeOf("A1:E1"), [][]interface{}{header}); err != nil {
		return fmt.Errorf("%w: write header of %s: %w", core.ErrStorageUnavailable, s.sheet, err)
	}
	slog.InfoContext(ctx, "Initialized expenses sheet", "sheet", s.sheet)
	return nil
}

// errClosed is returned by every call made after Close.
func errClosed(sheet string) error {
	return fmt.Errorf("%w: store for %s is closed", core.ErrStorageUnavailable, sheet)
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	e, err := records.PrepareInsert(e)
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Expense{}, errClosed(s.sheet)
	}

	rows, err := s.readRows(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: read %s: %w", core.ErrStorageWrite, s.sheet, err)
	}
	for _, r := range rows {
		if r.expense.ID == e.ID {
			return core.Expense{}, fmt.Errorf("%w: %w: create expense %s", core.ErrStorageWrite, core.ErrDuplicate, e.ID)
		}
	}

	row := []interface{}{e.ID, e.Date.String(), e.Amount.Float64(), e.Category, e.Description}
	if err := s.api.appendRow(ctx, s.rangeOf("A:E"), row); err != nil {
		slog.ErrorContext(ctx, "Failed to append expense row", "error", err, "sheet", s.sheet)
		return core.Expense{}, fmt.Errorf("%w: append to %s: %w", core.ErrStorageWrite, s.sheet, err)
	}
	slog.InfoContext(ctx, "Expense appended to sheet",
		"id", e.ID,
		"sheet", s.sheet,
		"date", e.Date.String(),
		"amount", e.Amount.String())
	return e, nil
}

// sheetRow is a parsed record together with its zero-based row index.
type sheetRow struct {
	index   int
	expense core.Expense
}

func (s *Store) readRows(ctx context.Context) ([]sheetRow, error) {
	values, err := s.api.getValues(ctx, s.rangeOf("A:E"))
	if err != nil {
		return nil, err
	}
	out := make([]sheetRow, 0, len(values))
	for i, raw := range values {
		if i == 0 {
			continue
		}
		cols := toStrings(raw)
		if isBlank(cols) {
			continue
		}
		e, err := parseRow(cols)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed expense row", "sheet", s.sheet, "row", i+1, "error", err)
			continue
		}
		out = append(out, sheetRow{index: i, expense: e})
	}
	return out, nil
}

func (s *Store) Query(ctx context.Context, rng *core.DateRange) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed(s.sheet)
	}

	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrStorageRead, s.sheet, err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		if rng.Contains(r.expense.Date) {
			out = append(out, r.expense)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) SumAmount(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	items, err := s.Query(ctx, rng)
	if err != nil {
		return core.Money{}, err
	}
	var total core.Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *Store) Delete(ctx context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed(s.sheet)
	}

	rows, err := s.readRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", core.ErrStorageWrite, s.sheet, err)
	}
	var matches []int
	for _, r := range rows {
		if r.expense.SameValue(e) {
			matches = append(matches, r.index)
		}
	}
	if len(matches) == 0 {
		return 0, nil
	}
	if err := s.api.deleteRows(ctx, s.sheet, matches); err != nil {
		return 0, fmt.Errorf("%w: delete rows from %s: %w", core.ErrStorageWrite, s.sheet, err)
	}
	slog.InfoContext(ctx, "Expenses deleted from sheet", "sheet", s.sheet, "removed", len(matches))
	return int64(len(matches)), nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed(s.sheet)
	}

	rows, err := s.readRows(ctx)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", core.ErrStorageWrite, s.sheet, err)
	}
	for _, r := range rows {
		if r.expense.ID != id {
			continue
		}
		if err := s.api.deleteRows(ctx, s.sheet, []int{r.index}); err != nil {
			return fmt.Errorf("%w: delete expense %s: %w", core.ErrStorageWrite, id, err)
		}
		slog.InfoContext(ctx, "Expense deleted from sheet", "sheet", s.sheet, "id", id)
		return nil
	}
	return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
}

// parseRow converts the A:E cells of one sheet row into a record.
func parseRow(cols []string) (core.Expense, error) {
	if len(cols) < 4 {
		return core.Expense{}, fmt.Errorf("expected at least 4 columns, got %d", len(cols))
	}
	d, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseMoney(cols[2])
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:       cols[0],
		Date:     d,
		Amount:   amount,
		Category: cols[3],
	}
	if len(cols) > 4 {
		e.Description = cols[4]
	}
	return e.Normalized(), nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

// googleAPI is the sheetAPI backed by the real Sheets service.
type googleAPI struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (g *googleAPI) getValues(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (g *googleAPI) appendRow(ctx context.Context, rng string, row []interface{}) error {
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *googleAPI) updateValues(ctx context.Context, rng string, rows [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleAPI) deleteRows(ctx context.Context, sheet string, rows []int) error {
	sheetID, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	// Bottom-up so earlier deletions do not shift later indices.
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	reqs := make([]*gsheet.Request, 0, len(sorted))
	for _, r := range sorted {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(r),
					EndIndex:   int64(r + 1),
				},
			},
		})
	}
	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID,
		&gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	return err
}

func (g *googleAPI) sheetID(ctx context.Context, title string) (int64, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}
