package store

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/resilience"
)

// ValuesClient is the slice of the Sheets values API the store uses.
type ValuesClient interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	Append(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
}

// Cells are written RAW so user text is never evaluated as a formula.
const valueInputOption = "RAW"

type googleValues struct {
	svc *sheets.Service
}

func (g *googleValues) Get(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleValues) Update(ctx context.Context, id, rng string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	return err
}

func (g *googleValues) Append(ctx context.Context, id, rng string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Append(id, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *googleValues) Clear(ctx context.Context, id, rng string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// SheetsConfig locates the spreadsheet and tunes the client.
type SheetsConfig struct {
	SpreadsheetID     string
	CredentialsBase64 string
	CredentialsFile   string
	RecordsSheet      string
	HistorySheet      string
	RequestsPerMinute int
	Breaker           resilience.Config
}

// SheetsStore keeps records and history in two worksheets of one Google
// spreadsheet.
type SheetsStore struct {
	client  ValuesClient
	id      string
	records string
	history string
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewSheets authenticates with a service account key and returns a store.
func NewSheets(ctx context.Context, cfg SheetsConfig) (*SheetsStore, error) {
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	jwt, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: parse service account key")
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return NewSheetsWithClient(&googleValues{svc: svc}, cfg), nil
}

// NewSheetsWithClient builds a store over any ValuesClient.
func NewSheetsWithClient(client ValuesClient, cfg SheetsConfig) *SheetsStore {
	s := &SheetsStore{
		client:  client,
		id:      cfg.SpreadsheetID,
		records: cfg.RecordsSheet,
		history: cfg.HistorySheet,
		limiter: rate.NewLimiter(rate.Inf, 1),
		breaker: resilience.New(cfg.Breaker),
	}
	if s.records == "" {
		s.records = "MarketIntelligenceGAS"
	}
	if s.history == "" {
		s.history = "History"
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return s
}

func credentials(cfg SheetsConfig) ([]byte, error) {
	switch {
	case cfg.CredentialsBase64 != "":
		b, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: decode base64 credentials")
		}
		return b, nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, eris.Wrap(err, "sheets: read credentials file")
		}
		return b, nil
	default:
		return nil, eris.New("sheets: no service account credentials configured")
	}
}

// Breaker exposes the circuit breaker so /health can report its state.
func (s *SheetsStore) Breaker() *resilience.Breaker {
	return s.breaker
}

func (s *SheetsStore) Close() error { return nil }

// Migrate writes the header rows into empty worksheets.
func (s *SheetsStore) Migrate(ctx context.Context) error {
	for sheet, header := range map[string][]string{
		s.records: model.RecordHeader,
		s.history: model.AuditHeader,
	} {
		rows, err := s.get(ctx, sheet+"!1:1")
		if err != nil {
			return eris.Wrapf(err, "sheets: read header of %s", sheet)
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			continue
		}
		if err := s.call(ctx, func(ctx context.Context) error {
			return s.client.Update(ctx, s.id, sheet+"!A1", [][]any{toArgs(header)})
		}); err != nil {
			return eris.Wrapf(err, "sheets: write header of %s", sheet)
		}
		zap.L().Info("sheets: wrote header", zap.String("sheet", sheet))
	}
	return nil
}

func (s *SheetsStore) LoadAll(ctx context.Context) (*Snapshot, error) {
	rows, err := s.readRecords(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Records: decodeRecords(rows), Version: fingerprint(rows)}, nil
}

// ReplaceAll rewrites the records worksheet. The version is a fingerprint of
// the sheet contents, so the check and the write are not atomic; a
// concurrent writer between them is not detected.
func (s *SheetsStore) ReplaceAll(ctx context.Context, records []model.Record, expectedVersion string) (string, error) {
	if expectedVersion != "" {
		rows, err := s.readRecords(ctx)
		if err != nil {
			return "", err
		}
		if err := versionConflict(expectedVersion, fingerprint(rows)); err != nil {
			return "", err
		}
	}

	out := make([][]string, 0, len(records)+1)
	out = append(out, model.RecordHeader)
	for _, r := range records {
		out = append(out, model.EncodeRecord(r))
	}
	values := make([][]any, len(out))
	for i, row := range out {
		values[i] = toArgs(row)
	}

	// Overwrite in place, then clear what is left below the new rows, so a
	// failed write never leaves the sheet empty.
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.client.Update(ctx, s.id, s.records+"!A1", values)
	}); err != nil {
		return "", eris.Wrap(err, "sheets: write records")
	}
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.client.Clear(ctx, s.id, fmt.Sprintf("%s!A%d:ZZ", s.records, len(values)+1))
	}); err != nil {
		return "", eris.Wrap(err, "sheets: clear stale rows")
	}

	zap.L().Debug("sheets: replaced records", zap.Int("count", len(records)))
	return fingerprint(out), nil
}

func (s *SheetsStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	err := s.call(ctx, func(ctx context.Context) error {
		return s.client.Append(ctx, s.id, s.history+"!A1", [][]any{toArgs(model.EncodeAudit(entry))})
	})
	return eris.Wrapf(err, "sheets: append audit %s", entry.ID)
}

func (s *SheetsStore) ListAudit(ctx context.Context) ([]model.AuditEntry, error) {
	values, err := s.get(ctx, s.history)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read history")
	}
	rows := stringRows(values)
	entries := []model.AuditEntry{}
	if len(rows) == 0 {
		return entries, nil
	}
	codec := model.NewRowCodec(rows[0])
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		entries = append(entries, codec.DecodeAudit(row))
	}
	return entries, nil
}

func (s *SheetsStore) readRecords(ctx context.Context) ([][]string, error) {
	values, err := s.get(ctx, s.records)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read records")
	}
	return stringRows(values), nil
}

func (s *SheetsStore) get(ctx context.Context, rng string) ([][]any, error) {
	return resilience.DoVal(ctx, s.breaker, func(ctx context.Context) ([][]any, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return s.client.Get(ctx, s.id, rng)
	})
}

func (s *SheetsStore) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.breaker.Do(ctx, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func decodeRecords(rows [][]string) []model.Record {
	records := []model.Record{}
	if len(rows) == 0 {
		return records
	}
	codec := model.NewRowCodec(rows[0])
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		records = append(records, codec.DecodeRecord(row))
	}
	return records
}

// stringRows converts API values to strings and drops trailing empty cells
// and rows, which the API omits on read.
func stringRows(values [][]any) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, trimRow(row))
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func fingerprint(rows [][]string) string {
	h := sha256.New()
	for _, row := range rows {
		for _, c := range trimRow(row) {
			h.Write([]byte(c))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
