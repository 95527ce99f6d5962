package reorder

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/infergate/inference"
	"github.com/jonwraymond/infergate/report"
)

// Planning constants.
const (
	SafetyStock = 10
	TargetDays  = 30
	// DemandWindowDays is the period total_units_sold covers.
	DemandWindowDays = 30
)

// Messages used when the model is not consulted.
const (
	FallbackMessage   = "Manual review suggested: Stock below safety threshold."
	NoModelMessage    = "Reorder recommended."
	SufficientMessage = "Inventory sufficient."
)

// RequiredColumns must be present in the header, case-insensitively.
var RequiredColumns = []string{"supersedeno", "description", "qty"}

const soldColumn = "total_units_sold"

var (
	// ErrNotCSV is returned for uploads whose name does not end in .csv.
	ErrNotCSV = errors.New("reorder: only CSV files are allowed")

	// ErrEmpty is returned for an upload with no header row.
	ErrEmpty = errors.New("reorder: file is empty")

	// ErrMalformed is returned when the CSV cannot be parsed.
	ErrMalformed = errors.New("reorder: malformed CSV")
)

// SchemaError reports required columns missing from the header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "reorder: missing columns: " + strings.Join(e.Missing, ", ")
}

// CheckFilename rejects anything that is not a .csv upload.
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return ErrNotCSV
	}
	return nil
}

// Row is one parsed inventory line.
type Row struct {
	PartNo      string
	Description string
	Stock       float64
	Sold        float64
}

// AvgDailyDemand is units sold per day over the demand window.
func (r Row) AvgDailyDemand() float64 {
	return r.Sold / DemandWindowDays
}

// ReorderQty is the whole number of units needed to reach the target.
func (r Row) ReorderQty() int {
	target := r.AvgDailyDemand()*TargetDays + SafetyStock
	return int(math.Max(0, math.RoundToEven(target-r.Stock)))
}

// Advice is the answer for one row.
type Advice struct {
	PartNo     string  `json:"partno"`
	PartName   string  `json:"part_name"`
	Stock      float64 `json:"stock"`
	ReorderQty int     `json:"reorder_qty"`
	// Prediction is 1 when the part needs reordering.
	Prediction  int    `json:"prediction"`
	Message     string `json:"genai_message"`
	MessageKind string `json:"message_kind"`
}

// Parse reads rows from CSV data. Non-numeric quantities count as zero.
func Parse(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Missing: missing}
	}

	field := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rows = append(rows, Row{
			PartNo:      field(rec, "supersedeno"),
			Description: field(rec, "description"),
			Stock:       number(field(rec, "qty")),
			Sold:        number(field(rec, soldColumn)),
		})
	}
	return rows, nil
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Advisor produces advice for parsed rows.
type Advisor struct {
	explainer   *report.Explainer
	concurrency int
}

// NewAdvisor creates an Advisor. A nil explainer means no model is
// configured and rows needing stock get NoModelMessage.
func NewAdvisor(explainer *report.Explainer, concurrency int) *Advisor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Advisor{explainer: explainer, concurrency: concurrency}
}

// NewExplainer builds the explainer used for reorder messages. Each
// completion gets the generative call budget.
func NewExplainer(model report.Completer) *report.Explainer {
	return report.NewExplainer(model, report.ExplainerConfig{
		SystemPrompt: "You are a supply chain expert. Be brief.",
		Temperature:  0.3,
		MaxTokens:    100,
		Timeout:      inference.DefaultBudgets().For(inference.ClassGenerative),
		FallbackText: FallbackMessage,
	})
}

// Advise parses data and returns one Advice per row, in input order.
func (a *Advisor) Advise(ctx context.Context, data []byte) ([]Advice, error) {
	rows, err := Parse(data)
	if err != nil {
		return nil, err
	}

	out := make([]Advice, len(rows))
	var eg errgroup.Group
	eg.SetLimit(a.concurrency)
	for i, row := range rows {
		qty := row.ReorderQty()
		out[i] = Advice{
			PartNo:     row.PartNo,
			PartName:   row.Description,
			Stock:      row.Stock,
			ReorderQty: qty,
		}
		if qty == 0 {
			out[i].Message = SufficientMessage
			out[i].MessageKind = report.Fallback.String()
			continue
		}
		out[i].Prediction = 1
		if a.explainer == nil {
			out[i].Message = NoModelMessage
			out[i].MessageKind = report.Fallback.String()
			continue
		}
		eg.Go(func() error {
			exp := a.explainer.Explain(ctx, prompt(row, qty))
			out[i].Message = exp.Text
			out[i].MessageKind = exp.Kind.String()
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func prompt(r Row, qty int) string {
	return fmt.Sprintf("Explain why part %s needs %d units. Current stock: %s, daily demand: %.2f.",
		r.Description, qty, strconv.FormatFloat(r.Stock, 'f', -1, 64), r.AvgDailyDemand())
}
