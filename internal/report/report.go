// Package report collects the per-(pair, amount, mode) cost records of one
// run and produces the diagnostic summary.
package report

import (
	"time"

	"github.com/sam121/fx-curves/internal/metrics"
	"github.com/sam121/fx-curves/internal/types"
)

type Summary struct {
	Total      int `json:"total"`
	Valid      int `json:"valid"`
	Incomplete int `json:"incomplete"`
	Errors     int `json:"errors"`
}

// Assembler owns the records once added; records are immutable from then on.
type Assembler struct {
	records []types.CostRecord
}

func NewAssembler() *Assembler {
	return &Assembler{records: make([]types.CostRecord, 0, 64)}
}

func (a *Assembler) Add(rec types.CostRecord) {
	a.records = append(a.records, rec)
	metrics.Records.WithLabelValues(string(rec.Status)).Inc()
}

func (a *Assembler) Records() []types.CostRecord { return a.records }

func (a *Assembler) Summary() Summary {
	s := Summary{Total: len(a.records)}
	for _, r := range a.records {
		switch r.Status {
		case types.StatusOK:
			s.Valid++
		case types.StatusIncomplete:
			s.Incomplete++
		default:
			s.Errors++
		}
	}
	return s
}

// FailureRecord builds an error row that keeps its identifying fields, so a
// consumer can tell "no data" from "zero cost". Failure rows are emitted,
// never silently dropped.
func FailureRecord(ts time.Time, source, target string, amount float64, mode string, kind types.FailureKind) types.CostRecord {
	status := types.StatusError
	if kind == types.FailIncomplete {
		status = types.StatusIncomplete
	}
	return types.CostRecord{
		Ts:      ts,
		Source:  source,
		Target:  target,
		Amount:  amount,
		Mode:    mode,
		Status:  status,
		Failure: kind,
	}
}
