package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/moznion/go-optional"

	"github.com/andrea060103/bot-trading-simulazione/internal/collector"
	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// Undefined and non-finite numbers are encoded as null.
type rowJSON struct {
	Time       time.Time `json:"time"`
	Price      *float64  `json:"price"`
	MA         *float64  `json:"ma"`
	RSI        *float64  `json:"rsi"`
	MACD       *float64  `json:"macd"`
	SignalLine *float64  `json:"signal_line"`
	Label      string    `json:"label"`
	Fraction   *float64  `json:"fraction"`
	Cash       *float64  `json:"cash"`
	Units      *float64  `json:"units"`
	Value      *float64  `json:"value"`
	ProfitPct  *float64  `json:"profit_pct"`
	Traded     bool      `json:"traded"`
}

type summaryJSON struct {
	Last           rowJSON  `json:"last"`
	InitialBalance *float64 `json:"initial_balance"`
	FinalValue     *float64 `json:"final_value"`
	ProfitPct      *float64 `json:"profit_pct"`
	Buys           int      `json:"buys"`
	Sells          int      `json:"sells"`
	Holds          int      `json:"holds"`
	Trades         int      `json:"trades"`
	High           *float64 `json:"high"`
	Low            *float64 `json:"low"`
	MaxDrawdownPct *float64 `json:"max_drawdown_pct"`
}

type resultJSON struct {
	Request     model.Request `json:"request"`
	Source      string        `json:"source"`
	Rule        string        `json:"rule"`
	Sizer       string        `json:"sizer"`
	Walker      string        `json:"walker"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     summaryJSON   `json:"summary"`
	Rows        []rowJSON     `json:"rows"`
}

func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func maybe(o optional.Option[float64]) *float64 {
	if o.IsNone() {
		return nil
	}
	return number(o.Unwrap())
}

func encodeRow(r model.Row) rowJSON {
	return rowJSON{
		Time:       r.Time,
		Price:      number(r.Price),
		MA:         maybe(r.Features.MA),
		RSI:        maybe(r.Features.RSI),
		MACD:       maybe(r.Features.MACD),
		SignalLine: maybe(r.Features.SignalLine),
		Label:      r.Label.String(),
		Fraction:   number(r.Fraction),
		Cash:       number(r.Cash),
		Units:      number(r.Units),
		Value:      number(r.Value),
		ProfitPct:  number(r.ProfitPct),
		Traded:     r.Traded,
	}
}

func encodeResult(result *model.Result) resultJSON {
	s := result.Summary
	rows := make([]rowJSON, len(result.Rows))
	for i, r := range result.Rows {
		rows[i] = encodeRow(r)
	}
	return resultJSON{
		Request:     result.Request,
		Source:      result.Source,
		Rule:        result.Rule,
		Sizer:       result.Sizer,
		Walker:      result.Walker,
		GeneratedAt: result.GeneratedAt,
		Summary: summaryJSON{
			Last:           encodeRow(s.Last),
			InitialBalance: number(s.InitialBalance),
			FinalValue:     number(s.FinalValue),
			ProfitPct:      number(s.ProfitPct),
			Buys:           s.Buys,
			Sells:          s.Sells,
			Holds:          s.Holds,
			Trades:         s.Trades,
			High:           number(s.High),
			Low:            number(s.Low),
			MaxDrawdownPct: number(s.MaxDrawdownPct),
		},
		Rows: rows,
	}
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.run(r, req)
	switch {
	case errors.Is(err, collector.ErrNoData):
		writeError(w, http.StatusNotFound, collector.ErrNoData.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, encodeResult(result))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
