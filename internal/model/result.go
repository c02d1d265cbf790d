package model

import "time"

// Row is the derived record for one observation. Rows are built once per
// simulation and never mutated afterwards.
type Row struct {
	Time      time.Time
	Price     float64
	Features  Features
	Label     Label
	Fraction  float64
	Cash      float64
	Units     float64
	Value     float64 // running balance
	ProfitPct float64
	Traded    bool
}

// Summary condenses a simulation into the "last signal" block plus aggregates.
type Summary struct {
	Last           Row
	InitialBalance float64
	FinalValue     float64
	ProfitPct      float64
	Buys           int
	Sells          int
	Holds          int
	Trades         int
	High           float64
	Low            float64
	MaxDrawdownPct float64
}

// Request identifies what to simulate.
type Request struct {
	Symbol         string  `json:"symbol"`
	Period         string  `json:"period"`
	Interval       string  `json:"interval"`
	InitialBalance float64 `json:"initial_balance"`
}

// Result is the output of one pipeline run.
type Result struct {
	Request     Request
	Source      string
	Rule        string
	Sizer       string
	Walker      string
	Rows        []Row
	Summary     Summary
	GeneratedAt time.Time
}
