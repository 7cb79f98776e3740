// Package view turns market data, signals and ledger state into the
// structures the CLI and the HTTP server render: a chart description,
// metric rows and tables.
package view

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/market"
)

type ChartKind string

const (
	Candlestick ChartKind = "candlestick"
	Line        ChartKind = "line"
)

// OverlayPeriods are the moving averages drawn over every chart.
var OverlayPeriods = []int{20, 50}

type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Overlay is a line series drawn on top of the price. Points inside the
// warmup window are left out rather than drawn as zero.
type Overlay struct {
	Name   string  `json:"name"`
	Period int     `json:"period"`
	Points []Point `json:"points"`
}

// Chart is a renderer-neutral chart description.
type Chart struct {
	Kind     ChartKind    `json:"kind"`
	Ticker   string       `json:"ticker"`
	Candles  []market.Bar `json:"candles"`
	Overlays []Overlay    `json:"overlays"`
}

func NewChart(ticker string, bars []market.Bar, kind ChartKind) Chart {
	if kind == "" {
		kind = Candlestick
	}
	c := Chart{
		Kind:     kind,
		Ticker:   ticker,
		Candles:  bars,
		Overlays: make([]Overlay, 0, len(OverlayPeriods)),
	}
	closes := market.Closes(bars)
	for _, p := range OverlayPeriods {
		c.Overlays = append(c.Overlays, smaOverlay(bars, closes, p))
	}
	return c
}

func smaOverlay(bars []market.Bar, closes []float64, period int) Overlay {
	o := Overlay{
		Name:   fmt.Sprintf("SMA %d", period),
		Period: period,
		Points: []Point{},
	}
	sma, err := indicators.SMA(closes, period)
	if err != nil {
		return o
	}
	for i, b := range bars {
		if sma.Valid(i) {
			o.Points = append(o.Points, Point{Time: b.Time, Value: sma[i]})
		}
	}
	return o
}

// Closes returns the close series as points, for a line chart.
func (c Chart) Closes() []Point {
	out := make([]Point, len(c.Candles))
	for i, b := range c.Candles {
		out[i] = Point{Time: b.Time, Value: b.Close}
	}
	return out
}
