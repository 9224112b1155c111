package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stockdash/internal/app"
	"stockdash/internal/config"
	"stockdash/internal/indicator"
	"stockdash/internal/model"
	"stockdash/internal/strategyparams"

	"github.com/shopspring/decimal"
)

// defaultCapital matches the dashboard's backtest form.
const defaultCapital = 100000

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app.App, cfg *config.Config, args []string, out io.Writer) error
}

var commands = []command{
	{"serve", "run the local view server", cmdServe},
	{"stocks", "fetch the stock list", cmdStocks},
	{"klines", "fetch daily klines: klines [-ma 5,20] CODE", cmdKlines},
	{"strategies", "fetch all strategies", cmdStrategies},
	{"strategy", "fetch one strategy: strategy -id N", cmdStrategy},
	{"create-strategy", "create a strategy", cmdCreateStrategy},
	{"update-strategy", "update a strategy", cmdUpdateStrategy},
	{"delete-strategy", "delete a strategy", cmdDeleteStrategy},
	{"backtest", "run a backtest", cmdBacktest},
	{"screen", "screen all stocks with a strategy", cmdScreen},
	{"journal", "list recent journaled actions", cmdJournal},
	{"health", "check the backend", cmdHealth},
	{"seed", "ask the backend to load demo data", cmdSeed},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// run builds the app for cfg and executes args[0] with the remaining args.
func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}
	cmd, ok := lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return cmd.run(ctx, a, cfg, args[1:], out)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func cmdServe(ctx context.Context, a *app.App, _ *config.Config, _ []string, _ io.Writer) error {
	return a.Run(ctx)
}

func cmdStocks(ctx context.Context, a *app.App, _ *config.Config, _ []string, out io.Writer) error {
	s := a.Registry().Stocks
	if err := s.FetchStocks(ctx); err != nil {
		return err
	}
	return printJSON(out, s.State().Stocks)
}

func cmdKlines(ctx context.Context, a *app.App, _ *config.Config, args []string, out io.Writer) error {
	fs := newFlags("klines", out)
	ma := fs.String("ma", "", "comma separated SMA periods")
	if err := fs.Parse(args); err != nil {
		return err
	}
	code := strings.TrimSpace(fs.Arg(0))
	if code == "" {
		return errors.New("usage: klines [-ma 5,20] CODE")
	}
	periods, err := parseInts(*ma)
	if err != nil {
		return err
	}
	s := a.Registry().Stocks
	if err := s.FetchKlines(ctx, code); err != nil {
		return err
	}
	st := s.State()
	return printJSON(out, struct {
		Code   string            `json:"code"`
		Klines []model.Kline     `json:"klines"`
		MA     map[int][]float64 `json:"ma,omitempty"`
	}{Code: st.KlineCode, Klines: st.Klines, MA: indicator.Overlay(st.Klines, periods)})
}

func cmdStrategies(ctx context.Context, a *app.App, _ *config.Config, _ []string, out io.Writer) error {
	s := a.Registry().Strategies
	if err := s.FetchStrategies(ctx); err != nil {
		return err
	}
	return printJSON(out, s.State().Strategies)
}

func cmdStrategy(ctx context.Context, a *app.App, _ *config.Config, args []string, out io.Writer) error {
	fs := newFlags("strategy", out)
	id := fs.Uint("id", 0, "strategy id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	got, err := a.Registry().Strategies.FetchStrategy(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(out, got)
}

type strategyFlags struct {
	name, typ, desc, params *string
}

func bindStrategyFlags(fs *flag.FlagSet, defaultType string) strategyFlags {
	return strategyFlags{
		name:   fs.String("name", "", "strategy name"),
		typ:    fs.String("type", defaultType, "strategy type"),
		desc:   fs.String("desc", "", "description"),
		params: fs.String("params", "", "YAML or JSON params file"),
	}
}

func (f strategyFlags) payload(v *strategyparams.Validator) (model.StrategyPayload, error) {
	p := model.StrategyPayload{
		Name:        strings.TrimSpace(*f.name),
		Description: *f.desc,
		Type:        strings.TrimSpace(*f.typ),
	}
	if p.Name == "" {
		return p, errors.New("-name is required")
	}
	if path := strings.TrimSpace(*f.params); path != "" {
		raw, err := strategyparams.LoadParamsFile(path)
		if err != nil {
			return p, err
		}
		p.ParamsJSON = raw
	}
	if err := v.Validate(p.Type, p.ParamsJSON); err != nil {
		return p, err
	}
	params, err := strategyparams.Normalize(p.Type, p.ParamsJSON)
	if err != nil {
		return p, err
	}
	p.ParamsJSON = params
	return p, nil
}

func cmdCreateStrategy(ctx context.Context, a *app.App, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlags("create-strategy", out)
	sf := bindStrategyFlags(fs, cfg.Strategy.DefaultType)
	if err := fs.Parse(args); err != nil {
		return err
	}
	payload, err := sf.payload(a.Params())
	if err != nil {
		return err
	}
	created, err := a.Registry().Strategies.CreateStrategy(ctx, payload)
	if err != nil {
		return err
	}
	return printJSON(out, created)
}

func cmdUpdateStrategy(ctx context.Context, a *app.App, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlags("update-strategy", out)
	id := fs.Uint("id", 0, "strategy id")
	sf := bindStrategyFlags(fs, cfg.Strategy.DefaultType)
	if err := fs.Parse(args); err != nil {
		return err
	}
	payload, err := sf.payload(a.Params())
	if err != nil {
		return err
	}
	updated, err := a.Registry().Strategies.UpdateStrategy(ctx, *id, payload)
	if err != nil {
		return err
	}
	return printJSON(out, updated)
}

func cmdDeleteStrategy(ctx context.Context, a *app.App, _ *config.Config, args []string, out io.Writer) error {
	fs := newFlags("delete-strategy", out)
	id := fs.Uint("id", 0, "strategy id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.Registry().Strategies.DeleteStrategy(ctx, *id); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "deleted strategy %d\n", *id)
	return err
}

func cmdBacktest(ctx context.Context, a *app.App, _ *config.Config, args []string, out io.Writer) error {
	fs := newFlags("backtest", out)
	strategyID := fs.Uint("strategy", 0, "strategy id")
	code := fs.String("code", "", "stock code")
	capital := fs.Float64("capital", defaultCapital, "initial capital")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *strategyID == 0 || strings.TrimSpace(*code) == "" {
		return errors.New("-strategy and -code are required")
	}
	res, err := a.Registry().Backtest.RunBacktest(ctx, model.BacktestRequest{
		StrategyID:     *strategyID,
		StockCode:      strings.TrimSpace(*code),
		InitialCapital: *capital,
	})
	if err != nil {
		return err
	}
	return printJSON(out, newBacktestOutput(res))
}

type tradeOutput struct {
	model.Trade
	Notional decimal.Decimal `json:"notional"`
}

type backtestOutput struct {
	Summary    *model.BacktestSummary `json:"summary"`
	SummaryRaw json.RawMessage        `json:"summaryRaw,omitempty"`
	Profit     *decimal.Decimal       `json:"profit,omitempty"`
	Points     []model.EquityPoint    `json:"points"`
	Trades     []tradeOutput          `json:"trades"`
}

func newBacktestOutput(res model.BacktestResult) backtestOutput {
	o := backtestOutput{Summary: res.Summary, Points: res.Points, Trades: make([]tradeOutput, 0, len(res.Trades))}
	if res.Summary != nil {
		profit := res.Summary.Profit()
		o.Profit = &profit
		o.SummaryRaw = res.Summary.Raw
	}
	for _, tr := range res.Trades {
		o.Trades = append(o.Trades, tradeOutput{Trade: tr, Notional: tr.Notional()})
	}
	return o
}

func cmdScreen(ctx context.Context, a *app.App, _ *config.Config, args []string, out io.Writer) error {
	fs := newFlags("screen", out)
	strategyID := fs.Uint("strategy", 0, "strategy id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	results, err := a.Registry().Screen.RunScreen(ctx, *strategyID)
	if err != nil {
		return err
	}
	return printJSON(out, results)
}

func cmdJournal(ctx context.Context, a *app.App, _ *config.Config, args []string, out io.Writer) error {
	fs := newFlags("journal", out)
	limit := fs.Int("limit", 20, "max records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.Journal() == nil {
		return errors.New("journal is disabled (journal.enabled=false)")
	}
	recs, err := a.Journal().Recent(ctx, *limit)
	if err != nil {
		return err
	}
	return printJSON(out, recs)
}

func cmdHealth(ctx context.Context, a *app.App, _ *config.Config, _ []string, out io.Writer) error {
	if err := a.Client().Health(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "backend ok (%s)\n", a.Client().BaseURL())
	return err
}

func cmdSeed(ctx context.Context, a *app.App, _ *config.Config, _ []string, out io.Writer) error {
	var resp map[string]any
	if err := a.Client().Post(ctx, "/demo/seed", nil, &resp); err != nil {
		return err
	}
	return printJSON(out, resp)
}

func parseInts(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid period %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
