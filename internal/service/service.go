// Package service exposes the swap encoder over HTTP. Callers describe
// pools, routes and options in JSON; the service quotes the trade, encodes
// the calls and returns the presign payload or the final calldata.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/you/swap-router/internal/entities"
	"github.com/you/swap-router/internal/feed"
	"github.com/you/swap-router/internal/metrics"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/router"
	"github.com/you/swap-router/internal/trade"
	"go.uber.org/zap"
)

var (
	ErrBadTradeType = errors.New("service: tradeType must be exactInput or exactOutput")
	ErrBadAmount    = errors.New("service: amount is not a decimal number")
	ErrNoRoutes     = errors.New("service: at least one route is required")
	ErrNoSigner     = errors.New("service: no token issuer configured")
)

type CurrencyJSON struct {
	Native   bool   `json:"native,omitempty"`
	Address  string `json:"address,omitempty"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
}

type PoolJSON struct {
	TokenA   CurrencyJSON `json:"tokenA"`
	TokenB   CurrencyJSON `json:"tokenB"`
	Fee      uint32       `json:"fee"`
	ReserveA string       `json:"reserveA"`
	ReserveB string       `json:"reserveB"`
}

type RouteJSON struct {
	Amount string     `json:"amount"`
	Pools  []PoolJSON `json:"pools"`
}

type FeeJSON struct {
	Bps       int64  `json:"bps"`
	Recipient string `json:"recipient"`
}

type PermitJSON struct {
	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`

	Amount   string `json:"amount,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
	Expiry   string `json:"expiry,omitempty"`
}

type OptionsJSON struct {
	SlippageBps                 int64       `json:"slippageBps"`
	Recipient                   string      `json:"recipient,omitempty"`
	DeadlineOrPreviousBlockhash string      `json:"deadlineOrPreviousBlockhash,omitempty"`
	Fee                         *FeeJSON    `json:"fee,omitempty"`
	Permit                      *PermitJSON `json:"permit,omitempty"`
}

type SwapRequest struct {
	ID        string       `json:"id,omitempty"`
	TradeType string       `json:"tradeType"`
	Input     CurrencyJSON `json:"input"`
	Output    CurrencyJSON `json:"output"`
	Routes    []RouteJSON  `json:"routes"`
	Options   OptionsJSON  `json:"options"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// Service wires the encoder, the token issuer and the feed behind HTTP
// handlers. signer and pub may be nil; the calldata endpoint then refuses
// and publishing is skipped.
type Service struct {
	router             *router.SwapRouter
	signer             multicall.AccessTokenSigner
	pub                *feed.Publisher
	chainID            uint64
	defaultSlippageBps int64
	log                *zap.Logger
}

func New(r *router.SwapRouter, signer multicall.AccessTokenSigner, pub *feed.Publisher, chainID uint64, defaultSlippageBps int64, log *zap.Logger) *Service {
	return &Service{
		router:             r,
		signer:             signer,
		pub:                pub,
		chainID:            chainID,
		defaultSlippageBps: defaultSlippageBps,
		log:                log,
	}
}

func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/swap/presign", s.handlePresign)
	mux.HandleFunc("/v1/swap/calldata", s.handleCalldata)
	return mux
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Service) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("service listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Service) handlePresign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics.EncodeRequests.WithLabelValues("presign").Inc()

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	started := time.Now()
	params, err := s.Encode(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	metrics.EncodeLatency.Observe(time.Since(started).Seconds())

	s.publish(r.Context(), req.ID, params)
	writeJSON(w, params)
}

func (s *Service) handleCalldata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics.EncodeRequests.WithLabelValues("calldata").Inc()

	if s.signer == nil {
		s.writeError(w, http.StatusServiceUnavailable, ErrNoSigner)
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	started := time.Now()
	trades, opts, err := s.buildTrades(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := s.router.SwapCallParametersSigned(r.Context(), s.signer, trades, opts)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	metrics.EncodeLatency.Observe(time.Since(started).Seconds())

	s.publish(r.Context(), req.ID, params)
	writeJSON(w, params)
}

func (s *Service) publish(ctx context.Context, id string, params *router.MethodParameters) {
	if s.pub == nil || id == "" {
		return
	}
	err := s.pub.PublishSwap(ctx, feed.EncodedSwap{
		ID:                id,
		FunctionSignature: params.FunctionSignature,
		Parameters:        params.Parameters,
		Calldata:          params.Calldata,
		Value:             params.Value,
	})
	if err != nil {
		s.log.Warn("feed publish failed", zap.String("id", id), zap.Error(err))
		return
	}
	metrics.PublishedSwaps.Inc()
}

func (s *Service) writeError(w http.ResponseWriter, status int, err error) {
	metrics.EncodeErrors.Inc()
	s.log.Warn("request rejected", zap.Int("status", status), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorJSON{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Encode runs the request through the presign pipeline without a signer.
func (s *Service) Encode(req SwapRequest) (*router.MethodParameters, error) {
	trades, opts, err := s.buildTrades(req)
	if err != nil {
		return nil, err
	}
	return s.router.SwapCallParameters(trades, opts)
}

// buildTrades reconstructs pools and routes from the request and quotes
// them into a single trade, then maps the options onto router options.
func (s *Service) buildTrades(req SwapRequest) ([]*trade.Trade, router.SwapOptions, error) {
	var tradeType trade.Type
	switch req.TradeType {
	case "exactInput":
		tradeType = trade.ExactInput
	case "exactOutput":
		tradeType = trade.ExactOutput
	default:
		return nil, router.SwapOptions{}, fmt.Errorf("%w: %q", ErrBadTradeType, req.TradeType)
	}
	if len(req.Routes) == 0 {
		return nil, router.SwapOptions{}, ErrNoRoutes
	}

	input := s.currency(req.Input)
	output := s.currency(req.Output)

	amountCurrency := input
	if tradeType == trade.ExactOutput {
		amountCurrency = output
	}

	routeAmounts := make([]trade.RouteAmount, 0, len(req.Routes))
	for _, rj := range req.Routes {
		pools := make([]*entities.Pool, 0, len(rj.Pools))
		for _, pj := range rj.Pools {
			pool, err := s.pool(pj)
			if err != nil {
				return nil, router.SwapOptions{}, err
			}
			pools = append(pools, pool)
		}
		route, err := entities.NewRoute(pools, input, output)
		if err != nil {
			return nil, router.SwapOptions{}, err
		}
		amount, err := parseAmount(amountCurrency, rj.Amount)
		if err != nil {
			return nil, router.SwapOptions{}, err
		}
		routeAmounts = append(routeAmounts, trade.RouteAmount{Route: route, Amount: amount})
	}

	t, err := trade.FromRoutes(routeAmounts, tradeType)
	if err != nil {
		return nil, router.SwapOptions{}, err
	}

	opts, err := s.options(req.Options)
	if err != nil {
		return nil, router.SwapOptions{}, err
	}
	return []*trade.Trade{t}, opts, nil
}

func (s *Service) options(o OptionsJSON) (router.SwapOptions, error) {
	slippageBps := o.SlippageBps
	if slippageBps == 0 {
		slippageBps = s.defaultSlippageBps
	}
	opts := router.SwapOptions{
		SlippageTolerance:           entities.NewPercentInt(slippageBps, 10_000),
		Recipient:                   o.Recipient,
		DeadlineOrPreviousBlockhash: o.DeadlineOrPreviousBlockhash,
	}
	if o.Fee != nil {
		opts.Fee = &router.FeeOptions{
			Fee:       entities.NewPercentInt(o.Fee.Bps, 10_000),
			Recipient: o.Fee.Recipient,
		}
	}
	if o.Permit != nil {
		permit, err := parsePermit(o.Permit)
		if err != nil {
			return router.SwapOptions{}, err
		}
		opts.InputTokenPermit = permit
	}
	return opts, nil
}

func parsePermit(p *PermitJSON) (*router.PermitOptions, error) {
	out := &router.PermitOptions{
		V: p.V,
		R: common.HexToHash(p.R),
		S: common.HexToHash(p.S),
	}
	var err error
	if out.Amount, err = optionalBig(p.Amount); err != nil {
		return nil, err
	}
	if out.Deadline, err = optionalBig(p.Deadline); err != nil {
		return nil, err
	}
	if out.Nonce, err = optionalBig(p.Nonce); err != nil {
		return nil, err
	}
	if out.Expiry, err = optionalBig(p.Expiry); err != nil {
		return nil, err
	}
	return out, nil
}

func optionalBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return v, nil
}

func (s *Service) currency(c CurrencyJSON) entities.Currency {
	if c.Native {
		return entities.EtherOnChain(s.chainID)
	}
	decimals := c.Decimals
	if decimals == 0 {
		decimals = 18
	}
	return entities.NewToken(s.chainID, common.HexToAddress(c.Address), decimals, c.Symbol, "")
}

func (s *Service) pool(p PoolJSON) (*entities.Pool, error) {
	tokenA := s.currency(p.TokenA)
	tokenB := s.currency(p.TokenB)
	reserveA, err := parseAmount(tokenA, p.ReserveA)
	if err != nil {
		return nil, err
	}
	reserveB, err := parseAmount(tokenB, p.ReserveB)
	if err != nil {
		return nil, err
	}
	return entities.NewPool(reserveA, reserveB, entities.FeeAmount(p.Fee))
}

func parseAmount(c entities.Currency, s string) (*entities.CurrencyAmount, error) {
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return entities.FromRawAmount(c, raw), nil
}
