// Package eat obtains access token signatures from the off-chain issuer.
// The issuer signs the presign multicall payload and returns the ECDSA
// signature plus its expiry; without it the router contract rejects calls.
package eat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/metrics"
	"github.com/you/swap-router/internal/multicall"
	"go.uber.org/zap"
)

var (
	ErrBadSignature = errors.New("eat: issuer returned malformed signature")
	ErrBadExpiry    = errors.New("eat: issuer returned malformed expiry")
)

type httpError struct {
	Status      int
	URL         string
	Body        string
	RateLimited bool
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.URL, e.Body)
}

type signRequest struct {
	FunctionSignature string `json:"functionSignature"`
	Parameters        string `json:"parameters"`
}

type signResponse struct {
	V      uint8  `json:"v"`
	R      string `json:"r"`
	S      string `json:"s"`
	Expiry string `json:"expiry"`
}

// Signer is an HTTP client for the token issuer. It implements
// multicall.AccessTokenSigner.
type Signer struct {
	cli     *http.Client
	url     string
	apiKey  string
	retries int
	log     *zap.Logger
}

func NewSigner(cfg *config.Config, log *zap.Logger) *Signer {
	return &Signer{
		cli:     &http.Client{Timeout: cfg.SignerTimeout()},
		url:     cfg.Signer.URL,
		apiKey:  cfg.Signer.APIKey,
		retries: cfg.Signer.Retries,
		log:     log,
	}
}

var _ multicall.AccessTokenSigner = (*Signer)(nil)

// Sign posts the presign payload to the issuer. Rate limits and 5xx
// responses are retried with a short backoff; anything else fails fast.
func (s *Signer) Sign(ctx context.Context, functionSignature, parameters string) (multicall.Signature, error) {
	body, err := json.Marshal(signRequest{
		FunctionSignature: functionSignature,
		Parameters:        parameters,
	})
	if err != nil {
		return multicall.Signature{}, err
	}

	started := time.Now()
	var resp signResponse
	for attempt := 0; ; attempt++ {
		err = s.doJSON(ctx, body, &resp)
		if err == nil {
			break
		}
		var he *httpError
		if errors.As(err, &he) && (he.RateLimited || he.Status >= 500) && attempt < s.retries {
			backoff := time.Duration(200*(attempt+1)) * time.Millisecond
			s.log.Warn("issuer retry",
				zap.Int("attempt", attempt+1),
				zap.Int("status", he.Status),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return multicall.Signature{}, ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		metrics.SignerErrors.Inc()
		return multicall.Signature{}, fmt.Errorf("issuer sign: %w", err)
	}
	metrics.SignerLatency.Observe(time.Since(started).Seconds())

	sig, err := resp.signature()
	if err != nil {
		metrics.SignerErrors.Inc()
		return multicall.Signature{}, err
	}
	return sig, nil
}

func (s *Signer) doJSON(ctx context.Context, body []byte, v *signResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &httpError{
			Status:      resp.StatusCode,
			URL:         s.url,
			Body:        strings.TrimSpace(string(b)),
			RateLimited: resp.StatusCode == http.StatusTooManyRequests,
		}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (r signResponse) signature() (multicall.Signature, error) {
	if len(r.R) != 66 || len(r.S) != 66 || !strings.HasPrefix(r.R, "0x") || !strings.HasPrefix(r.S, "0x") {
		return multicall.Signature{}, fmt.Errorf("%w: r=%q s=%q", ErrBadSignature, r.R, r.S)
	}
	expiry, ok := new(big.Int).SetString(r.Expiry, 10)
	if !ok {
		return multicall.Signature{}, fmt.Errorf("%w: %q", ErrBadExpiry, r.Expiry)
	}
	return multicall.Signature{
		V:      r.V,
		R:      common.HexToHash(r.R),
		S:      common.HexToHash(r.S),
		Expiry: expiry,
	}, nil
}
