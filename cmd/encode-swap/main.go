package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/you/swap-router/internal/router"
	"github.com/you/swap-router/internal/service"
	"go.uber.org/zap"
)

func main() {
	input := flag.String("input", "-", "swap request JSON file, - for stdin")
	chainID := flag.Uint64("chain", 1, "chain id")
	slippageBps := flag.Int64("slippage-bps", 50, "default slippage tolerance, basis points")
	flag.Parse()

	var (
		raw []byte
		err error
	)
	if *input == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*input)
	}
	if err != nil {
		panic(err)
	}

	var req service.SwapRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		panic(err)
	}

	r, err := router.New()
	if err != nil {
		panic(err)
	}
	svc := service.New(r, nil, nil, *chainID, *slippageBps, zap.NewNop())

	params, err := svc.Encode(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode failed:", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(out))
}
