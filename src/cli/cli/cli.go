// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/cli/cli/cli.go
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	api "github.com/sphinx-core/stark-pqc/src/http"
	logger "github.com/sphinx-core/stark-pqc/src/log"
	"github.com/sphinx-core/stark-pqc/src/rpc"
	"github.com/sphinx-core/stark-pqc/src/transport"
)

const logLevelKey = "log-level"

// Command returns the root command with every subcommand attached.
func Command() *cobra.Command {
	c := &cobra.Command{
		Use:           "starkpqc",
		Short:         "Client for the post-quantum signed message store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			s, err := c.Flags().GetString(logLevelKey)
			if err != nil {
				return err
			}
			lvl, err := logger.ParseLevel(s)
			if err != nil {
				return err
			}
			logger.SetOutput(c.ErrOrStderr())
			logger.SetLevel(lvl)
			return nil
		},
	}
	c.PersistentFlags().String(logLevelKey, "warn", "Log level: debug, info, warn or error")
	c.AddCommand(
		keygenCommand(),
		kemGenCommand(),
		proveCommand(),
		sendCommand(),
		readCommand(),
		verifyCommand(),
	)
	return c
}

// Execute runs the root command.
func Execute(ctx context.Context, args []string) error {
	c := Command()
	c.SetArgs(args)
	return c.ExecuteContext(ctx)
}

// dialAPI connects to a node over the selected transport. The returned
// function releases the connection.
func dialAPI(ctx context.Context, cfg Config) (rpc.Backend, func(), error) {
	base := strings.TrimRight(cfg.Node, "/")
	switch cfg.Transport {
	case TransportRPC:
		return rpc.NewClient(rpc.NewHTTPCaller(base+"/rpc", nil)), func() {}, nil
	case TransportWS:
		url := "ws" + strings.TrimPrefix(base, "http") + "/ws"
		caller, err := transport.DialWebSocket(ctx, url, nil)
		if err != nil {
			return nil, nil, err
		}
		return rpc.NewClient(caller), func() { caller.Close() }, nil
	case TransportREST:
		return api.NewClient(base, nil), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
