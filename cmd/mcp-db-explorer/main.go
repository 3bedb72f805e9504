// Package main provides the entry point for the mcp-db-explorer server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-db-explorer/internal/server"
	"github.com/txn2/mcp-db-explorer/pkg/explorer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool

	// Set when the corresponding flag was passed explicitly, so it takes
	// precedence over the configuration file.
	transportSet bool
	addressSet   bool
}

func parseFlags() serverOptions {
	opts := serverOptions{}
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio, http (overrides config)")
	flag.StringVar(&opts.address, "address", ":8080", "Server address for HTTP transport (overrides config)")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			opts.transportSet = true
		case "address":
			opts.addressSet = true
		}
	})
	return opts
}

func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func loadConfig(opts serverOptions) (*explorer.Config, error) {
	if opts.configPath != "" {
		return explorer.LoadConfig(opts.configPath)
	}
	return explorer.FromEnv()
}

// resolveTransport picks the serving transport and address. An explicitly
// passed flag wins; otherwise the configuration's values apply.
func resolveTransport(opts serverOptions, cfg *explorer.Config) serverOptions {
	if !opts.transportSet && cfg.Server.Transport != "" {
		opts.transport = cfg.Server.Transport
	}
	if !opts.addressSet && cfg.Server.Address != "" {
		opts.address = cfg.Server.Address
	}
	return opts
}

func run() error {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("mcp-db-explorer version %s\n", mcpserver.Version)
		return nil
	}

	ctx := setupSignalHandler()

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	opts = resolveTransport(opts, cfg)

	srv, tk, err := mcpserver.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() { _ = tk.Close() }()

	return startServer(ctx, srv, opts)
}

func startServer(ctx context.Context, srv *mcp.Server, opts serverOptions) error {
	switch opts.transport {
	case "stdio":
		return srv.Run(ctx, &mcp.StdioTransport{})
	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
		httpServer := &http.Server{Addr: opts.address, Handler: handler}
		go func() {
			<-ctx.Done()
			_ = httpServer.Shutdown(context.Background())
		}()
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport: %s", opts.transport)
	}
}
