package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/ds160fill/browser"
)

func (a *app) session() *browser.Session {
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        a.cfg.Browser.Remote,
		ResourceBlocking: a.cfg.Browser.ResourceBlocking,
		Mode:             browser.ParseMode(a.cfg.Browser.Stealth),
		XvfbDisplay:      a.cfg.Browser.XvfbDisplay,
		NavTimeout:       a.cfg.Browser.NavTimeout,
		Logger:           a.logger,
	})
	return browser.NewSession(mgr, browser.SessionConfig{
		StartURL:  a.cfg.Browser.StartURL,
		PageMatch: a.cfg.Browser.PageMatch,
		Logger:    a.logger,
	})
}

func (a *app) serveCmd() *cobra.Command {
	var noOpen bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Drive Chrome and accept fill requests over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), !noOpen)
		},
	}
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "attach to existing tabs instead of opening the start URL")
	return cmd
}

func (a *app) serve(ctx context.Context, open bool) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sess := a.session()
	defer sess.Close()
	if open {
		if err := sess.Open(ctx); err != nil {
			return err
		}
	}

	eng := a.engine(sess, st)
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           eng.Handler(a.cfg.Server.TokenHash),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("ds160fill: listening", "addr", a.cfg.Server.Addr, "auth", a.cfg.Server.TokenHash != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("ds160fill: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("ds160fill: shutdown", "error", err)
	}
	return nil
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the fill engine as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sess := a.session()
			defer sess.Close()
			if err := sess.Open(ctx); err != nil {
				return err
			}

			srv := mcp.NewServer(&mcp.Implementation{Name: "ds160fill", Version: version}, nil)
			a.engine(sess, st).RegisterMCP(srv)
			a.logger.Info("ds160fill: mcp on stdio")
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
