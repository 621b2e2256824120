package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/dashboard"
	"github.com/tempohq/tempo/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the web dashboard",
	Long: `Starts the tempo web server: a chat dashboard over WebSocket with
in-browser confirmations, plus REST endpoints for stats, recent
activity, the action log and the context snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		dash := dashboard.New(rt.provider, rt.registry, rt.engine, rt.tasks, rt.chats, rt.agentOptions())

		port := serverPort
		if port == 0 {
			port = rt.cfg.Server.Port
		}
		srv := server.New(server.Config{
			Port:     port,
			DataDir:  rt.cfg.DataDir,
			AllowAll: rt.cfg.Server.AllowAllOrigins,
		}, rt.database, dash, rt.audits, rt.engine, rt.prefs)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "tempo server v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", rt.cfg.DatabasePath())
		fmt.Fprintf(os.Stderr, "  Dashboard: http://localhost:%d\n", port)
		if rt.memory != nil {
			fmt.Fprintf(os.Stderr, "  Memories: %d\n", rt.memory.Count())
		}

		err = srv.Start()
		rt.persistMemory(context.Background())
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
