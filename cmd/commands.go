package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hr-rag/internal/chromemdb"
	"hr-rag/internal/helper"
	"hr-rag/internal/mcpserver"
	"hr-rag/internal/rag"
	"hr-rag/internal/server"
	"hr-rag/internal/session"
)

var (
	ingestSource string
	chatSession  string
	chatTopK     int
	snapshotKey  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load, chunk and index documents",
	Long: `Loads every supported file under the configured corpus roots, normalizes and
chunks it, and appends the chunks to the vector index. Running it twice without
reset indexes the documents twice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.rag.Ingest(cmd.Context(), ingestSource)
		if err != nil {
			return err
		}
		helper.PrettyPrint(cmd.OutOrStdout(), stats)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the vector collection and recreate it empty",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.rag.Reset(cmd.Context())
		helper.PrettyPrint(cmd.OutOrStdout(), map[string]bool{"ok": err == nil})
		return err
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the vector collection statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.rag.Stats(cmd.Context())
		if err != nil {
			return err
		}
		helper.PrettyPrint(cmd.OutOrStdout(), stats)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Answer one question from the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.rag.Chat(cmd.Context(), args[0], chatSession, chatTopK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n\n", res.Answer)
		helper.PrettyPrint(out, res.Citations)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing services")
		}
		defer a.Close()

		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		log.Info().Str("addr", addr).Bool("agent", a.rag.AgentAvailable()).Msg("Starting HR RAG chatbot")
		return server.Run(cmd.Context(), addr, a.rag)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve hr_search and jisr_search over MCP stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the two corpus
search tools. Logs go to stderr so they do not mix with the protocol stream.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging(cfg.LogLevel, os.Stderr)

		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		return mcpserver.NewServer(a.tools).Run(cmd.Context())
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import a chromem collection snapshot",
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the collection to a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeFn, err := chromemStore(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := m.Export(args[0], snapshotKey); err != nil {
			return err
		}
		log.Info().Str("file", args[0]).Msg("Snapshot exported")
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the collection with a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeFn, err := chromemStore(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := m.Import(args[0], snapshotKey); err != nil {
			return err
		}
		log.Info().Str("file", args[0]).Msg("Snapshot imported")
		return nil
	},
}

func chromemStore(cmd *cobra.Command) (*chromemdb.VectorDBManager, func(), error) {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return nil, nil, err
	}
	m, ok := a.store.(*chromemdb.VectorDBManager)
	if !ok {
		a.Close()
		return nil, nil, errors.New("snapshots need vector_db.backend: chromem")
	}
	return m, a.Close, nil
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", rag.SourceAll, "all, or the key of one corpus (policies, jisr)")
	chatCmd.Flags().StringVar(&chatSession, "session", session.DefaultID, "conversation session id")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "chunks per search (0 = rag.top_k)")
	snapshotCmd.PersistentFlags().StringVar(&snapshotKey, "key", "", "32 byte encryption key, empty for none")

	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
	rootCmd.AddCommand(ingestCmd, resetCmd, statsCmd, chatCmd, serveCmd, mcpCmd, snapshotCmd)
}
