// Package cli provides the cobra command-line interface for Workbench.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/workbench/internal/adapters/driven/config/file"
	"github.com/custodia-labs/workbench/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/workbench/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/workbench/internal/adapters/driven/fs/local"
	vectormemory "github.com/custodia-labs/workbench/internal/adapters/driven/vector/memory"
	vectorsqlite "github.com/custodia-labs/workbench/internal/adapters/driven/vector/sqlite"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/core/services"
	"github.com/custodia-labs/workbench/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagConfig  string
	flagRoot    string
	flagVerbose bool
)

// Shared services, wired by the pre-run hook.
var (
	appConfig    *configfile.Config
	workspace    *services.WorkspaceRuntime
	searchIndex  *services.HybridIndex
	embedService driven.EmbeddingService
	vectorStore  driven.VectorStore
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Sandboxed workspace runtime with hybrid search for tool-calling agents",
	Long: `Workbench gives autonomous agents a sandboxed, policy-governed file
surface over a workspace directory plus a hybrid (BM25 + vector) search
index over its content.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.workbench/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "workspace root directory (default from config, else cwd)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
}

// setup loads configuration and wires the runtime and index.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	configPath := flagConfig
	if configPath == "" {
		dir, err := configfile.DefaultDir()
		if err != nil {
			return fmt.Errorf("resolve config dir: %w", err)
		}
		configPath = filepath.Join(dir, configfile.DefaultFileName)
	}
	cfg, err := configfile.Load(configPath)
	if err != nil {
		return err
	}
	appConfig = cfg

	root := flagRoot
	if root == "" {
		root = cfg.Workspace.RootDir
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace root: %w", err)
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}
	logger.Debug("Workspace root: %s", root)

	sandbox := services.NewPathSandbox(root)
	backend, err := local.New(sandbox)
	if err != nil {
		return err
	}

	execSandbox := sandbox
	if cfg.Workspace.ExecDir != "" && cfg.Workspace.ExecDir != root {
		execSandbox = services.NewPathSandbox(cfg.Workspace.ExecDir)
	}

	if embedService, err = buildEmbedding(cfg); err != nil {
		return err
	}
	if vectorStore, err = buildVectorStore(cfg, configPath); err != nil {
		return err
	}
	searchIndex = services.NewHybridIndex(embedService, vectorStore)

	policies := cfg.Toolkits
	if len(policies) == 0 {
		policies = services.DefaultPolicyConfig()
	}
	workspace, err = services.NewWorkspaceRuntime(services.RuntimeConfig{
		Sandbox:     sandbox,
		ExecSandbox: execSandbox,
		Backend:     backend,
		Policies:    policies,
	})
	return err
}

// teardown releases long-lived resources.
func teardown(_ *cobra.Command, _ []string) {
	if workspace != nil {
		workspace.Close() //nolint:errcheck
	}
	if vectorStore != nil {
		vectorStore.Close() //nolint:errcheck
	}
	if embedService != nil {
		embedService.Close() //nolint:errcheck
	}
}

// buildEmbedding constructs the configured embedding provider, or nil
// when vector search is disabled.
func buildEmbedding(cfg *configfile.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "":
		logger.Debug("No embedding provider configured; vector search disabled")
		return nil, nil
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		apiKey := cfg.Embedding.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// buildVectorStore constructs the configured vector store.
func buildVectorStore(cfg *configfile.Config, configPath string) (driven.VectorStore, error) {
	switch cfg.Vector.Store {
	case "", "memory":
		return vectormemory.New(), nil
	case "sqlite":
		path := cfg.Vector.Path
		if path == "" {
			path = filepath.Join(filepath.Dir(configPath), "vectors.db")
		}
		return vectorsqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.Vector.Store)
	}
}
