package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	embedProvider string
	embedModel    string
	embedAPIKey   string

	// settingsInput is read by the interactive prompts.
	settingsInput io.Reader = os.Stdin
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, storage and retrieval settings.

Use subcommands to configure specific settings or run the interactive wizard.`,
	Annotations: map[string]string{annotationNeeds: needsSettings},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: map[string]string{annotationNeeds: needsSettings},
	RunE:        runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:         "wizard",
	Short:       "Interactive setup wizard",
	Long:        `Run an interactive wizard to configure all settings step by step.`,
	Annotations: map[string]string{annotationNeeds: needsSettings},
	RunE:        runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider. Without --provider the choice is
prompted for interactively.

Changing the model of a non-empty collection makes its stored vectors
incomparable with new queries; clear the collection or use a new one.`,
	Annotations: map[string]string{annotationNeeds: needsSettings},
	RunE:        runSettingsEmbedding,
}

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&embedProvider, "provider", "", "embedding provider (ollama, openai, hashing)")
	settingsEmbeddingCmd.Flags().StringVar(&embedModel, "model", "", "embedding model (default depends on provider)")
	settingsEmbeddingCmd.Flags().StringVar(&embedAPIKey, "api-key", "", "API key for cloud providers")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(render(styles.Title, "Current Settings"))
	cmd.Println("================")
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Println()

	// Index settings
	cmd.Println("[Index]")
	cmd.Printf("  Backend: %s\n", settings.Index.Backend)
	cmd.Printf("  Collection: %s\n", settings.Index.Collection)
	if settings.Index.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Index.DataDir)
	}
	cmd.Println()

	// Chunker settings
	cmd.Println("[Chunker]")
	cmd.Printf("  Chunk size: %d\n", settings.Chunker.ChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunker.ChunkOverlap)
	cmd.Println()

	// Context settings
	cmd.Println("[Context]")
	cmd.Printf("  Results (k): %d\n", settings.Context.K)
	cmd.Printf("  Max length: %d\n", settings.Context.MaxLength)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("%s %v\n", render(styles.Warning, "Warning:"), err)
		cmd.Println("Run 'sercha-rag settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	cmd.Println(render(styles.Title, "Sercha RAG Settings Wizard"))
	cmd.Println("==========================")
	cmd.Println()

	reader := bufio.NewReader(settingsInput)

	// Step 1: Embedding provider
	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	// Step 2: Chunking
	cmd.Println("Step 2: Chunking")
	cmd.Println("----------------")
	settings.Chunker.ChunkSize = promptInt(cmd, reader, "Chunk size in characters", settings.Chunker.ChunkSize)
	settings.Chunker.ChunkOverlap = promptInt(cmd, reader, "Chunk overlap in characters", settings.Chunker.ChunkOverlap)
	cmd.Println()

	// Step 3: Retrieval
	cmd.Println("Step 3: Retrieval")
	cmd.Println("-----------------")
	settings.Context.K = promptInt(cmd, reader, "Chunks per context (k)", settings.Context.K)
	settings.Context.MaxLength = promptInt(cmd, reader, "Context budget in characters", settings.Context.MaxLength)
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("%s %v\n", render(styles.Warning, "Warning:"), err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	if embedProvider == "" {
		return configureEmbeddingProvider(cmd, bufio.NewReader(settingsInput))
	}

	provider := domain.AIProvider(embedProvider)
	model := embedModel
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	if err := settingsService.SetEmbeddingProvider(provider, model, embedAPIKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func promptInt(cmd *cobra.Command, reader *bufio.Reader, label string, current int) int {
	cmd.Printf("%s [%d]: ", label, current)
	val, err := strconv.Atoi(readLine(reader))
	if err != nil || val < 0 {
		return current
	}
	return val
}

// readPassword reads without echo from a terminal, otherwise a plain line.
func readPassword(reader *bufio.Reader) string {
	if f, ok := settingsInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
