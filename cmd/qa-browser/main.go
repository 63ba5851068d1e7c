// Package main provides qa-browser, a runner that replays a scenario of
// browser tool calls against one session and prints every outcome the
// way an agent would observe it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/qa-browser/pkg/config"
	"github.com/entrhq/qa-browser/pkg/llm/tokenizer"
	"github.com/entrhq/qa-browser/pkg/logging"
	"github.com/entrhq/qa-browser/pkg/tools/browser"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile     string
	ScenarioFile   string
	Variant        string
	Headed         bool
	ScreenshotFile string
	SnapshotEach   bool
	ShowConfig     bool
	ShowVersion    bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("qa-browser v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, closing the browser after the current step...")
		cancel()
	}()

	if err := run(ctx, cliConfig, os.Stdout); err != nil {
		cancel()
		log.Printf("Scenario failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (.yaml, .yml or .json); defaults to ~/.qa-browser/config.yaml")
	flag.StringVar(&cliConfig.ScenarioFile, "scenario", "", "Path to the scenario file (YAML)")
	flag.StringVar(&cliConfig.Variant, "variant", "", "Session variant: full or visible_only (overrides config)")
	flag.BoolVar(&cliConfig.Headed, "headed", false, "Show the browser window (overrides config)")
	flag.StringVar(&cliConfig.ScreenshotFile, "screenshot", "", "Write the final screenshot to this PNG file")
	flag.BoolVar(&cliConfig.SnapshotEach, "snapshot-each", false, "Print the page snapshot after every step")
	flag.BoolVar(&cliConfig.ShowConfig, "show-config", false, "Print the effective browser settings and exit")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "qa-browser - replay browser tool calls and print what the agent sees\n\n")
		fmt.Fprintf(os.Stderr, "Usage: qa-browser -scenario checkout.yaml [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return cliConfig
}

// run executes the scenario
func run(ctx context.Context, cliConfig *CLIConfig, out io.Writer) error {
	if cliConfig.ScenarioFile == "" && !cliConfig.ShowConfig {
		return fmt.Errorf("scenario file is required")
	}

	if initErr := config.Initialize(cliConfig.ConfigFile); initErr != nil {
		return fmt.Errorf("failed to initialize configuration: %w", initErr)
	}
	section := config.GetBrowser()
	if cliConfig.Variant != "" {
		section.SetVariant(cliConfig.Variant)
	}
	if cliConfig.Headed {
		section.SetHeadless(false)
	}
	if err := section.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cliConfig.ShowConfig {
		return printConfig(section, out)
	}

	scenario, err := loadScenario(cliConfig.ScenarioFile)
	if err != nil {
		return err
	}
	settings := section.Snapshot()

	// On error NewLogger already fell back to stderr and said so.
	logger, _ := logging.NewLogger("qa-browser")
	defer logger.Close()

	tok, err := tokenizer.New()
	if err != nil {
		logger.Warnf("token counting falls back to estimates: %v", err)
	}

	variant, err := browser.VariantByName(settings.Variant, browser.DistillerConfig{
		Tokenizer: tok,
		MaxTokens: settings.MaxTokens,
		Logger:    logger.With("distiller"),
	})
	if err != nil {
		return err
	}

	session, err := browser.NewSession(browser.OptionsFromConfig(settings), variant,
		browser.WithLogger(logger.With("browser")))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warnf("closing session: %v", closeErr)
		}
	}()

	return replay(ctx, scenario, browser.NewToolRegistry(session), cliConfig, out)
}

// replay runs the steps in order. It stops early when a loop-breaking tool
// ran or ctx was cancelled.
func replay(ctx context.Context, scenario *Scenario, registry *browser.ToolRegistry, cliConfig *CLIConfig, out io.Writer) error {
	session := registry.GetSession()

	if scenario.Name != "" {
		fmt.Fprintf(out, "Scenario: %s\n", scenario.Name)
	}

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped before step %d: %w", i+1, err)
		}

		name, args, err := step.Resolve()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		tool, ok := registry.Lookup(name)
		if !ok {
			return fmt.Errorf("step %d: unknown tool %q", i+1, name)
		}

		result, _, err := tool.Execute(ctx, args)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		fmt.Fprintf(out, "[%d] %s: %s\n", i+1, name, result)

		if tool.IsLoopBreaking() {
			return nil
		}

		if cliConfig.SnapshotEach {
			if err := printSnapshot(session, out); err != nil {
				return err
			}
		}
	}

	if !cliConfig.SnapshotEach {
		if err := printSnapshot(session, out); err != nil {
			return err
		}
	}

	if cliConfig.ScreenshotFile != "" {
		shot := session.Screenshot()
		if len(shot) == 0 {
			fmt.Fprintln(out, "No screenshot was captured.")
			return nil
		}
		if err := os.WriteFile(cliConfig.ScreenshotFile, shot, 0600); err != nil {
			return fmt.Errorf("failed to write screenshot: %w", err)
		}
		fmt.Fprintf(out, "Screenshot written to %s\n", cliConfig.ScreenshotFile)
	}

	return nil
}

// printConfig writes the browser section as YAML under its title.
func printConfig(section *config.BrowserSection, out io.Writer) error {
	data, err := yaml.Marshal(map[string]any{section.ID(): section.Data()})
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	fmt.Fprintf(out, "# %s\n# %s\n%s", section.Title(), section.Description(), data)
	return nil
}

func printSnapshot(session *browser.Session, out io.Writer) error {
	snapshot, err := session.ContextSnapshot()
	if err != nil {
		return fmt.Errorf("failed to capture page snapshot: %w", err)
	}
	fmt.Fprintln(out, snapshot.Text)
	if snapshot.Page != nil && snapshot.Page.Truncated {
		fmt.Fprintf(out, "(snapshot truncated, %d tokens)\n", snapshot.Page.Tokens)
	}
	return nil
}
