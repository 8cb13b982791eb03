package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/compozy/docsweep/cli/helpers"
	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(NewConfigShowCommand())
	return cmd
}

// NewConfigShowCommand creates the config show subcommand.
func NewConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values and their sources",
		Long: `Display the effective configuration after defaults, the YAML file, the
environment and flags were merged. With --sources each key is annotated with
the layer that supplied it and the DOCSWEEP_* variable that overrides it.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
	cmd.Flags().StringP("format", "f", "", "Output format (json, yaml, table); table on a terminal, yaml otherwise")
	cmd.Flags().BoolP("sources", "s", false, "Show configuration sources")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger.FromContext(ctx).Debug("Executing config show command")
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	showSources, err := cmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	out := cmd.OutOrStdout()
	if format == "" {
		format = defaultFormat(out)
	}
	var sources map[string]config.SourceType
	if svc := config.ServiceFromContext(ctx); svc != nil {
		sources = svc.GetSources()
	}
	return formatConfigOutput(out, config.FromContext(ctx), sources, format, showSources)
}

func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "table"
	}
	return "yaml"
}

// formatConfigOutput writes the configuration in the requested format.
func formatConfigOutput(
	w io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
	showSources bool,
) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	switch format {
	case "json":
		return outputJSON(w, k, sources, showSources)
	case "yaml":
		return outputYAML(w, k, sources, showSources)
	case "table":
		return outputTable(w, k, sources, showSources)
	default:
		return helpers.NewUsageError("format", fmt.Sprintf("unsupported format %q", format))
	}
}

func document(k *koanf.Koanf, sources map[string]config.SourceType, showSources bool) any {
	if !showSources {
		return k.Raw()
	}
	return map[string]any{
		"config":  k.Raw(),
		"sources": effectiveSources(k, sources),
		"env":     envVars(k),
	}
}

func outputJSON(w io.Writer, k *koanf.Koanf, sources map[string]config.SourceType, showSources bool) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(document(k, sources, showSources))
}

func outputYAML(w io.Writer, k *koanf.Koanf, sources map[string]config.SourceType, showSources bool) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document(k, sources, showSources)); err != nil {
		return err
	}
	return encoder.Close()
}

func outputTable(w io.Writer, k *koanf.Koanf, sources map[string]config.SourceType, showSources bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	keys := k.Keys()
	sort.Strings(keys)
	if showSources {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE\tENV")
		fmt.Fprintln(tw, "---\t-----\t------\t---")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
	}
	effective := effectiveSources(k, sources)
	for _, key := range keys {
		value := formatValue(k.Get(key))
		if showSources {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, value, effective[key], config.EnvVarFor(key))
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", key, value)
		}
	}
	return tw.Flush()
}

// effectiveSources fills in the default layer for keys no source claimed.
func effectiveSources(k *koanf.Koanf, sources map[string]config.SourceType) map[string]config.SourceType {
	result := make(map[string]config.SourceType, len(k.Keys()))
	for _, key := range k.Keys() {
		source := sources[key]
		if source == "" {
			source = config.SourceDefault
		}
		result[key] = source
	}
	return result
}

// envVars lists the environment variable behind each key that has one.
func envVars(k *koanf.Koanf) map[string]string {
	result := make(map[string]string)
	for _, key := range k.Keys() {
		if envVar := config.EnvVarFor(key); envVar != "" {
			result[key] = envVar
		}
	}
	return result
}

func formatValue(v any) string {
	switch value := v.(type) {
	case []string:
		return strings.Join(value, ",")
	case []any:
		parts := make([]string, len(value))
		for i, item := range value {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(value)
	}
}
