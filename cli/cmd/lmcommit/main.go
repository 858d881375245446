package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lmcommit/cli/internal/commitmsg"
	"lmcommit/cli/internal/config"
	"lmcommit/cli/internal/diff"
	"lmcommit/cli/internal/erruser"
	"lmcommit/cli/internal/git"
	"lmcommit/cli/internal/lmstudio"
	"lmcommit/cli/internal/logging"
	"lmcommit/cli/internal/ollama"
	"lmcommit/cli/internal/prompt"
	"lmcommit/cli/internal/tokens"
	"lmcommit/cli/internal/tui"
	"lmcommit/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

// Output and interaction hooks. Tests replace them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	isTTY           = tui.IsTTY
	colorLogs       = func() bool { return tui.IsTerminal(os.Stderr) }
	chooseAction    = tui.Choose
	copyToClipboard = tui.Copy
)

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI. It is exported for testing.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		msg, cause := erruser.Message(err)
		fmt.Fprintln(stderr, msg)
		if cause != nil {
			fmt.Fprintf(stderr, "Details: %v\n", cause)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lmcommit",
		Short: "Write a commit message for the staged changes with a local language model",
		Long: `lmcommit sends the staged diff to a model served by LM Studio or Ollama and
proposes a commit message. Diffs too large for the model's context are retried
truncated; if that still overflows, a message is derived from the diff itself.`,
		Version: version.String(),
		Args:    cobra.NoArgs,
		RunE:    runGenerate,
	}
	addConfigFlags(cmd)
	cmd.Flags().String("prefix", "", "Text prepended to the generated message (e.g. a ticket id)")
	cmd.Flags().StringSlice("exclude", nil, "Extra pathspecs to leave out of the diff (repeatable)")
	cmd.Flags().Int("budget", 0, "Character budget for the truncated-diff retry (0 = use config)")
	cmd.Flags().Int("max-tokens", 0, "Maximum tokens in the model reply (0 = use config)")
	cmd.Flags().Float64("temperature", 0, "Sampling temperature, 0 to 2 (overrides config and env)")
	cmd.Flags().Duration("timeout", 0, "Time limit for one generation, e.g. 90s (0 = use config)")
	cmd.Flags().BoolP("yes", "y", false, "Commit without asking")
	cmd.Flags().BoolP("copy", "c", false, "Copy the message to the clipboard without asking")
	cmd.Flags().Bool("dry-run", false, "Print the message and exit; never commit")
	cmd.Flags().Bool("skip-check", false, "Do not check that the model is available before generating")
	cmd.Flags().BoolP("verbose", "v", false, "Log debug details to stderr")
	return cmd
}

// addConfigFlags registers the flags shared by every command that loads config.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "C", "", "Run as if started in this directory")
	cmd.Flags().String("provider", "", "Model server: lmstudio or ollama (overrides config and env)")
	cmd.Flags().StringP("model", "m", "", "Model identifier (overrides config and env)")
	cmd.Flags().String("base-url", "", "Model server URL (overrides config and env)")
	cmd.Flags().StringP("locale", "l", "", "Language of the message, e.g. en or ja")
	cmd.Flags().Int("max-length", 0, "Maximum message length in characters (0 = use config)")
	cmd.Flags().StringP("style", "s", "", "Message style: legacy or conventional")
}

// overridesFromFlags returns Overrides for the flags that were set. Flags not
// defined on cmd are skipped.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	str := func(name string) *string {
		if !changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetInt(name)
		return &v
	}
	o := &config.Overrides{
		Provider:       str("provider"),
		Model:          str("model"),
		BaseURL:        str("base-url"),
		Locale:         str("locale"),
		MaxLength:      num("max-length"),
		Style:          str("style"),
		MaxTokens:      num("max-tokens"),
		TruncateBudget: num("budget"),
	}
	if changed("temperature") {
		v, _ := cmd.Flags().GetFloat64("temperature")
		o.Temperature = &v
	}
	if changed("timeout") {
		v, _ := cmd.Flags().GetDuration("timeout")
		o.Timeout = &v
	}
	if changed("exclude") {
		o.Exclude, _ = cmd.Flags().GetStringSlice("exclude")
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		debug := "debug"
		o.LogLevel = &debug
	}
	return o
}

// loadConfig resolves the working directory and repository, then loads config.
// When requireRepo is false, a directory outside any repository is allowed and
// repoRoot is returned empty.
func loadConfig(cmd *cobra.Command, requireRepo bool) (cfg *config.Config, repoRoot string, err error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, "", erruser.New("Could not determine current directory.", err)
		}
	}
	repoRoot, err = git.RepoRoot(dir)
	if err != nil {
		if requireRepo {
			return nil, "", err
		}
		repoRoot = ""
	}
	cfg, err = config.Load(cmd.Context(), config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return nil, "", err
	}
	return cfg, repoRoot, nil
}

// backend is a configured model server: the completion capability plus a
// presence check for the configured model.
type backend struct {
	name  string
	model commitmsg.Model
	check func(ctx context.Context) (present bool, names []string, err error)
	hint  string
}

func newBackend(cfg *config.Config) backend {
	baseURL := cfg.EffectiveBaseURL()
	// Generation is bounded by the context deadline, not a client timeout.
	chatHTTP := &http.Client{}
	if cfg.Provider == config.ProviderOllama {
		checker := ollama.NewClient(baseURL, nil)
		return backend{
			name:  "Ollama",
			model: &ollama.ChatModel{Client: ollama.NewClient(baseURL, chatHTTP), Model: cfg.Model, Temperature: cfg.Temperature, ContextSize: cfg.ContextLimit},
			check: func(ctx context.Context) (bool, []string, error) {
				res, err := checker.Check(ctx, cfg.Model)
				if err != nil {
					return false, nil, err
				}
				return res.ModelPresent, res.ModelNames, nil
			},
			hint: fmt.Sprintf("Pull it with: ollama pull %s", cfg.Model),
		}
	}
	checker := lmstudio.NewClient(baseURL, nil)
	return backend{
		name:  "LM Studio",
		model: &lmstudio.ChatModel{Client: lmstudio.NewClient(baseURL, chatHTTP), Model: cfg.Model, Temperature: cfg.Temperature},
		check: func(ctx context.Context) (bool, []string, error) {
			res, err := checker.Check(ctx, cfg.Model)
			if err != nil {
				return false, nil, err
			}
			return res.ModelPresent, res.ModelNames, nil
		},
		hint: fmt.Sprintf("Load it in LM Studio, or run: lms load %s", cfg.Model),
	}
}

func isUnreachable(err error) bool {
	return errors.Is(err, lmstudio.ErrUnreachable) || errors.Is(err, ollama.ErrUnreachable)
}

// reportUnreachable prints the server hint and returns exit code 2.
func reportUnreachable(b backend, cfg *config.Config, err error) error {
	fmt.Fprintf(stderr, "%s unreachable at %s. Is the server running?\n", b.name, cfg.EffectiveBaseURL())
	fmt.Fprintf(stderr, "Details: %v\n", err)
	return errExit(2)
}

// joinPrefix joins prefix and message with a space, skipping empty parts.
func joinPrefix(prefix, message string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{strings.TrimSpace(prefix), message} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, repoRoot, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	prefix, _ := cmd.Flags().GetString("prefix")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	copyFlag, _ := cmd.Flags().GetBool("copy")
	interactive := !dryRun && !yes && !copyFlag && isTTY()
	sp := tui.NewSpinner(stderr, tierText(commitmsg.TierFullDiff), interactive)
	log := logging.Setup(cfg.LogLevel, sp.Writer(stderr), colorLogs())

	staged, err := diff.StagedDiff(ctx, repoRoot, &diff.Options{Exclude: cfg.Exclude})
	if err != nil {
		if errors.Is(err, diff.ErrNoStagedChanges) {
			return erruser.New("No staged changes found. Stage your changes with git add and try again.", nil)
		}
		return err
	}
	log.Debug().Strs("files", staged.Files).Int("diff_bytes", len(staged.Text)).Msg("Collected staged diff")

	b := newBackend(cfg)
	skipCheck, _ := cmd.Flags().GetBool("skip-check")
	if !skipCheck {
		present, names, err := b.check(ctx)
		if err != nil {
			if isUnreachable(err) {
				return reportUnreachable(b, cfg, err)
			}
			return err
		}
		if !present {
			fmt.Fprintln(stderr, "Model not found.")
			fmt.Fprintf(stderr, "Model %q is not available on %s. %s\n", cfg.Model, b.name, b.hint)
			if len(names) > 0 {
				fmt.Fprintf(stderr, "Available: %s\n", strings.Join(names, ", "))
			}
			return errExit(1)
		}
	}
	log.Info().Str("model", cfg.Model).Str("provider", cfg.Provider).Msg("Using model")

	systemPrompt := prompt.Format(cfg.Locale, cfg.MaxLength, cfg.Style)
	usage := tokens.Measure(systemPrompt, staged.Text, cfg.MaxTokens)
	log.Debug().Int("prompt_tokens", usage.System).Int("diff_tokens", usage.Diff).Int("reply_tokens", usage.Reply).Msg("Estimated request size")
	if w := tokens.WarnIfOver(usage, cfg.ContextLimit, cfg.WarnThreshold); w != "" {
		log.Warn().Msg(w)
	}

	gen := &commitmsg.Generator{
		Model:     b.model,
		MaxTokens: cfg.MaxTokens,
		Budget:    cfg.TruncateBudget,
		Logger:    &log,
		OnTier:    func(tier commitmsg.Tier) { sp.SetText(tierText(tier)) },
	}

	for {
		res, err := generate(ctx, gen, cfg, staged.Text, systemPrompt, sp, &log)
		if err != nil {
			if isUnreachable(err) {
				return reportUnreachable(b, cfg, err)
			}
			return erruser.New("Could not generate a commit message.", err)
		}
		message := joinPrefix(prefix, res.Message)

		switch {
		case dryRun:
			fmt.Fprintln(stdout, message)
			return nil
		case yes:
			return commit(ctx, repoRoot, message)
		case copyFlag:
			fmt.Fprintln(stdout, message)
			if err := copyToClipboard(message); err != nil {
				return err
			}
			fmt.Fprintln(stderr, "Commit message copied to clipboard.")
			return nil
		case !interactive:
			fmt.Fprintln(stdout, message)
			return nil
		}

		action, err := chooseAction(ctx, message, stderr)
		if err != nil {
			return err
		}
		log.Debug().Stringer("action", action).Msg("Menu choice")
		switch action {
		case tui.ActionCommit:
			return commit(ctx, repoRoot, message)
		case tui.ActionCopy:
			if err := copyToClipboard(message); err != nil {
				return err
			}
			fmt.Fprintln(stderr, "Commit message copied to clipboard.")
			return nil
		case tui.ActionRegenerate:
			continue
		default:
			fmt.Fprintln(stderr, "Commit cancelled.")
			return nil
		}
	}
}

// generate runs one pass of the ladder under the configured timeout while sp
// spins.
func generate(ctx context.Context, gen *commitmsg.Generator, cfg *config.Config, diffText, systemPrompt string, sp *tui.Spinner, log *zerolog.Logger) (commitmsg.Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	sp.Start()
	res, err := gen.Run(ctx, diffText, systemPrompt, cfg.Style)
	sp.Stop()
	if err != nil {
		return res, err
	}
	log.Debug().Stringer("tier", res.Tier).Msg("Generated commit message")
	return res, nil
}

// tierText is the spinner text while tier is being tried.
func tierText(tier commitmsg.Tier) string {
	if tier == commitmsg.TierTruncatedDiff {
		return "Retrying with a truncated diff..."
	}
	return "Generating commit message..."
}

func commit(ctx context.Context, repoRoot, message string) error {
	if strings.TrimSpace(message) == "" {
		return erruser.New("The model returned an empty commit message. Regenerate or write one manually.", nil)
	}
	if err := git.Commit(ctx, repoRoot, message); err != nil {
		return err
	}
	subject, err := git.HeadSubject(repoRoot)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Committed: %s\n", subject)
	return nil
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify environment (Git, model server, model)",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
	addConfigFlags(cmd)
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	gitVersion, err := git.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Git: %s\n", gitVersion)
	cfg, repoRoot, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if repoRoot == "" {
		fmt.Fprintln(stdout, "Repository: none (run lmcommit inside a Git repository)")
	} else {
		fmt.Fprintf(stdout, "Repository: %s\n", repoRoot)
	}
	b := newBackend(cfg)
	present, names, err := b.check(cmd.Context())
	if err != nil {
		if isUnreachable(err) {
			return reportUnreachable(b, cfg, err)
		}
		fmt.Fprintln(stderr, err.Error())
		return errExit(1)
	}
	fmt.Fprintf(stdout, "%s OK (%s)\n", b.name, cfg.EffectiveBaseURL())
	if !present {
		fmt.Fprintf(stderr, "Model %q not found. %s\n", cfg.Model, b.hint)
		if len(names) > 0 {
			fmt.Fprintf(stderr, "Available: %s\n", strings.Join(names, ", "))
		}
		return errExit(1)
	}
	fmt.Fprintf(stdout, "Model: %s\n", cfg.Model)
	return nil
}

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt sent to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, prompt.Format(cfg.Locale, cfg.MaxLength, cfg.Style))
			return nil
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, version.Long())
		},
	}
}
