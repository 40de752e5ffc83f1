package args

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Command is what the invocation asks promptx to do.
type Command string

const (
	CommandRefine   Command = "refine"
	CommandHelp     Command = "help"
	CommandModel    Command = "model"
	CommandWhatsNew Command = "whats-new"
	CommandReset    Command = "reset"
	CommandVersion  Command = "version"
	// CommandHandled means cobra already answered, e.g. for --help.
	CommandHandled Command = "handled"
)

// reserved maps the slash commands accepted as a single argument or at the
// interactive prompt.
var reserved = map[string]Command{
	"/help":      CommandHelp,
	"/model":     CommandModel,
	"/whats-new": CommandWhatsNew,
	"/whatsnew":  CommandWhatsNew,
	"/changelog": CommandWhatsNew,
}

// ParseCommand recognises a reserved command, ignoring case and surrounding
// space.
func ParseCommand(input string) (Command, bool) {
	c, ok := reserved[strings.ToLower(strings.TrimSpace(input))]
	return c, ok
}

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Command      Command
	Prompt       string
	Model        string
	Copy         bool
	UsePlainText bool
	Verbose      bool
}

// Options carry the process environment into ParseArgs.
type Options struct {
	// Stdin is read for prompt text when it is not a terminal; nil skips it.
	Stdin io.Reader
	Out   io.Writer
	Err   io.Writer
	// PlainText is the default for --plain.
	PlainText bool
}

// ParseArgs parses command-line arguments and piped stdin, returning an Arguments struct.
// Reserved slash commands are only recognised when they are the whole input.
func ParseArgs(argv []string, opts Options) (Arguments, error) {
	args := Arguments{}
	var showVersion bool
	ran := false

	rootCmd := &cobra.Command{
		Use:   "promptx [prompt...]",
		Short: "Transform messy prompts into structured, clear prompts for AI agents",
		Long: "Transform messy prompts into structured, clear prompts for AI agents.\n\n" +
			"Run without arguments to type a prompt interactively. Reserved inputs:\n" +
			"  /help                    show help\n" +
			"  /model                   switch the AI model\n" +
			"  /whats-new, /changelog   show recent changes",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ran = true
			if showVersion {
				args.Command = CommandVersion
				return nil
			}
			if len(cmdArgs) == 1 {
				if c, ok := ParseCommand(cmdArgs[0]); ok {
					args.Command = c
					return nil
				}
			}
			args.Command = CommandRefine
			args.Prompt = strings.Join(cmdArgs, " ")
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&args.Model, "model", "m", "", "Use this model for one request without saving it")
	rootCmd.PersistentFlags().BoolVarP(&args.Copy, "copy", "c", false, "Copy the refined prompt to the clipboard")
	rootCmd.PersistentFlags().BoolVar(&args.UsePlainText, "plain", opts.PlainText, "Disable colors and the thinking indicator")
	rootCmd.PersistentFlags().BoolVar(&args.Verbose, "verbose", false, "Log diagnostics to stderr")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Print the version")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset your configuration and API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ran = true
			args.Command = CommandReset
			return nil
		},
	})

	if opts.Out != nil {
		rootCmd.SetOut(opts.Out)
	}
	if opts.Err != nil {
		rootCmd.SetErr(opts.Err)
	}
	rootCmd.SetArgs(argv)

	if err := rootCmd.Execute(); err != nil {
		return Arguments{}, err
	}
	if !ran {
		args.Command = CommandHandled
		return args, nil
	}

	if args.Command == CommandRefine && opts.Stdin != nil {
		piped, err := readPiped(opts.Stdin)
		if err != nil {
			return Arguments{}, err
		}
		switch {
		case piped == "":
		case args.Prompt == "":
			args.Prompt = piped
		default:
			args.Prompt = args.Prompt + "\n\n" + piped
		}
	}
	args.Prompt = strings.TrimSpace(args.Prompt)

	return args, nil
}

func readPiped(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max buffer
	var buf strings.Builder
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
