package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: paperdigest <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the front door, job endpoint and worker queue")
	fmt.Fprintln(w, "  frontdoor  Run the front door only")
	fmt.Fprintln(w, "  processor  Run the job endpoint and worker queue only")
	fmt.Fprintln(w, "  summarize  Summarize one arXiv paper and store the artifacts")
	fmt.Fprintln(w, "  render     Render a Markdown file to an HTML page")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'paperdigest help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --log-level <s>       Log level: debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      Log format: text, json")
	fmt.Fprintln(w, "  -v, --verbose             Shorthand for --log-level debug")
}

func printStorageUsage(w io.Writer) {
	fmt.Fprintln(w, "Storage:")
	fmt.Fprintln(w, "      --storage <s>         Artifact store: filesystem, sqlite")
	fmt.Fprintln(w, "      --storage-dir <path>  Filesystem store directory")
	fmt.Fprintln(w, "      --sqlite-path <path>  SQLite database file")
}

// printServeUsage prints usage for serve, frontdoor and processor.
func printServeUsage(w io.Writer, name string) {
	fmt.Fprintf(w, "Usage: paperdigest %s [flags]\n", name)
	fmt.Fprintln(w)
	switch name {
	case cmdServe:
		fmt.Fprintln(w, "Serve POST / and /summaries, POST /v1/jobs, /healthz and /metrics,")
		fmt.Fprintln(w, "processing jobs on an in-process worker queue.")
	case cmdFrontDoor:
		fmt.Fprintln(w, "Serve POST / and /summaries, /healthz and /metrics. Jobs go to the")
		fmt.Fprintln(w, "local queue or, with --dispatch http, to a remote processor.")
	case cmdProcessor:
		fmt.Fprintln(w, "Serve POST /v1/jobs, /healthz and /metrics and process accepted jobs.")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Service:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "  -w, --workers <n>         Queue workers (default 1)")
	fmt.Fprintln(w, "      --job-timeout <d>     Per-job timeout (default 5m)")
	fmt.Fprintln(w, "      --dispatch <s>        Dispatch mode: queue, http")
	fmt.Fprintln(w, "      --processor-url <u>   Processor base URL for http dispatch")
	fmt.Fprintln(w, "      --pdf                 Also export each summary as PDF")
	fmt.Fprintln(w)
	printStorageUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printSummarizeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: paperdigest summarize <arxiv-url> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summarize one paper synchronously. Prints the request id and the")
	fmt.Fprintln(w, "stored artifact keys. The OpenAI key is read from the secrets")
	fmt.Fprintln(w, "directory or $OPENAI_API_KEY.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "      --pdf                 Also export the summary as PDF")
	fmt.Fprintln(w, "      --markdown            Print the Markdown summary instead of keys")
	fmt.Fprintln(w)
	printStorageUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: paperdigest render [file.md] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render Markdown (file or stdin) to a full HTML page.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file (default stdout)")
	fmt.Fprintln(w, "      --fragment            Print the fragment without the page template")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Assets:")
	fmt.Fprintln(w, "      --style <name>        Chroma highlighting style (default github)")
	fmt.Fprintln(w, "      --template <name>     Page template name (default page)")
	fmt.Fprintln(w, "      --asset-path <dir>    Directory with templates/ overrides")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case cmdServe, cmdFrontDoor, cmdProcessor:
		printServeUsage(env.Stdout, args[0])
	case cmdSummarize:
		printSummarizeUsage(env.Stdout)
	case cmdRender:
		printRenderUsage(env.Stdout)
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: paperdigest version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(env.Stdout, "Usage: paperdigest help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
