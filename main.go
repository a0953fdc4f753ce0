package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/lookbusy1344/armv6m-stackdepth/image"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/cfg"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/explorer"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/render"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/runcfg"
	"github.com/lookbusy1344/armv6m-stackdepth/program"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "version":
		printVersion()
		return
	case "summary":
		runSummary(os.Args[2:])
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(2)
	}
}

func printVersion() {
	fmt.Printf("elf_arm_thumbv6m_cortex_m0 %s\n", Version)
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if Date != "unknown" {
		fmt.Printf("Built: %s\n", Date)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: elf_arm_thumbv6m_cortex_m0 summary [flags] <elf_path> [config_path]")
	fmt.Fprintln(os.Stderr, "       elf_arm_thumbv6m_cortex_m0 version")
	fmt.Fprintln(os.Stderr, "flags:")
	fmt.Fprintln(os.Stderr, "  -json               emit the report as JSON instead of tables")
	fmt.Fprintln(os.Stderr, "  -explore            open the interactive call-graph/entrypoint browser")
	fmt.Fprintln(os.Stderr, "  -warnings-as-errors treat any diagnostic warning as a failure (exit 1)")
}

func runSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "emit the report as JSON instead of tables")
	explore := fs.Bool("explore", false, "open the interactive call-graph/entrypoint browser")
	warningsAsErrors := fs.Bool("warnings-as-errors", false, "treat any diagnostic warning as a failure")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	rest := fs.Args()
	if len(rest) < 1 {
		printUsage()
		os.Exit(2)
	}
	elfPath := rest[0]
	configPath := ""
	if len(rest) >= 2 {
		configPath = rest[1]
	}

	img, err := image.Load(elfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	analysisConfig, err := cfg.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	report, err := program.Build(img, analysisConfig)
	if err != nil {
		if batch, ok := err.(*program.BatchError); ok {
			for _, e := range batch.Errors {
				fmt.Fprintf(os.Stderr, "error: %v\n", e)
			}
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	if *explore {
		if err := explorer.New(report).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		prefs, err := runcfg.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := render.FunctionTable(os.Stdout, report, prefs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if err := render.EntrypointSummary(os.Stdout, report, prefs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if err := render.CallTree(os.Stdout, report, prefs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		render.Warnings(os.Stdout, report)
	}

	if *warningsAsErrors && len(report.Warnings) > 0 {
		os.Exit(1)
	}
}
