package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

type runMode int

const (
	modeSeeds runMode = iota
	modeDiscover
)

// invocation is the parsed CLI surface:
//
//	site-to-pdf [-s] [-config path] <input-file|base-url> <output>.pdf
type invocation struct {
	configPath string
	expand     bool
	mode       runMode
	inputPath  string
	baseURL    string
	output     string
}

func parseInvocation(args []string) (*invocation, error) {
	fs := flag.NewFlagSet("site-to-pdf", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	expand := fs.Bool("s", false, "expand sublinks one level from each seed page")
	configPath := fs.String("config", "", "path to optional YAML configuration file")

	// The documented surface allows flags after the input file
	// (`urls.txt -s out.pdf`), but flag parsing stops at the first
	// positional. Reorder flag tokens ahead of positionals first.
	var flags, positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positionals = append(positionals, arg)
			continue
		}
		flags = append(flags, arg)
		if (arg == "-config" || arg == "--config") && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if err := fs.Parse(append(flags, positionals...)); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) != 2 {
		return nil, fmt.Errorf("expected <input-file|base-url> and <output>.pdf, got %d arguments", len(rest))
	}

	inv := &invocation{
		configPath: *configPath,
		expand:     *expand,
		output:     rest[1],
	}
	if !strings.HasSuffix(strings.ToLower(inv.output), ".pdf") {
		return nil, fmt.Errorf("output filename %q must end in .pdf", inv.output)
	}

	if base, ok := asBaseURL(rest[0]); ok {
		if inv.expand {
			return nil, errors.New("-s only applies to seed-file mode")
		}
		inv.mode = modeDiscover
		inv.baseURL = base
	} else {
		inv.mode = modeSeeds
		inv.inputPath = rest[0]
	}
	return inv, nil
}

// asBaseURL reports whether the argument is an absolute http(s) URL, which
// selects discovery mode. Anything else is treated as a seed file path.
func asBaseURL(arg string) (string, bool) {
	u, err := url.Parse(arg)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", false
	}
	return arg, true
}

// readSeeds loads one URL per line, skipping blanks and # comments. Order
// and duplicates are preserved for the non-expansion path.
func readSeeds(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer fh.Close()

	var seeds []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("input file %s contains no URLs", path)
	}
	return seeds, nil
}

// promptYesNo asks an interactive y/n question. Anything other than an
// explicit yes answers no.
func promptYesNo(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
