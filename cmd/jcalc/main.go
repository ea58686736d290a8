// Command jcalc evaluates arithmetic expressions on a remote JVM reached
// through its debug agent.
//
// One-shot:
//
//	jcalc -addr 127.0.0.1:5005 -e '(10 + 30) * 3 / 5'
//
// Without -e it reads expressions line by line, prompting when stdin is a
// terminal.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jcalc/jcalc-go/jcalc"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jcalc: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("jcalc", flag.ExitOnError)
	addr := fs.String("addr", "", "debug agent address (host:port)")
	expr := fs.String("e", "", "evaluate a single expression and exit")
	configPath := fs.String("config", "", "path to a TOML config file")
	logLevel := fs.String("log", "", "log level: none, error, warn, info, verbose, debug")
	verbose := fs.Bool("v", false, "shorthand for -log verbose")
	noTTY := fs.Bool("no-tty", false, "never prompt, even when stdin is a terminal")
	traceFile := fs.String("trace", "", "write a msgpack packet trace to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	cfg := defaultCLIConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadCLIConfig(*configPath)
		if err != nil {
			return err
		}
	}

	// Flags override the config file.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if *verbose && cfg.LogLevel < jcalc.LogVerbose {
		cfg.LogLevel = jcalc.LogVerbose
	}
	if *traceFile != "" {
		cfg.TraceFile = *traceFile
	}

	opts := jcalc.NewClientOptions(cfg.Addr)
	opts.RequestTimeout = cfg.RequestTimeout
	opts.HandshakeTimeout = cfg.HandshakeTimeout
	opts.Logger = jcalc.LoggerOptions{
		Logger: stderrLogger{log.New(os.Stderr, "", log.LstdFlags)},
		Level:  cfg.LogLevel,
	}
	if cfg.TraceFile != "" {
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer f.Close()
		opts.TraceWriter = f
	}

	client, err := jcalc.Dial(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	if *expr != "" {
		out, err := client.Eval(*expr)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	interactive := !*noTTY && term.IsTerminal(int(os.Stdin.Fd()))
	return evalLines(client, os.Stdin, os.Stdout, os.Stderr, interactive)
}

// evalLines reads one expression per line and evaluates each on the remote
// VM. Expression-level failures are reported and the loop continues;
// connection-level failures end it.
func evalLines(client *jcalc.Client, in io.Reader, out, errOut io.Writer, interactive bool) error {
	sc := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "jcalc> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if interactive && (line == "exit" || line == "quit") {
			break
		}

		result, err := client.Eval(line)
		if err != nil {
			if !recoverable(err) {
				return err
			}
			fmt.Fprintf(errOut, "jcalc: %v\n", err)
			continue
		}
		if interactive {
			fmt.Fprintf(out, "= %s\n", result)
		} else {
			fmt.Fprintln(out, result)
		}
	}
	return sc.Err()
}

// recoverable reports whether the failure is scoped to one expression,
// leaving the connection usable for the next line.
func recoverable(err error) bool {
	var cerr *jcalc.Error
	if !errors.As(err, &cerr) {
		return false
	}
	switch cerr.Code {
	case jcalc.ErrCodeParse, jcalc.ErrCodeRemoteInvocation, jcalc.ErrCodeResolution:
		return true
	}
	return false
}

type stderrLogger struct {
	l *log.Logger
}

func (s stderrLogger) Print(level jcalc.LogLevel, v ...interface{}) {
	s.l.Print(v...)
}

func (s stderrLogger) Printf(level jcalc.LogLevel, format string, v ...interface{}) {
	s.l.Printf(format, v...)
}
