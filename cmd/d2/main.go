// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command d2 analyzes an event repository for potential deadlocks.
//
// Usage:
//
//	d2 [flags] <repo-path>
//
// By default d2 prints one diagnostic per potential deadlock. With
// -stats it prints thread and lock counts instead; with -dot it also
// renders the lock graph in the dot language.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	"github.com/aclements/d2/analysis"
	"github.com/aclements/d2/config"
	"github.com/aclements/d2/repo"
)

const version = "0.1"

var (
	flagAnalyze = flag.Bool("analyze", true, "report potential deadlocks")
	flagStats   = flag.Bool("stats", false, "print thread and lock statistics")
	flagDot     = flag.String("dot", "", "write the lock graph in dot form to `file`")
	flagOut     = flag.String("o", "", "write output to `file` instead of stdout")
	flagVerbose = flag.Bool("v", false, "enable verbose logging")
	flagVersion = flag.Bool("version", false, "print version and exit")
)

var log = logrus.New()

func main() {
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: d2 [flags] <repo-path>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *flagVersion {
		fmt.Printf("d2 version %s\n", version)
		return
	}
	if *flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if c, err := config.FromEnv(); err != nil {
		log.WithError(err).Warn("ignoring environment configuration")
	} else if c != nil && c.LogLevel != "" && !*flagVerbose {
		if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
			log.SetLevel(lvl)
		}
	}
	log.Debugf("invoked as %s", shellquote.Join(os.Args...))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "d2: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	store, err := repo.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	sk, err := analysis.Load(store)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"threads": sk.NumberOfThreads(),
		"locks":   sk.NumberOfLocks(),
	}).Debug("repository loaded")

	var out bytes.Buffer
	if *flagStats {
		if err := sk.WriteStats(&out); err != nil {
			return err
		}
	} else if *flagAnalyze {
		if err := analyze(&out, sk); err != nil {
			return err
		}
	}

	if *flagDot != "" {
		var dot bytes.Buffer
		if err := sk.WriteDot(&dot); err != nil {
			return err
		}
		if err := renameio.WriteFile(*flagDot, dot.Bytes(), 0o666); err != nil {
			return err
		}
	}

	if *flagOut != "" {
		return renameio.WriteFile(*flagOut, out.Bytes(), 0o666)
	}
	_, err = io.Copy(os.Stdout, &out)
	return err
}

func analyze(w io.Writer, sk *analysis.Skeleton) error {
	deadlocks := sk.Deadlocks()
	log.WithField("count", len(deadlocks)).Debug("analysis complete")
	for _, dl := range deadlocks {
		if _, err := fmt.Fprintln(w, analysis.Rule); err != nil {
			return err
		}
		if err := analysis.Format(w, dl); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", analysis.Rule); err != nil {
			return err
		}
	}
	return nil
}
