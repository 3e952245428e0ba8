package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/branchmetrics/wxs-builder/pkg/wxsgen"
	"github.com/pkg/errors"
)

func runCheck(args []string) error {
	flagset := flag.NewFlagSet("check", flag.ExitOnError)
	flagset.Usage = usageFor(flagset, "wxs-builder check [flags] <file.wxs>...")
	if err := parseFlags(flagset, args); err != nil {
		return err
	}

	if flagset.NArg() == 0 {
		return errors.New("no wxs files given")
	}

	return checkFiles(os.Stdout, flagset.Args())
}

// checkFiles verifies each file, printing any problems. It fails if
// any file has one.
func checkFiles(out io.Writer, paths []string) error {
	failed := 0
	for _, path := range paths {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}

		err = wxsgen.Verify(data)
		var verr *wxsgen.VerifyError
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s: ok\n", path)
		case errors.As(err, &verr):
			failed++
			for _, p := range verr.Problems {
				fmt.Fprintf(out, "%s: %s\n", path, p)
			}
		default:
			return errors.Wrapf(err, "checking %s", path)
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d files have identifier problems", failed, len(paths))
	}
	return nil
}
