/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
/*
	nova: a small functional language with a non-recursive evaluator

*/
package main

import "os"
import "log"
import "fmt"
import "flag"
import "errors"
import "context"
import "io/fs"
import "syscall"
import "os/signal"
import "runtime/pprof"
import "github.com/jtolds/gls"
import "github.com/mattn/go-isatty"
import "github.com/launix-de/nova/scm"
import "github.com/launix-de/nova/storage"

// workaround for flags package to allow multiple values
type arrayFlags []string

func (i *arrayFlags) String() string {
	return "dummy"
}

func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

// setupSession imports the stored library and the startup files.
func setupSession(ctx context.Context, s *scm.Session, imports []string) error {
	if storage.Settings.Library != "" {
		_, err := storage.Import(ctx, storage.Settings.Library, s)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	for _, file := range imports {
		if _, err := storage.Import(ctx, file, s); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if interactive {
		fmt.Print(`nova Copyright (C) 2023-2026   Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;

`)
	}

	// parse command line options
	var commands arrayFlags
	flag.Var(&commands, "c", "Execute a statement or :command after the imports")
	var watches arrayFlags
	flag.Var(&watches, "watch", "Import a file and re-import it on every change")

	config := flag.String("config", "", "Settings file (Default: nova.yaml if present)")
	history := flag.String("history", "", "History file of the interactive prompt")
	library := flag.String("library", "", "Function library to import at start and to :save into")
	listen := flag.String("listen", "", "Serve the prompt over websockets on this address, e.g. :4322")
	trace := flag.Bool("trace", false, "Write a chrome trace of every evaluation")
	profile := flag.String("profile", "", "Write a CPU profile to this file")

	wd, _ := os.Getwd() // libraries are relative to working directory... or change with -wd PATH
	flag.StringVar(&wd, "wd", wd, "Working Directory for :import and :watch (Default: .)")

	flag.Parse()
	imports := flag.Args()

	// settings: file first, flags override
	if *config != "" {
		if err := storage.LoadSettings(*config); err != nil {
			log.Fatal(err)
		}
	} else if _, err := os.Stat("nova.yaml"); err == nil {
		if err := storage.LoadSettings("nova.yaml"); err != nil {
			log.Fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "history":
			storage.Settings.History = *history
		case "library":
			storage.Settings.Library = *library
		case "listen":
			storage.Settings.Listen = *listen
		case "trace":
			storage.Settings.Trace = *trace
		case "watch":
			storage.Settings.Watch = append(storage.Settings.Watch, watches...)
		}
	})
	imports = append(storage.Settings.Imports, imports...)

	s := scm.NewSession(os.Stdout)
	s.Dir = wd
	if err := storage.InitSettings(s); err != nil {
		log.Fatal(err)
	}

	// install exit handler
	cancelChan := make(chan os.Signal, 1)
	signal.Notify(cancelChan, syscall.SIGTERM)
	go (func() {
		<-cancelChan
		storage.Shutdown()
		os.Exit(1)
	})()

	// init profiling
	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	ctx := context.Background()
	exitCode := 0
	storage.WithImportDir(wd, func() {
		if err := setupSession(ctx, s, imports); err != nil {
			fmt.Println(scm.Render(err))
			exitCode = 1
			return
		}
		for _, file := range storage.Settings.Watch {
			if _, err := storage.Watch(ctx, file, s); err != nil {
				fmt.Println(scm.Render(err))
				exitCode = 1
				return
			}
		}
		for _, command := range commands {
			if err := s.Line(ctx, "command line", command); err != nil {
				if err == scm.ErrQuit {
					return
				}
				fmt.Println(scm.Render(err))
				exitCode = 1
				return
			}
		}

		serverErr := make(chan error, 1)
		if storage.Settings.Listen != "" {
			server := scm.NewReplServer(func(ns *scm.Session) error {
				return setupSession(ctx, ns, imports)
			})
			server.User = storage.Settings.User
			server.Password = storage.Settings.Password
			if server.Password == "" {
				log.Println("warning: the network REPL has no password, set one in the settings file")
			}
			gls.Go(func() {
				log.Println("listening on", storage.Settings.Listen)
				serverErr <- server.ListenAndServe(storage.Settings.Listen)
			})
		}

		var err error
		if interactive {
			fmt.Print(`
    Type :help to list the builtins and :commands for the prompt commands

`)
			err = scm.Repl(ctx, s, storage.Settings.History)
		} else {
			err = scm.Batch(ctx, s, "stdin", os.Stdin)
		}
		if err != nil {
			fmt.Println(scm.Render(err))
			exitCode = 1
			return
		}
		if storage.Settings.Listen != "" && !interactive {
			// script done, keep serving
			if err := <-serverErr; err != nil {
				log.Println(err)
				exitCode = 1
			}
		}
	})

	// normal shutdown
	storage.Shutdown()
	if exitCode != 0 {
		pprof.StopCPUProfile()
		os.Exit(exitCode)
	}
}
