// Command play runs a compiled quiz in the terminal. Session state, results
// and the outbox live in a file under the state directory, so an
// interrupted run resumes where it stopped.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/exstem-quiz/internal/cloud"
	"github.com/stemsi/exstem-quiz/internal/compiler"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/reporter"
	"github.com/stemsi/exstem-quiz/internal/store"
)

const tickInterval = 500 * time.Millisecond

func main() {
	var (
		artifact     = flag.String("artifact", "", "compiled quiz (.html)")
		stateDir     = flag.String("state", "", "state directory (default: $QUIZ_STATE_DIR or the user config dir)")
		exportFailed = flag.String("export-failed", "", "write undeliverable results as JSON to this file and exit")
		retryFailed  = flag.Bool("retry-failed", false, "move undeliverable results back into the outbox and exit")
	)
	flag.Parse()

	cfg := config.Load()
	if *stateDir != "" {
		cfg.StateDir = *stateDir
	}
	log := logger.Setup(cfg.LogLevel, "pretty", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.OpenFile(filepath.Join(cfg.StateDir, "state.json"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state")
	}
	rep := reporter.New(st, cloud.NewClient(cfg.CloudTimeout), log,
		reporter.WithMaxAttempts(cfg.MaxReportAttempts),
		reporter.WithInterval(cfg.DrainInterval),
	)

	if *exportFailed != "" {
		if err := export(ctx, rep, *exportFailed); err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
		return
	}
	if *retryFailed {
		if err := retry(ctx, rep); err != nil {
			log.Fatal().Err(err).Msg("Retry failed")
		}
		return
	}
	if *artifact == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*artifact)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open artifact")
	}
	doc, err := compiler.ReadDocument(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("file", *artifact).Msg("Not a playable quiz")
	}

	go rep.Run(ctx)

	screen := newUI(doc.Quiz, os.Stdout, terminalWidth())
	sess := engine.NewSession(doc.Quiz, doc.ArtifactID, st, rep, log)
	if err := play(ctx, sess, screen, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Session ended with an error")
	}

	// Stop the background loop, then give a just-finished result one
	// delivery attempt before exiting.
	stop()
	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.CloudTimeout)
	defer cancel()
	if _, err := rep.Drain(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Final delivery attempt failed")
	}
	if pending, err := rep.Pending(flushCtx); err == nil && len(pending) > 0 {
		screen.notice(fmt.Sprintf("%d result(s) waiting to be sent. They are retried on the next run.", len(pending)))
	}
}

// play feeds terminal input and clock ticks into the session until it is
// reported or the taker quits.
func play(ctx context.Context, sess *engine.Session, screen *ui, log zerolog.Logger) error {
	st, err := sess.Open(ctx, time.Now())
	if err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	screen.render(&st, sess.Result())
	for {
		if st.Phase == engine.PhaseReported {
			return nil
		}

		select {
		case <-ctx.Done():
			_, _ = sess.Dispatch(context.WithoutCancel(ctx), engine.Event{Kind: engine.EventSuspend, At: time.Now()})
			return ctx.Err()

		case <-ticker.C:
			next, err := sess.Dispatch(ctx, engine.Event{Kind: engine.EventTick, At: time.Now()})
			if err != nil {
				log.Debug().Err(err).Msg("Tick rejected")
				continue
			}
			if screen.changed(&st, &next) {
				screen.render(&next, sess.Result())
			}
			st = next

		case line, ok := <-lines:
			if !ok {
				_, _ = sess.Dispatch(ctx, engine.Event{Kind: engine.EventSuspend, At: time.Now()})
				return nil
			}
			ev, quit, err := screen.parse(&st, line)
			if quit {
				_, _ = sess.Dispatch(ctx, engine.Event{Kind: engine.EventSuspend, At: time.Now()})
				screen.notice("Progress saved. Run again to resume.")
				return nil
			}
			if err != nil {
				screen.problem(err)
				continue
			}
			if ev == nil {
				screen.render(&st, sess.Result())
				continue
			}
			ev.At = time.Now()
			next, err := sess.Dispatch(ctx, *ev)
			st = next
			if err != nil {
				screen.problem(err)
				continue
			}
			screen.render(&st, sess.Result())
		}
	}
}

func export(ctx context.Context, rep *reporter.Reporter, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := rep.ExportFailed(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "exported %d result(s) to %s\n", n, path)
	return nil
}

func retry(ctx context.Context, rep *reporter.Reporter) error {
	dead, err := rep.DeadLetters(ctx)
	if err != nil {
		return err
	}
	for _, e := range dead {
		if err := rep.Requeue(ctx, e.Result.SessionID); err != nil {
			return fmt.Errorf("requeue %s: %w", e.Result.SessionID, err)
		}
	}
	fmt.Fprintf(os.Stdout, "requeued %d result(s)\n", len(dead))
	return nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
