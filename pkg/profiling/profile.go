package profiling

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"runtime/trace"
	"time"
)

// Enable captures CPU, heap and trace profiles into dir for the given
// duration, then stops and closes everything in the background.
func Enable(dir string, stopAfter time.Duration) error {
	slog.Info("profiling enabled", "dir", dir, "duration", stopAfter)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	cf, err := os.Create(filepath.Join(dir, "cpu.prof"))
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(cf); err != nil {
		cf.Close()
		return err
	}

	mf, err := os.Create(filepath.Join(dir, "memory.prof"))
	if err != nil {
		slog.Error("failed to create the heap profile", "err", err)
	} else if err := pprof.WriteHeapProfile(mf); err != nil {
		slog.Error("failed to write the heap profile", "err", err)
	}

	tc, err := os.Create(filepath.Join(dir, "trace.prof"))
	if err != nil {
		slog.Error("failed to create the trace file", "err", err)
	} else if err := trace.Start(tc); err != nil {
		slog.Error("failed to start tracing", "err", err)
	}

	go func() {
		<-time.After(stopAfter)
		pprof.StopCPUProfile()
		trace.Stop()
		cf.Close()
		if mf != nil {
			mf.Close()
		}
		if tc != nil {
			tc.Close()
		}
		slog.Info("finished the profiling")
	}()

	return nil
}
