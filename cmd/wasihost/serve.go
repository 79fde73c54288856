package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/runtime"
	"github.com/wippyai/wasi-host/terminal"
)

func newRouter(rt *runtime.Runtime, done <-chan struct{}) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		state := "running"
		select {
		case <-done:
			state = "finished"
		default:
		}
		s := rt.Get()
		st := rt.Pool().Stats()
		fmt.Fprintf(w, "%s %dx%d pending=%d workers=%d guests=%d\n",
			state, s.Cols, s.Rows, rt.Terminal().Len(), st.Workers, st.GuestThreads)
	})
	r.Method(http.MethodGet, "/terminal", terminal.WebSocketHandler(rt.Terminal(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	}))
	return r
}

// serve exposes the render channel on /terminal and runs the job. Output
// queues until a client connects. The server stops on interrupt.
func serve(ctx context.Context, rt *runtime.Runtime, addr string, j job) error {
	logger := zap.L().Named("serve")
	done := make(chan struct{})

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(rt, done),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("terminal server listening", zap.String("addr", addr))

	var jobErr error
	go func() {
		jobErr = j.run(ctx, rt)
		close(done)
		if jobErr != nil {
			logger.Warn("guest finished with error", zap.Error(jobErr))
		} else {
			logger.Info("guest finished")
		}
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		err = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Closing the channel ends every renderer with a normal closure.
	cerr := rt.Close(shutdownCtx)
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = fmt.Errorf("server shutdown failed: %w", serr)
	}

	select {
	case <-done:
		if err == nil {
			err = jobErr
		}
	default:
	}
	if err == nil {
		err = cerr
	}
	return err
}
