// Package cli bootstraps a workload node: logger construction, identity for
// log correlation, signal handling and the node run loop.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/vx-labs/maelstrom-node/node"
	"go.uber.org/zap"
)

// Service is one workload. Setup installs its handlers and background loops
// on the node before the run loop starts.
type Service interface {
	Name() string
	Setup()
}

type Context struct {
	ID     string
	Logger *zap.Logger
	Node   *node.Node
}

// Bootstrap builds the logger and the node wired to the process streams. The
// run id identifies this process in logs until the harness assigns a node id.
func Bootstrap() *Context {
	id := uuid.New().String()
	fields := []zap.Field{
		zap.String("run_id", id), zap.String("version", Version()),
	}
	opts := []zap.Option{
		zap.Fields(fields...),
	}
	var logger *zap.Logger
	var err error
	if os.Getenv("ENABLE_PRETTY_LOG") == "true" {
		logger, err = zap.NewDevelopment(opts...)
	} else {
		logger, err = zap.NewProduction(opts...)
	}
	if err != nil {
		panic(err)
	}
	return &Context{
		ID:     id,
		Logger: logger,
		Node:   node.New(os.Stdin, os.Stdout, logger),
	}
}

// Run drives the workload for the process lifetime. Any protocol violation
// terminates the process with a non-zero status; external termination is the
// only other shutdown path.
func (ctx *Context) Run(service Service) {
	logger := ctx.Logger
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic", zap.String("panic_log", fmt.Sprint(r)))
			logger.Sync()
			os.Exit(1)
		}
		logger.Sync()
	}()

	service.Setup()
	logger.Info("starting workload", zap.String("workload", service.Name()))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		<-sigc
		logger.Info("received termination signal")
		cancel()
		logger.Sync()
		os.Exit(0)
	}()

	if err := ctx.Node.Run(runCtx); err != nil {
		logger.Fatal("node terminated", zap.Error(err))
	}
}
