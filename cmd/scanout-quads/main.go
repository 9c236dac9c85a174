// Command scanout-quads drives every connected display directly
// through kernel mode setting, presenting a timed quad animation until
// interrupted. Press ESC or q (or send SIGINT) to exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/BeatGlow/scanout"
	"github.com/BeatGlow/scanout/anim"
	"github.com/BeatGlow/scanout/input"
	"github.com/BeatGlow/scanout/kms"
	"github.com/BeatGlow/scanout/session"
)

// Exit codes, one per failure class.
const (
	exitOK = iota
	exitNoDevice
	exitContentSetup
	exitBufferAlloc
	exitRuntime
)

func main() {
	os.Exit(run())
}

func run() int {
	cardFlag := flag.String("card", "", "KMS device node (default: probe /dev/dri)")
	logindFlag := flag.Bool("logind", false, "acquire the device through logind")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debugFlag || os.Getenv("SCANOUT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sess session.Session
	if *logindFlag {
		l, err := session.NewLogind()
		if err != nil {
			logger.Error("no logind session", "err", err)
			return exitNoDevice
		}
		sess = l
	} else {
		sess = session.NewDirect()
	}
	defer sess.Close()

	var (
		dev *kms.Device
		err error
	)
	if *cardFlag != "" {
		dev, err = kms.Open(*cardFlag, sess, logger)
	} else {
		dev, err = kms.Probe(sess, logger)
	}
	if err != nil {
		logger.Error("no usable KMS device", "err", err)
		return exitNoDevice
	}
	defer dev.Close()

	painter, err := anim.NewQuads()
	if err != nil {
		logger.Error("content setup failed", "err", err)
		return exitContentSetup
	}

	// A fixed-depth buffer queue per output; we manage the queue
	// ourselves instead of letting a swapchain do it.
	for _, out := range dev.Outputs() {
		for i := 0; i < scanout.QueueDepth; i++ {
			buf, err := dev.CreateBuffer(out)
			if err != nil {
				logger.Error("buffer allocation failed", "output", out.Name(), "err", err)
				return exitBufferAlloc
			}
			out.AddBuffer(buf)
		}
	}

	config := &scanout.Config{
		Painter: painter,
		Logger:  logger,
	}
	if kb, err := input.Open(); err != nil {
		logger.Debug("keyboard polling unavailable", "err", err)
	} else {
		defer kb.Close()
		config.Input = kb
	}

	sched, err := scanout.New(dev, dev.Outputs(), config)
	if err != nil {
		logger.Error("scheduler setup failed", "err", err)
		return exitRuntime
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("presentation loop failed", "err", err)
		return exitRuntime
	}

	fmt.Println("good-bye")
	return exitOK
}
