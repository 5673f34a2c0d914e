// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	internal_device "github.com/rapidaai/interview/agent/internal/device"
	internal_machine "github.com/rapidaai/interview/agent/internal/machine"
	internal_recorder "github.com/rapidaai/interview/agent/internal/recorder"
	internal_type "github.com/rapidaai/interview/agent/internal/type"
	internal_visualizer "github.com/rapidaai/interview/agent/internal/visualizer"
	interview_client "github.com/rapidaai/interview/pkg/clients/interview"
	"github.com/rapidaai/interview/pkg/commons"
)

// The capture agent drives a complete interview without a browser: it
// starts (or resumes) the candidate's session, records each answer from
// the loopback capture devices, and lets the countdown auto-submit when
// time runs out. Useful for soaking the portal and for demos.
func main() {
	var (
		portalURL   = flag.String("portal", "http://localhost:5345/v1", "portal-api base url")
		interviewID = flag.String("interview", "", "interview identifier")
		candidateID = flag.String("candidate", "", "candidate identifier")
		logLevel    = flag.String("log-level", "debug", "log level")
		timeout     = flag.Duration("timeout", 30*time.Second, "portal request timeout")
	)
	flag.Parse()
	if *interviewID == "" || *candidateID == "" {
		log.Fatal("both -interview and -candidate are required")
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name("capture-agent"),
		commons.Level(*logLevel),
	)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := interview_client.NewInterviewServiceClient(*portalURL, *timeout, logger)
	session, err := client.StartInterview(ctx, *interviewID, *candidateID)
	if err != nil {
		logger.Fatalf("unable to start interview %s: %v", *interviewID, err)
	}
	logger.Infof("interview %s: question %d of %d", session.ID, session.PerguntaAtual.Ordem, session.TotalPerguntas)

	backend := internal_device.NewLoopbackBackend([]internal_type.Device{
		{ID: "loopback-cam", Label: "Loopback Camera", Kind: internal_type.DeviceKindCamera},
		{ID: "loopback-mic", Label: "Loopback Microphone", Kind: internal_type.DeviceKindMicrophone},
	}, 250*time.Millisecond)
	manager := internal_device.NewManager(logger, backend)
	defer manager.ReleaseAll()

	analyser := internal_visualizer.NewAnalyser()
	machine := internal_machine.New(
		logger,
		manager,
		client,
		func() internal_type.Recorder { return internal_recorder.NewClipRecorder(logger) },
		session,
		internal_machine.WithAnalyser(analyser),
	)
	defer machine.Close()

	if err := machine.Start(ctx); err != nil {
		logger.Fatalf("unable to start recording: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted, stopping")
			return
		case n, ok := <-machine.Notifications():
			if !ok {
				return
			}
			switch n.Kind {
			case internal_machine.EventTick:
				if n.Remaining%10 == 0 {
					logger.Debugf("%ds remaining", n.Remaining)
				}
			case internal_machine.EventDeviceSubstituted:
				logger.Warnf("device substituted: %s %q now in use", n.Device.Kind, n.Device.Label)
			case internal_machine.EventUploadFailed:
				logger.Errorf("upload failed: %s, retrying", n.Message)
				if err := machine.Retry(ctx); err != nil {
					logger.Fatalf("retry rejected: %v", err)
				}
			case internal_machine.EventNextQuestion:
				logger.Infof("next question %d, restarting capture", machine.Session().PerguntaAtual.Ordem)
				if err := machine.Start(ctx); err != nil {
					logger.Fatalf("unable to restart recording: %v", err)
				}
			case internal_machine.EventDeviceError:
				logger.Errorf("capture failed: %s", n.Message)
				return
			case internal_machine.EventFinished:
				logger.Info("interview finished")
				return
			}
		}
	}
}
