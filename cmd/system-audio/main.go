// Command system-audio is the process entry point: it initializes the
// audio host, discovers devices, builds a Microphone/Speaker resource
// per discovered device, bridges them onto the NATS control plane, and
// runs until a termination signal arrives.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/viam-modules/system-audio/internal/discovery"
	"github.com/viam-modules/system-audio/internal/factory"
	"github.com/viam-modules/system-audio/internal/host"
	"github.com/viam-modules/system-audio/internal/resource"
	"github.com/viam-modules/system-audio/internal/transport"
)

func main() {
	natsURL := flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
	flag.Parse()

	log.Printf("🚀 starting system-audio service")
	log.Printf("🎯 NATS address: %s", *natsURL)

	binding := host.NewPortAudioBinding()
	if err := binding.Initialize(); err != nil {
		log.Fatalf("❌ failed to initialize audio host: %v", err)
	}
	defer func() {
		if err := binding.Terminate(); err != nil {
			log.Printf("⚠️  failed to terminate audio host: %v", err)
		}
	}()

	configs, err := discovery.Discover(binding)
	if err != nil {
		log.Fatalf("❌ failed to discover audio devices: %v", err)
	}
	log.Printf("🔍 discovered %d audio resource(s)", len(configs))

	f := factory.New(binding)

	conn, err := transport.Connect(*natsURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to NATS: %v", err)
	}
	defer conn.Close()

	bridge := transport.NewBridge(conn)
	defer bridge.Close()

	var closers []func() error

	for _, rc := range configs {
		cfg := factory.Config{DeviceName: rc.DeviceName}

		switch rc.Kind {
		case factory.KindMicrophone:
			mic, err := resource.NewMicrophone(f, cfg)
			if err != nil {
				log.Printf("⚠️  failed to open microphone %q (%s): %v", rc.Name, rc.DeviceName, err)
				continue
			}
			if err := bridge.RegisterMicrophone(rc.Name, mic); err != nil {
				log.Printf("⚠️  failed to bridge microphone %q: %v", rc.Name, err)
				_ = mic.Close()
				continue
			}
			closers = append(closers, mic.Close)

		case factory.KindSpeaker:
			sp, err := resource.NewSpeaker(f, cfg)
			if err != nil {
				log.Printf("⚠️  failed to open speaker %q (%s): %v", rc.Name, rc.DeviceName, err)
				continue
			}
			if err := bridge.RegisterSpeaker(rc.Name, sp); err != nil {
				log.Printf("⚠️  failed to bridge speaker %q: %v", rc.Name, err)
				_ = sp.Close()
				continue
			}
			closers = append(closers, sp.Close)
		}
	}

	fmt.Println()
	fmt.Println("🎙️  system-audio ready")
	fmt.Printf("📡 %d resource(s) bridged over NATS\n", len(closers))
	fmt.Println("⏹️  Press Ctrl+C to stop")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 shutting down system-audio service")
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("⚠️  error during shutdown: %v", err)
		}
	}
	log.Println("👋 system-audio service stopped")
}
