package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kardianos/service"
	"github.com/sysdeck/agent/internal/agent"
	"github.com/sysdeck/agent/internal/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// program adapts the agent to the service manager lifecycle.
type program struct {
	configPath string
	agent      *agent.Agent
	errCh      chan error
}

func (p *program) Start(s service.Service) error {
	a, err := agent.New(p.configPath, version)
	if err != nil {
		return err
	}
	p.agent = a
	p.errCh = make(chan error, 1)

	go func() {
		p.errCh <- p.agent.Run()
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.agent == nil {
		return nil
	}
	if err := p.agent.Shutdown(); err != nil {
		return err
	}
	return <-p.errCh
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default: platform config dir)")
		svcAction   = flag.String("service", "", "service control action: install, uninstall, start, stop, restart")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sysdeck %s\n", version)
		return
	}

	path := *configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	prg := &program{configPath: path}

	svcConfig := &service.Config{
		Name:        "sysdeck",
		DisplayName: "Sysdeck Agent",
		Description: "System information poller and cleanup agent",
		Arguments:   []string{"-config", path},
	}

	svc, err := service.New(prg, svcConfig)
	if err != nil {
		log.Fatalf("failed to create service: %v", err)
	}

	if *svcAction != "" {
		if err := service.Control(svc, *svcAction); err != nil {
			log.Fatalf("service %s failed: %v", *svcAction, err)
		}
		fmt.Printf("service %s: ok\n", *svcAction)
		return
	}

	// svc.Run blocks: under a service manager it waits for a stop request,
	// interactively it waits for the agent to exit on SIGINT/SIGTERM.
	if err := svc.Run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
