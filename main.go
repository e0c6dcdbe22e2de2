package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
	"queue_torii/internal/server"
	"queue_torii/internal/utils"
	"syscall"
	"time"
)

func main() {
	var basePath string
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.Parse()

	// Load MainConfig
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		if !config.IsNotExist(err) {
			log.Fatalf("Load config failed: %v", err)
		}
		log.Printf("Config file not found, using defaults: %v", err)
	}

	logx := utils.InitLogx(cfg.LogPath)
	defer logx.Sync()

	// Load rules
	ruleSet, err := config.LoadRules(cfg.RulePath, utils.Logger("queueit"))
	if err != nil {
		log.Fatalf("Load rules failed: %v", err)
	}
	if ruleSet.QueueValidator == nil {
		log.Printf("QueueIt rule disabled, every request passes the queue check")
	}

	// Init shared memory
	failureWindow := ruleSet.MaxFailureWindow()
	if failureWindow < 60 {
		failureWindow = 60
	}
	sharedMem := &dataType.SharedMemory{
		TokenFailureCounter: dataType.NewCounter(64, failureWindow),
		BlockList:           dataType.NewBlockList(),
	}

	stopCh := make(chan struct{})
	go dataType.StartCounterGC(sharedMem.TokenFailureCounter, time.Minute, stopCh)
	go dataType.StartBlockListGC(sharedMem.BlockList, stopCh)

	log.Printf("Ready to start server on port %s", cfg.Port)

	// Start server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(cfg, ruleSet, sharedMem)
	}()

	select {
	case <-stop:
		log.Println("Stopping server...")
	case err := <-serverErr:
		if err != nil {
			close(stopCh)
			log.Fatalf("Failed to start server: %v", err)
		}
	}

	close(stopCh)
	log.Println("Server stopped")
}
