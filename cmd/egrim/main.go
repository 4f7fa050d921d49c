package main

import (
	"fmt"
	"os"

	"github.com/LeoCommon/egrim/internal/app"
	"github.com/LeoCommon/egrim/pkg/log"
	"go.uber.org/zap"
)

func main() {
	a, err := app.Setup(os.Args[1:], false)
	if err != nil || a == nil {
		fmt.Printf("Initialization failed, error: %s\n", err)
		os.Exit(2)
	}

	exitCode := 0

	a.WG.Add(1)
	go func() {
		defer a.WG.Done()
		if err := a.Run(); err != nil {
			log.Error("generation terminated with an error", zap.Error(err))
			exitCode = 1
		}
	}()

	// Wait until everything terminates
	a.WG.Wait()

	a.Shutdown()

	log.Info("simulator stopped")
	os.Exit(exitCode)
}
