// Entrypoint is the container's first process. It resolves the listen address
// from the environment exactly once, hands it to the relay binary as explicit
// arguments, and lives exactly as long as the relay does, exiting with the
// relay's status.
package main

import (
	"log"
	"os"
	"time"

	"tradewire/config"
	"tradewire/launcher"
)

func main() {
	log.Printf("🚀 [STARTING] tradewire entrypoint")

	bind, err := config.ResolveBindFromEnv()
	if err != nil {
		// A malformed PORT means the platform and the container disagree
		// about routing. Fixing the env var is recoverable; serving on a
		// silently substituted port is not.
		log.Fatalf("💥 [FAILED] %v", err)
	}

	// Optional startup delay for Coolify compatibility
	if delay := os.Getenv("STARTUP_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d > 0 {
			log.Printf("⏳ [STARTING] Applying startup delay: %v", d)
			time.Sleep(d)
		}
	}

	target := os.Getenv("SERVER_BINARY")
	if target == "" {
		target = "/app/tradewire"
	}

	p := launcher.New(target, bind)
	if err := p.Start(); err != nil {
		log.Printf("💥 [FAILED] %v", err)
		os.Exit(127)
	}
	log.Printf("✅ [RUNNING] %s (pid %d) bound for %s", target, p.Pid(), bind.Addr())

	code, err := p.Wait()
	if err != nil {
		log.Printf("⚠️  [ENTRYPOINT] wait: %v", err)
	}
	os.Exit(code)
}
