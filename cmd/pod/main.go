package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/prose-pod/pod/common/version"
	"github.com/prose-pod/pod/internal/pod/app"
	"github.com/prose-pod/pod/internal/pod/podconfig"
)

func main() {
	fmt.Printf("Prose Pod Control Plane\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	configPath := getEnv("PROSE_CONFIG_PATH", "./prose.toml")
	pcfg, err := podconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load %s: %v\n", configPath, err)
		os.Exit(1)
	}

	cfg := app.Config{
		DatabasePath:        pcfg.API.Databases.Main.Path,
		UseDocker:           getEnvBool("PROSE_DOCKER_ENABLE", false),
		DockerContainerName: getEnv("PROSE_DOCKER_CONTAINER_NAME", "prosody"),
	}

	pod, err := app.New(cfg, pcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize pod: %v\n", err)
		os.Exit(1)
	}
	defer pod.Stop()

	if err := pod.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running pod: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
