// Command generate-config writes an example studio config with every default
// filled in.
package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/archive-studio/internal/config"
)

// Secrets are read from the environment (or .env) and left out of the file.
var envOverrides = []string{
	config.EnvAPIBaseURL,
	config.EnvToken,
	config.EnvRefreshToken,
	config.EnvEd25519Key,
	config.EnvS3Bucket,
	config.EnvS3Endpoint,
	config.EnvS3AccessKeyID,
	config.EnvS3SecretAccessKey,
	config.EnvS3PublicBaseURL,
	config.EnvLogLevel,
}

func generate() ([]byte, error) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("# Archive Studio Configuration Example\n")
	b.WriteString("# Copy this file to config.yaml (or point " + config.EnvConfigPath + " at it) and customize as needed\n")
	b.WriteString("#\n# These environment variables override the file:\n")
	for _, env := range envOverrides {
		b.WriteString("#   " + env + "\n")
	}
	b.WriteString("\n")
	b.Write(yamlData)
	return []byte(b.String()), nil
}

func main() {
	output, err := generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		os.Stdout.Write(output)
		return
	}

	if err := os.WriteFile(outputFile, output, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
