// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Command genconfig writes example .env and config.yaml files from the
// configuration defaults.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	config "codeberg.org/pixivfe/tilemetrics/configs"
	"codeberg.org/pixivfe/tilemetrics/core/audit"
)

const (
	envOutputFile  = ".env.example"
	yamlOutputFile = "config.yaml.example"
	filePerm       = 0o644
	dirPerm        = 0o755

	envFileHeader = `# tilemetrics configuration (via environment variables)
#
# Copy this file to .env and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# tilemetrics configuration (via configuration file)
#
# Copy this file to config.yaml and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
	proxySettingsComment = `
## Network proxy settings for fragment fetches
## ref: https://pkg.go.dev/net/http#ProxyFromEnvironment
# HTTPS_PROXY=
# HTTP_PROXY=`
)

// essentialEnvVars are written uncommented.
var essentialEnvVars = []string{
	"TILEMETRICS_MODE",
	"TILEMETRICS_HOST",
	"TILEMETRICS_PORT",
}

// essentialYAMLKeys are written uncommented.
var essentialYAMLKeys = []string{
	"mode:",
	"host:",
	"port:",
}

func main() {
	outputDir := flag.String("out", "deploy", "Directory to write the example files to.")
	flag.Parse()

	audit.SetDefaultLogger()

	cfg := &config.AppConfig{}
	cfg.SetDefaults()

	if err := os.MkdirAll(*outputDir, dirPerm); err != nil {
		log.Fatal().Err(err).Str("path", *outputDir).Msg("Failed to create output directory")
	}

	writeExample(filepath.Join(*outputDir, envOutputFile), renderEnvFile(cfg))

	yamlExample, err := renderYAMLFile(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	writeExample(filepath.Join(*outputDir, yamlOutputFile), yamlExample)
}

func writeExample(path, content string) {
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write example file")
	}

	log.Info().Str("path", path).Msg("Successfully generated example file")
}

// renderEnvFile lists every env-tagged field, one section per config struct.
func renderEnvFile(cfg *config.AppConfig) string {
	var sb strings.Builder
	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*cfg)
	typ := val.Type()

	for i := range typ.NumField() {
		structField := typ.Field(i)
		structValue := val.Field(i)

		if structValue.Kind() != reflect.Struct || structField.Name == "Build" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", structField.Name)

		innerTyp := structValue.Type()
		for j := range innerTyp.NumField() {
			field := innerTyp.Field(j)
			value := structValue.Field(j)

			tag, ok := field.Tag.Lookup("env")
			if !ok {
				continue
			}

			envVarName := strings.Split(tag, ",")[0]

			switch {
			case isEssential(envVarName, essentialEnvVars):
				fmt.Fprintf(&sb, "%s=\"%v\"\n", envVarName, value.Interface())
			case value.Kind() == reflect.String && value.Len() == 0:
				fmt.Fprintf(&sb, "# %s=\n", envVarName)
			case value.Kind() == reflect.Slice:
				fmt.Fprintf(&sb, "# %s=%s\n", envVarName, joinSlice(value))
			default:
				fmt.Fprintf(&sb, "# %s=%v\n", envVarName, value.Interface())
			}
		}

		sb.WriteString("\n")
	}

	sb.WriteString(strings.TrimSpace(proxySettingsComment) + "\n")

	return sb.String()
}

// renderYAMLFile marshals the defaults and comments out everything but the
// section headers and essential keys.
func renderYAMLFile(cfg *config.AppConfig) (string, error) {
	var yamlContent strings.Builder

	if err := yaml.NewEncoder(&yamlContent, yaml.Indent(2)).Encode(cfg); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	for line := range strings.SplitSeq(yamlContent.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Top-level keys (e.g., "basic:") are section headers.
		if !strings.HasPrefix(line, " ") {
			fmt.Fprintf(&sb, "\n%s\n", line)

			continue
		}

		if isEssential(trimmed, essentialYAMLKeys) {
			sb.WriteString(line + "\n")

			continue
		}

		indentSize := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indentSize), trimmed)
	}

	return sb.String(), nil
}

func isEssential(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

func joinSlice(value reflect.Value) string {
	parts := make([]string, 0, value.Len())
	for i := range value.Len() {
		parts = append(parts, fmt.Sprint(value.Index(i).Interface()))
	}

	return strings.Join(parts, ",")
}
