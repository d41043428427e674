package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	for _, err := range vr.Errors {
		builder.WriteString(fmt.Sprintf("  error: %s: %s\n", err.Field, err.Message))
		for _, suggestion := range err.Suggestions {
			builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
		}
	}
	for _, warning := range vr.Warnings {
		builder.WriteString(fmt.Sprintf("  warning: %s: %s\n", warning.Field, warning.Message))
	}

	return builder.String()
}

// allowedComposeCommands is the allow-list for the first word of the
// compose command.
var allowedComposeCommands = map[string]bool{
	"docker-compose": true,
	"docker":         true,
	"podman-compose": true,
	"podman":         true,
}

var platformValues = map[string]bool{
	"uid":          true,
	"gid":          true,
	"host_address": true,
}

// Validate performs validation with detailed feedback.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateProject(&config.Project, result)
	validateServer(&config.Server, result)
	validateEnvironment(&config.Environment, result)

	if config.Watch.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Watch.Debounce,
			Message: "debounce must not be negative",
		})
	}

	return result
}

func validateConfig(config *Config) error {
	result := Validate(config)
	if result.HasErrors() {
		first := result.Errors[0]
		return &first
	}
	return nil
}

func validateProject(p *ProjectConfig, result *ValidationResult) {
	if p.Theme == "" || strings.ContainsAny(p.Theme, `/\ `) {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "project.theme",
			Value:       p.Theme,
			Message:     "theme name must be a single non-empty path segment",
			Suggestions: []string{"use a slug such as my-theme"},
		})
	}

	dirs := map[string]string{
		"project.source_dir": p.SourceDir,
		"project.build_dir":  p.BuildDir,
		"project.dist_dir":   p.DistDir,
		"project.backup_dir": p.BackupDir,
	}
	for field, dir := range dirs {
		if err := validatePath(dir); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   dir,
				Message: err.Error(),
			})
		}
	}
}

func validateServer(s *ServerConfig, result *ValidationResult) {
	// 0 is allowed for system-assigned ports in tests
	for field, port := range map[string]int{"server.port": s.Port, "server.proxy_port": s.ProxyPort} {
		if port < 0 || port > 65535 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Value:   port,
				Message: fmt.Sprintf("port %d is not in valid range 0-65535", port),
			})
		}
	}

	if s.Port != 0 && s.Port == s.ProxyPort {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "server.proxy_port",
			Value:       s.ProxyPort,
			Message:     "proxy port must differ from the server port",
			Suggestions: []string{"set PROXY_PORT in .env"},
		})
	}

	if strings.ContainsAny(s.Host, ";&|$`()<>\"'\\") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.host",
			Value:   s.Host,
			Message: "host contains dangerous characters",
		})
	}
}

func validateEnvironment(e *EnvironmentConfig, result *ValidationResult) {
	if len(e.ComposeCommand) == 0 || !allowedComposeCommands[e.ComposeCommand[0]] {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "environment.compose_command",
			Value:       e.ComposeCommand,
			Message:     "compose command must start with docker-compose, docker, podman-compose or podman",
			Suggestions: []string{"compose_command: [docker, compose]"},
		})
	}

	for _, dir := range e.Directories {
		if err := validatePath(dir); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "environment.directories",
				Value:   dir,
				Message: err.Error(),
			})
		}
	}

	for i, tmpl := range e.Templates {
		field := fmt.Sprintf("environment.templates[%d]", i)
		if err := validatePath(tmpl.Target); err != nil {
			result.Errors = append(result.Errors, ValidationError{Field: field + ".target", Value: tmpl.Target, Message: err.Error()})
		}
		if err := validatePath(tmpl.Source); err != nil {
			result.Errors = append(result.Errors, ValidationError{Field: field + ".source", Value: tmpl.Source, Message: err.Error()})
		}
		for _, ph := range tmpl.Placeholders {
			if ph.Token == "" {
				result.Errors = append(result.Errors, ValidationError{Field: field + ".placeholders", Message: "empty placeholder token"})
			}
			if !platformValues[ph.Value] {
				result.Errors = append(result.Errors, ValidationError{
					Field:       field + ".placeholders",
					Value:       ph.Value,
					Message:     fmt.Sprintf("unknown placeholder value %q", ph.Value),
					Suggestions: []string{"use uid, gid or host_address"},
				})
			}
		}
	}

	if e.Service == "" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "environment.service",
			Message: "no default service; env:restart will require --service",
		})
	}
}

// validatePath validates a project-relative path
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path should be relative to the project root: %s", path)
	}

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	return nil
}
