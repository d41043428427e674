//go:build property
// +build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPathValidationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("relative identifiers are valid paths", prop.ForAll(
		func(segments []string) bool {
			if len(segments) == 0 {
				return true
			}
			return validatePath(strings.Join(segments, "/")) == nil
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("escaping the project root is rejected", prop.ForAll(
		func(name string) bool {
			return validatePath("../"+name) != nil
		},
		gen.Identifier(),
	))

	properties.Property("theme slugs validate", prop.ForAll(
		func(theme string) bool {
			result := &ValidationResult{}
			validateProject(&ProjectConfig{
				Theme:     theme,
				SourceDir: "src",
				BuildDir:  "build",
				DistDir:   "dist",
				BackupDir: "backups",
			}, result)
			return !result.HasErrors()
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
