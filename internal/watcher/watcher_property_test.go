//go:build property

package watcher

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRuleProperties validates glob rule matching on generated paths
func TestRuleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	segments := gen.SliceOfN(3, gen.Identifier())

	// Property: exclusion always wins over inclusion
	properties.Property("excluded paths never match", prop.ForAll(
		func(parts []string) bool {
			rel := "img/svg/" + strings.Join(parts, "/") + ".svg"
			rule := Rule{Include: []string{"img/**/*"}, Exclude: []string{"img/svg/**"}}
			return !rule.Matches(rel)
		},
		segments,
	))

	// Property: every path below img outside svg is matched
	properties.Property("image paths match", prop.ForAll(
		func(parts []string) bool {
			if parts[0] == "svg" {
				return true
			}
			rel := "img/" + strings.Join(parts, "/") + ".png"
			rule := Rule{Include: []string{"img/**/*"}, Exclude: []string{"img/svg/**"}}
			return rule.Matches(rel)
		},
		segments,
	))

	// Property: ignored directory names are ignored at any depth
	properties.Property("ignored segments are skipped", prop.ForAll(
		func(parts []string, ignoredName string) bool {
			fw := &FileWatcher{ignore: map[string]bool{".git": true, "node_modules": true}}
			mid := len(parts) / 2
			withIgnored := append(append(append([]string{}, parts[:mid]...), ignoredName), parts[mid:]...)
			return fw.ignored(strings.Join(withIgnored, "/")) && !fw.ignored(strings.Join(parts, "/"))
		},
		segments,
		gen.OneConstOf(".git", "node_modules"),
	))

	properties.TestingRun(t)
}
