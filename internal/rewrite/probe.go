package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/goplus/recipe/recipe"
)

// VersionProbe reports the raw version banner of the installed build tool.
type VersionProbe interface {
	ProbeVersion(ctx context.Context) (string, error)
}

// CMakeProbe runs "cmake --version".
type CMakeProbe struct {
	Path string // defaults to "cmake"
}

func (p CMakeProbe) ProbeVersion(ctx context.Context) (string, error) {
	bin := p.Path
	if bin == "" {
		bin = "cmake"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s --version: %s: %w", bin, msg, err)
		}
		return "", fmt.Errorf("%s --version: %w", bin, err)
	}
	return stdout.String(), nil
}

var toolVersionRE = regexp.MustCompile(`^cmake version (\d+\.\d+\.\d+)`)

// ParseToolVersion extracts "X.Y.Z" from a "cmake --version" banner.
func ParseToolVersion(out string) (string, error) {
	m := toolVersionRE.FindStringSubmatch(strings.TrimLeft(out, " \t\r\n"))
	if m == nil {
		first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
		return "", recipe.Errorf(recipe.ErrToolVersionUnknown, "probe", fmt.Sprintf("unrecognized output %q", first), nil)
	}
	return m[1], nil
}

// DetectToolVersion runs the probe and parses its output.
func DetectToolVersion(ctx context.Context, p VersionProbe) (string, error) {
	out, err := p.ProbeVersion(ctx)
	if err != nil {
		return "", recipe.Classify(ctx, "probe", err, recipe.ErrToolVersionUnknown)
	}
	return ParseToolVersion(out)
}
