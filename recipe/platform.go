package recipe

import (
	"fmt"
	"strings"
)

// OSFamily is the operating system a build targets.
type OSFamily int

const (
	OSUnknown OSFamily = iota
	Linux
	Windows
	Macos
)

// String returns the conan-style spelling used in patch file names.
func (o OSFamily) String() string {
	switch o {
	case Linux:
		return "Linux"
	case Windows:
		return "Windows"
	case Macos:
		return "Macos"
	case OSUnknown:
		return "unknown"
	}
	return fmt.Sprintf("OSFamily(%d)", int(o))
}

// ParseOS maps a settings value to an OSFamily.
func ParseOS(s string) (OSFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	case "macos", "darwin":
		return Macos, nil
	}
	return OSUnknown, Errorf(ErrUnsupportedPlatform, "parse os", fmt.Sprintf("%q", s), nil)
}

// CompilerFamily identifies the compiler toolchain.
type CompilerFamily int

const (
	CompilerUnknown CompilerFamily = iota
	GCC
	Clang
	AppleClang
	MSVC
)

func (c CompilerFamily) String() string {
	switch c {
	case GCC:
		return "gcc"
	case Clang:
		return "clang"
	case AppleClang:
		return "apple-clang"
	case MSVC:
		return "Visual Studio"
	case CompilerUnknown:
		return "unknown"
	}
	return fmt.Sprintf("CompilerFamily(%d)", int(c))
}

// ParseCompiler maps a settings value to a CompilerFamily.
func ParseCompiler(s string) (CompilerFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gcc":
		return GCC, nil
	case "clang":
		return Clang, nil
	case "apple-clang":
		return AppleClang, nil
	case "visual studio", "msvc":
		return MSVC, nil
	}
	return CompilerUnknown, Errorf(ErrUnsupportedPlatform, "parse compiler", fmt.Sprintf("%q", s), nil)
}

// Platform describes the machine and toolchain of one build. It is a value
// and never changes once a build has started.
type Platform struct {
	OS              OSFamily
	Compiler        CompilerFamily
	CompilerVersion string
	Arch            string
	BuildType       string
}

// Validate reports an ErrUnsupportedPlatform error if the OS or compiler
// was left unset.
func (p Platform) Validate() error {
	if p.OS == OSUnknown {
		return Errorf(ErrUnsupportedPlatform, "platform", "os not set", nil)
	}
	if p.Compiler == CompilerUnknown {
		return Errorf(ErrUnsupportedPlatform, "platform", "compiler not set", nil)
	}
	return nil
}

func (p Platform) String() string {
	s := p.OS.String() + "/" + p.Compiler.String()
	if p.CompilerVersion != "" {
		s += "-" + p.CompilerVersion
	}
	if p.Arch != "" {
		s += "/" + p.Arch
	}
	if p.BuildType != "" {
		s += "/" + p.BuildType
	}
	return s
}
