package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Wrapper injects compiler specific switches into the build description
// of a tree. Implementations must be idempotent.
type Wrapper interface {
	Wrap(ctx context.Context, root string) error
}

const (
	wrapMarker   = "# wrapped by recipe"
	originalName = "CMakeListsOriginal.txt"
)

// CMakeWrapper moves CMakeLists.txt aside and replaces it with a file that
// appends ADDITIONAL_CXX_FLAGS to the compiler flags before including the
// original.
type CMakeWrapper struct{}

func (CMakeWrapper) Wrap(ctx context.Context, root string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lists := filepath.Join(root, "CMakeLists.txt")
	data, err := os.ReadFile(lists)
	if err != nil {
		return err
	}
	if bytes.HasPrefix(data, []byte(wrapMarker)) {
		return nil
	}
	if err := os.Rename(lists, filepath.Join(root, originalName)); err != nil {
		return err
	}
	return os.WriteFile(lists, []byte(wrapperText()), 0o644)
}

func wrapperText() string {
	return fmt.Sprintf(`%s
cmake_minimum_required(VERSION 2.8)
if(ADDITIONAL_CXX_FLAGS)
  set(CMAKE_CXX_FLAGS "${CMAKE_CXX_FLAGS} ${ADDITIONAL_CXX_FLAGS}")
  set(CMAKE_C_FLAGS "${CMAKE_C_FLAGS} ${ADDITIONAL_CXX_FLAGS}")
endif()
include(${CMAKE_CURRENT_SOURCE_DIR}/%s)
`, wrapMarker, originalName)
}
