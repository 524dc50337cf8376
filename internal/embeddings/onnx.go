//go:build cgo

package embeddings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// onnxLibraryNames maps GOOS to the ONNX runtime shared library filename
// fastembed-go's cgo bindings dlopen.
var onnxLibraryNames = map[string]string{
	"linux":  "libonnxruntime.so",
	"darwin": "libonnxruntime.dylib",
}

// onnxInstallDir is where a manually-installed ONNX runtime is expected,
// mirroring fastembed-go's own lookup convention.
func onnxInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "flexicli", "lib")
}

// ONNXLibraryPath returns the path to the ONNX runtime shared library,
// checking ONNX_PATH first and then the managed install directory. Returns
// "" if neither is present.
func ONNXLibraryPath() string {
	if envPath := os.Getenv("ONNX_PATH"); envPath != "" {
		return envPath
	}
	libName, ok := onnxLibraryNames[runtime.GOOS]
	if !ok {
		return ""
	}
	candidate := filepath.Join(onnxInstallDir(), libName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// ErrONNXRuntimeMissing is returned by NewFastEmbedProvider's caller path
// (via NewProvider) when the local fallback tier is configured but no ONNX
// runtime is installed.
var ErrONNXRuntimeMissing = fmt.Errorf("onnx runtime not found: set ONNX_PATH or install to %s", onnxInstallDir())

// RequireONNXRuntime fails fast with an actionable error instead of
// fastembed-go's opaque cgo load failure when the runtime isn't present.
// Unlike the teacher's downloader this never fetches anything over the
// network on the caller's behalf; see DESIGN.md for why.
func RequireONNXRuntime() error {
	if ONNXLibraryPath() == "" {
		return ErrONNXRuntimeMissing
	}
	return nil
}
